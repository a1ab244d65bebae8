package execution

import (
	"errors"
	"sort"
	"sync"

	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/types"
	"golang.org/x/exp/maps"
)

var (
	// ErrMarketNotFound is returned on a lookup of an unknown market.
	ErrMarketNotFound = errors.New("market not found")
	// ErrPositionNotFound is returned on a lookup of an unknown position.
	ErrPositionNotFound = errors.New("position not found")
	// ErrAlreadyExists is returned when registering a duplicate id.
	ErrAlreadyExists = errors.New("already exists")
)

// MarketRegistry resolves markets by id. The engine is the single writer
// of market state, the registry only owns the lookup and persistence.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/markets_mock.go -package mocks code.meridianprotocol.io/meridian/core/execution MarketRegistry
type MarketRegistry interface {
	GetMarket(id string) (*market.Market, error)
}

// PositionStore owns position lookup and lifecycle.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/positions_mock.go -package mocks code.meridianprotocol.io/meridian/core/execution PositionStore
type PositionStore interface {
	GetPosition(id string) (*types.Position, error)
	UpsertPosition(p *types.Position) error
	RemovePosition(id string) error
}

// PriceFeed looks up the oracle prices of a market at action
// construction time.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/feed_mock.go -package mocks code.meridianprotocol.io/meridian/core/execution PriceFeed
type PriceFeed interface {
	LatestPrices(marketID string) (*types.Prices, error)
}

// InMemoryMarkets is the default MarketRegistry.
type InMemoryMarkets struct {
	mu      sync.RWMutex
	markets map[string]*market.Market
}

func NewInMemoryMarkets() *InMemoryMarkets {
	return &InMemoryMarkets{markets: map[string]*market.Market{}}
}

func (r *InMemoryMarkets) AddMarket(m *market.Market) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.markets[m.Meta().ID]; ok {
		return ErrAlreadyExists
	}
	r.markets[m.Meta().ID] = m
	return nil
}

func (r *InMemoryMarkets) GetMarket(id string) (*market.Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markets[id]
	if !ok {
		return nil, ErrMarketNotFound
	}
	return m, nil
}

// MarketIDs returns the registered ids in a stable order.
func (r *InMemoryMarkets) MarketIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := maps.Keys(r.markets)
	sort.Strings(ids)
	return ids
}

// InMemoryPositions is the default PositionStore.
type InMemoryPositions struct {
	mu        sync.RWMutex
	positions map[string]*types.Position
}

func NewInMemoryPositions() *InMemoryPositions {
	return &InMemoryPositions{positions: map[string]*types.Position{}}
}

func (s *InMemoryPositions) GetPosition(id string) (*types.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[id]
	if !ok {
		return nil, ErrPositionNotFound
	}
	return p, nil
}

func (s *InMemoryPositions) UpsertPosition(p *types.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[p.ID] = p
	return nil
}

func (s *InMemoryPositions) RemovePosition(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[id]; !ok {
		return ErrPositionNotFound
	}
	delete(s.positions, id)
	return nil
}

// Len reports the number of open positions.
func (s *InMemoryPositions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}
