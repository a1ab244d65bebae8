package market

import (
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
)

// Revertible is a staged overlay over one market. It snapshots every pool,
// clock and scalar on construction, all reads and writes during an action
// hit the staged copies and only Commit flushes them back. Dropping the
// overlay without committing leaves the underlying market untouched.
type Revertible struct {
	mkt *Market

	pools        map[PoolKind]*Pool
	clocks       [clockCount]int64
	funding      *num.Int
	supply       *num.Uint
	tradeCount   uint64
	balances     map[string]*num.Uint
	claimable    map[string]*num.Uint
	baseRevision uint64
	committed    bool
}

// NewRevertible snapshots the market into a fresh overlay.
func NewRevertible(m *Market) *Revertible {
	pools := make(map[PoolKind]*Pool, len(m.pools))
	for k, p := range m.pools {
		pools[k] = p.Clone()
	}
	balances := make(map[string]*num.Uint, len(m.balances))
	for t, b := range m.balances {
		balances[t] = b.Clone()
	}
	claimable := make(map[string]*num.Uint, len(m.claimableCollateral))
	for t, b := range m.claimableCollateral {
		claimable[t] = b.Clone()
	}
	return &Revertible{
		mkt:          m,
		pools:        pools,
		clocks:       m.clocks,
		funding:      m.fundingFactorPerSecond.Clone(),
		supply:       m.totalSupply.Clone(),
		tradeCount:   m.tradeCount,
		balances:     balances,
		claimable:    claimable,
		baseRevision: m.revision,
	}
}

// Commit flushes all staged writes to the underlying market. Committing
// twice, or after another overlay on the same market committed, is an
// error and flushes nothing.
func (r *Revertible) Commit() error {
	if r.committed {
		return types.ErrOverlayAlreadyCommitted
	}
	if r.mkt.revision != r.baseRevision {
		return types.ErrOverlayAlreadyCommitted
	}
	r.committed = true
	for k, p := range r.pools {
		r.mkt.pools[k] = p
	}
	r.mkt.clocks = r.clocks
	r.mkt.fundingFactorPerSecond = r.funding
	r.mkt.totalSupply = r.supply
	r.mkt.tradeCount = r.tradeCount
	r.mkt.balances = r.balances
	r.mkt.claimableCollateral = r.claimable
	r.mkt.revision++
	return nil
}

// Committed reports whether the overlay already flushed.
func (r *Revertible) Committed() bool {
	return r.committed
}

func (r *Revertible) Meta() types.MarketMeta {
	return r.mkt.meta
}

func (r *Revertible) Config() *types.MarketConfig {
	return r.mkt.cfg
}

// Unit is the fixed point unit of the market.
func (r *Revertible) Unit() *num.Uint {
	return r.mkt.cfg.Unit()
}

// Pool returns a copy of the staged pool.
func (r *Revertible) Pool(kind PoolKind) *Pool {
	return r.pools[kind].Clone()
}

// PoolAmount returns the staged balance of one pool side.
func (r *Revertible) PoolAmount(kind PoolKind, isLong bool) *num.Uint {
	return r.pools[kind].Amount(isLong)
}

// ApplyDeltaToPool adds a signed delta to one side of a staged pool.
func (r *Revertible) ApplyDeltaToPool(kind PoolKind, isLong bool, delta *num.Int) error {
	return r.pools[kind].ApplyDelta(isLong, delta)
}

// ApplyDeltasToPool applies both side deltas atomically to a staged pool,
// either both apply or neither does.
func (r *Revertible) ApplyDeltasToPool(kind PoolKind, longDelta, shortDelta *num.Int) error {
	n, err := r.pools[kind].CheckedApplyDelta(longDelta, shortDelta)
	if err != nil {
		return err
	}
	r.pools[kind] = n
	return nil
}

// Clock returns the staged clock value.
func (r *Revertible) Clock(kind ClockKind) int64 {
	return r.clocks[kind]
}

// JustPassedSeconds advances the named clock to now and returns the
// elapsed seconds. A clock that never ran starts counting from now. Time
// moving backwards is fatal.
func (r *Revertible) JustPassedSeconds(kind ClockKind, now int64) (uint64, error) {
	last := r.clocks[kind]
	if last == 0 {
		r.clocks[kind] = now
		return 0, nil
	}
	if now < last {
		return 0, types.ErrInvalidArgument("clock moved backwards")
	}
	r.clocks[kind] = now
	return uint64(now - last), nil
}

// FundingFactorPerSecond returns the staged funding rate.
func (r *Revertible) FundingFactorPerSecond() *num.Int {
	return r.funding.Clone()
}

func (r *Revertible) SetFundingFactorPerSecond(f *num.Int) {
	r.funding = f.Clone()
}

// TotalSupply returns the staged market token supply.
func (r *Revertible) TotalSupply() *num.Uint {
	return r.supply.Clone()
}

// Mint adds to the staged market token supply.
func (r *Revertible) Mint(amount *num.Uint) error {
	next, overflow := num.UintZero().AddOverflow(r.supply, amount)
	if overflow {
		return types.ErrOverflow
	}
	r.supply = next
	return nil
}

// Burn removes from the staged market token supply.
func (r *Revertible) Burn(amount *num.Uint) error {
	next, underflow := num.UintZero().SubOverflow(r.supply, amount)
	if underflow {
		return types.ErrUnderflow
	}
	r.supply = next
	return nil
}

// NextTradeID increments the staged trade counter and returns it.
func (r *Revertible) NextTradeID() uint64 {
	r.tradeCount++
	return r.tradeCount
}

// TradeCount returns the staged trade counter.
func (r *Revertible) TradeCount() uint64 {
	return r.tradeCount
}

// Balance returns the staged bank balance for a token.
func (r *Revertible) Balance(token string) *num.Uint {
	if b, ok := r.balances[token]; ok {
		return b.Clone()
	}
	return num.UintZero()
}

// RecordTransferredIn stages a token transfer into the market vault.
func (r *Revertible) RecordTransferredIn(token string, amount *num.Uint) error {
	next, overflow := num.UintZero().AddOverflow(r.Balance(token), amount)
	if overflow {
		return types.ErrOverflow
	}
	r.balances[token] = next
	return nil
}

// RecordTransferredOut stages a token transfer out of the market vault.
func (r *Revertible) RecordTransferredOut(token string, amount *num.Uint) error {
	next, underflow := num.UintZero().SubOverflow(r.Balance(token), amount)
	if underflow {
		return types.ErrUnderflow
	}
	r.balances[token] = next
	return nil
}

// AddClaimableCollateral stages an amount withheld for a position owner.
func (r *Revertible) AddClaimableCollateral(token string, amount *num.Uint) error {
	next, overflow := num.UintZero().AddOverflow(r.ClaimableCollateral(token), amount)
	if overflow {
		return types.ErrOverflow
	}
	r.claimable[token] = next
	return nil
}

// ClaimableCollateral returns the staged claimable amount for a token.
func (r *Revertible) ClaimableCollateral(token string) *num.Uint {
	if b, ok := r.claimable[token]; ok {
		return b.Clone()
	}
	return num.UintZero()
}

// OpenInterest returns the staged total usd open interest of one position
// side across both collateral tokens.
func (r *Revertible) OpenInterest(isLong bool) *num.Uint {
	if isLong {
		return r.pools[PoolOpenInterestForLong].Total()
	}
	return r.pools[PoolOpenInterestForShort].Total()
}

// OpenInterestInTokens returns the staged index token open interest of one
// position side across both collateral tokens.
func (r *Revertible) OpenInterestInTokens(isLong bool) *num.Uint {
	if isLong {
		return r.pools[PoolOpenInterestInTokensForLong].Total()
	}
	return r.pools[PoolOpenInterestInTokensForShort].Total()
}

// CumulativeBorrowingFactor returns the staged cumulative borrowing factor
// for one position side.
func (r *Revertible) CumulativeBorrowingFactor(isLong bool) *num.Uint {
	return r.pools[PoolBorrowingFactor].Amount(isLong)
}

// openInterestPoolKind maps a position side to its usd open interest pool.
func openInterestPoolKind(isLong bool) PoolKind {
	if isLong {
		return PoolOpenInterestForLong
	}
	return PoolOpenInterestForShort
}

// openInterestInTokensPoolKind maps a position side to its token open
// interest pool.
func openInterestInTokensPoolKind(isLong bool) PoolKind {
	if isLong {
		return PoolOpenInterestInTokensForLong
	}
	return PoolOpenInterestInTokensForShort
}

// FundingAmountPerSizePoolKind maps a position side to its payer funding
// accumulator pool.
func FundingAmountPerSizePoolKind(isLong bool) PoolKind {
	if isLong {
		return PoolFundingAmountPerSizeForLong
	}
	return PoolFundingAmountPerSizeForShort
}

// ClaimableFundingAmountPerSizePoolKind maps a position side to its
// receiver funding accumulator pool.
func ClaimableFundingAmountPerSizePoolKind(isLong bool) PoolKind {
	if isLong {
		return PoolClaimableFundingAmountPerSizeForLong
	}
	return PoolClaimableFundingAmountPerSizeForShort
}

// CollateralSumPoolKind maps a position side to its collateral sum pool.
func CollateralSumPoolKind(isLong bool) PoolKind {
	if isLong {
		return PoolCollateralSumForLong
	}
	return PoolCollateralSumForShort
}

// OpenInterestPoolKind is the exported mapping used by the action layer.
func OpenInterestPoolKind(isLong bool) PoolKind {
	return openInterestPoolKind(isLong)
}

// OpenInterestInTokensPoolKind is the exported mapping used by the action
// layer.
func OpenInterestInTokensPoolKind(isLong bool) PoolKind {
	return openInterestInTokensPoolKind(isLong)
}

// UpdateOpenInterest applies signed size deltas to the open interest pools
// for one position side, slotted by the position collateral token.
func (r *Revertible) UpdateOpenInterest(isLong, isCollateralTokenLong bool, sizeDeltaUsd, sizeDeltaInTokens *num.Int) error {
	if err := r.ApplyDeltaToPool(openInterestPoolKind(isLong), isCollateralTokenLong, sizeDeltaUsd); err != nil {
		return err
	}
	return r.ApplyDeltaToPool(openInterestInTokensPoolKind(isLong), isCollateralTokenLong, sizeDeltaInTokens)
}
