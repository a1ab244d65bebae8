package types

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDeposit signals a deposit with no non-zero input side.
	ErrEmptyDeposit = errors.New("empty deposit")
	// ErrEmptyWithdrawal signals a withdrawal of zero market tokens.
	ErrEmptyWithdrawal = errors.New("empty withdrawal")
	// ErrEmptySwap signals a swap with a zero input amount or no path.
	ErrEmptySwap = errors.New("empty swap")
	// ErrOverflow signals a raw integer overflow in a pool or supply update.
	ErrOverflow = errors.New("overflow")
	// ErrUnderflow signals a raw integer underflow in a pool or supply update.
	ErrUnderflow = errors.New("underflow")
	// ErrConvert signals an unsigned/signed conversion failure.
	ErrConvert = errors.New("convert value error")
	// ErrInsufficientFundsToPayForCosts signals the collateral processor ran
	// out of sources while an insolvent close was not allowed.
	ErrInsufficientFundsToPayForCosts = errors.New("insufficient funds to pay for costs")
	// ErrOrderNotFulfillableAtAcceptablePrice signals the execution price was
	// worse than the acceptable price on the order.
	ErrOrderNotFulfillableAtAcceptablePrice = errors.New("order not fulfillable at acceptable price")
	// ErrInvalidPosition signals position fields that do not satisfy the
	// position invariants.
	ErrInvalidPosition = errors.New("invalid position")
	// ErrActionAlreadyExecuted signals an action being executed twice.
	ErrActionAlreadyExecuted = errors.New("action already executed")
	// ErrOverlayAlreadyCommitted signals a double commit on a revertible
	// market overlay.
	ErrOverlayAlreadyCommitted = errors.New("overlay already committed")
)

// ComputationError reports an arithmetic failure in a named step.
type ComputationError struct {
	Op string
}

func (e ComputationError) Error() string {
	return fmt.Sprintf("computation error: %s", e.Op)
}

// ErrComputation wraps the named step into a ComputationError.
func ErrComputation(op string) error {
	return ComputationError{Op: op}
}

// InvalidArgumentError reports a caller visible precondition violation.
type InvalidArgumentError struct {
	Msg string
}

func (e InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Msg)
}

func ErrInvalidArgument(msg string) error {
	return InvalidArgumentError{Msg: msg}
}

// InvalidPoolValueError reports a pool value that was required to be
// positive but was not.
type InvalidPoolValueError struct {
	Msg string
}

func (e InvalidPoolValueError) Error() string {
	return fmt.Sprintf("invalid pool value: %s", e.Msg)
}

func ErrInvalidPoolValue(msg string) error {
	return InvalidPoolValueError{Msg: msg}
}

// PnlFactorExceededError reports a PnL factor cap validation failure.
type PnlFactorExceededError struct {
	Kind   PnlFactorKind
	IsLong bool
}

func (e PnlFactorExceededError) Error() string {
	return fmt.Sprintf("pnl factor (%s) exceeded for %s", e.Kind, sideString(e.IsLong))
}

// MaxPoolAmountExceededError reports a pool amount cap breach after an
// action applied its deltas.
type MaxPoolAmountExceededError struct {
	IsLong bool
}

func (e MaxPoolAmountExceededError) Error() string {
	return fmt.Sprintf("max pool amount exceeded for %s side", sideString(e.IsLong))
}

// MaxPoolValueExceededError reports a deposit pushing a pool side past its
// maximum value for deposits.
type MaxPoolValueExceededError struct {
	IsLong bool
}

func (e MaxPoolValueExceededError) Error() string {
	return fmt.Sprintf("max pool value for deposit exceeded for %s side", sideString(e.IsLong))
}

// MaxOpenInterestExceededError reports an increase pushing a side past its
// open interest cap.
type MaxOpenInterestExceededError struct {
	IsLong bool
}

func (e MaxOpenInterestExceededError) Error() string {
	return fmt.Sprintf("max open interest exceeded for %s side", sideString(e.IsLong))
}

// InsufficientReserveError reports a reserve validation failure.
type InsufficientReserveError struct {
	Reserved string
	Max      string
}

func (e InsufficientReserveError) Error() string {
	return fmt.Sprintf("insufficient reserve: reserved %s > max %s", e.Reserved, e.Max)
}

func sideString(isLong bool) string {
	if isLong {
		return "long"
	}
	return "short"
}
