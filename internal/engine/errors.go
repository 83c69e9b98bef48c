package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrLotNotActive = errors.New("lot is not active")
var ErrInvalidLotConfig = errors.New("lot requires a lot number and a positive opening price")
var ErrInvalidTransition = errors.New("transition not allowed from current lot status")
var ErrHammerAlreadySet = errors.New("hammer price is already set")
var ErrReserveLocked = errors.New("reserve can only change before the lot goes active")
var ErrProxyCeilingTooLow = errors.New("proxy ceiling must exceed the current price")
var ErrProxyStartAboveCeiling = errors.New("proxy start amount exceeds its ceiling")
var ErrProxyNotFound = errors.New("no active proxy registration for this bidder")
var ErrBidNotFound = errors.New("bid not found in ledger")
var ErrBidNotRetractable = errors.New("bid is not in placed status")
var ErrReasonRequired = errors.New("a reason is required")
var ErrUnsupportedCommand = errors.New("unsupported command")

// BidTooLowError is the expected, high-frequency rejection under
// contention. It carries the corrected minimum so the caller can retry
// immediately.
type BidTooLowError struct {
	MinAcceptable decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid below minimum, need at least %s", e.MinAcceptable)
}
