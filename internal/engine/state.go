package engine

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LotStatus string

const (
	StatusPending  LotStatus = "pending"
	StatusPrepared LotStatus = "prepared"
	StatusActive   LotStatus = "active"
	StatusEnded    LotStatus = "ended"
	StatusSold     LotStatus = "sold"
	StatusUnsold   LotStatus = "unsold"
	StatusRemoved  LotStatus = "removed"
)

// Closed reports whether the lot has left the bidding lifecycle.
func (s LotStatus) Closed() bool {
	return s == StatusEnded || s == StatusSold || s == StatusUnsold || s == StatusRemoved
}

type BidKind string

const (
	KindLive   BidKind = "live"
	KindPreBid BidKind = "pre"
	KindProxy  BidKind = "proxy"
)

type BidStatus string

const (
	BidPlaced      BidStatus = "placed"
	BidInvalidated BidStatus = "invalidated"
	BidRetracted   BidStatus = "retracted"
)

type Bid struct {
	ID       uuid.UUID
	Bidder   uuid.UUID
	Amount   decimal.Decimal
	Kind     BidKind
	Status   BidStatus
	PlacedAt time.Time
}

// ProxyRegistration is a standing auto-bid instruction. Seq orders
// registrations so equal ceilings resolve to the earliest one.
type ProxyRegistration struct {
	Bidder       uuid.UUID
	Ceiling      decimal.Decimal
	Seq          int
	RegisteredAt time.Time
}

// Rules is the read-only auction-level configuration a lot runs under.
type Rules struct {
	MinIncrement decimal.Decimal
	TimerSeconds int
	Currency     string
}

// State is one lot's complete bidding state. Apply never mutates its
// receiver; callers commit the returned copy or discard it.
type State struct {
	LotID        uuid.UUID
	AuctionID    uuid.UUID
	VehicleID    uuid.UUID
	LotNumber    int
	Sequence     int
	Status       LotStatus
	OpeningPrice decimal.Decimal
	ReservePrice decimal.Decimal
	HasReserve   bool
	HammerPrice  decimal.Decimal
	HasHammer    bool
	ReserveMet   bool
	WinnerID     uuid.UUID
	Ledger       Ledger
	Proxies      []ProxyRegistration
	PreBids      []Bid
	NextProxySeq int
	Rules        Rules
}

// CurrentPrice is the highest countable bid, or the opening price when
// the ledger holds none.
func (s State) CurrentPrice() decimal.Decimal {
	return s.Ledger.CurrentPrice(s.OpeningPrice)
}

// Leader returns the bidder holding the current price, if any.
func (s State) Leader() (uuid.UUID, bool) {
	b, ok := s.Ledger.LeaderBid()
	if !ok {
		return uuid.Nil, false
	}
	return b.Bidder, true
}

func (s State) BidCount() int { return s.Ledger.Count() }

// MinAcceptable is the smallest amount a new bid must reach.
func (s State) MinAcceptable() decimal.Decimal {
	return s.CurrentPrice().Add(s.Rules.MinIncrement)
}

// ProxyFor returns the active registration for a bidder, if any.
func (s State) ProxyFor(bidder uuid.UUID) (ProxyRegistration, bool) {
	for _, reg := range s.Proxies {
		if reg.Bidder == bidder {
			return reg, true
		}
	}
	return ProxyRegistration{}, false
}

func (s State) clone() State {
	ns := s
	ns.Ledger.Entries = slices.Clone(s.Ledger.Entries)
	ns.Proxies = slices.Clone(s.Proxies)
	ns.PreBids = slices.Clone(s.PreBids)
	return ns
}
