package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is the sealed union of everything the core announces to
// subscribers. Each kind carries only the fields relevant to it.
type Event interface{ isEvent() }

type BidAccepted struct {
	LotID     uuid.UUID
	LotNumber int
	BidID     uuid.UUID
	Bidder    uuid.UUID
	Amount    decimal.Decimal
	Kind      BidKind
	BidCount  int
}

type BidRejected struct {
	LotID         uuid.UUID
	LotNumber     int
	Bidder        uuid.UUID
	Amount        decimal.Decimal
	MinAcceptable decimal.Decimal
	Reason        string
}

type CurrentPriceChanged struct {
	LotID     uuid.UUID
	LotNumber int
	Price     decimal.Decimal
	Leader    uuid.UUID
	BidCount  int
}

type TimerReset struct {
	LotID            uuid.UUID
	LotNumber        int
	RemainingSeconds int
}

type LotSold struct {
	LotID       uuid.UUID
	LotNumber   int
	HammerPrice decimal.Decimal
	Winner      uuid.UUID
	ReserveMet  bool
}

type LotUnsold struct {
	LotID     uuid.UUID
	LotNumber int
	Reason    string
}

type LotEnded struct {
	LotID     uuid.UUID
	LotNumber int
	Reason    string
}

type LotChanged struct {
	AuctionID   uuid.UUID
	PreviousLot int
	NextLot     int
}

type AuctionStarted struct {
	AuctionID uuid.UUID
	FirstLot  int
}

type AuctionEnded struct {
	AuctionID uuid.UUID
}

type AuctionExtended struct {
	AuctionID uuid.UUID
	Minutes   int
	Reason    string
	NewEnd    time.Time
}

type AuctionCancelled struct {
	AuctionID uuid.UUID
	Reason    string
}

func (BidAccepted) isEvent()         {}
func (BidRejected) isEvent()         {}
func (CurrentPriceChanged) isEvent() {}
func (TimerReset) isEvent()          {}
func (LotSold) isEvent()             {}
func (LotUnsold) isEvent()           {}
func (LotEnded) isEvent()            {}
func (LotChanged) isEvent()          {}
func (AuctionStarted) isEvent()      {}
func (AuctionEnded) isEvent()        {}
func (AuctionExtended) isEvent()     {}
func (AuctionCancelled) isEvent()    {}
