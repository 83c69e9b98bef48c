package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidSchedule = errors.New("auction end time must be after start time")
var ErrVehicleNotFound = errors.New("vehicle not found")

type AuctionStatus string

const (
	AuctionDraft     AuctionStatus = "draft"
	AuctionScheduled AuctionStatus = "scheduled"
	AuctionRunning   AuctionStatus = "running"
	AuctionEnded     AuctionStatus = "ended"
	AuctionCancelled AuctionStatus = "cancelled"
	AuctionSettled   AuctionStatus = "settled"
)

// Terminal reports whether no further lifecycle transitions are possible.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionCancelled || s == AuctionSettled
}

// Auction is the durable record of a scheduled sale. The engine only
// mutates Status, EndsAt and CancelReason once it takes ownership.
type Auction struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string          `gorm:"size:200" json:"name"`
	LocationID   uuid.UUID       `gorm:"type:uuid" json:"location_id"`
	StartsAt     time.Time       `json:"starts_at"`
	EndsAt       time.Time       `json:"ends_at"`
	Status       AuctionStatus   `gorm:"size:20;index" json:"status"`
	MinIncrement decimal.Decimal `gorm:"type:numeric(14,2)" json:"min_increment"`
	LotTimerSec  int             `json:"lot_timer_sec"`
	Currency     string          `gorm:"size:3" json:"currency"`
	CancelReason string          `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (a *Auction) Validate() error {
	if !a.EndsAt.After(a.StartsAt) {
		return ErrInvalidSchedule
	}
	if !a.MinIncrement.IsPositive() {
		return errors.New("minimum increment must be positive")
	}
	if a.LotTimerSec <= 0 {
		return errors.New("per-lot timer must be positive")
	}
	return nil
}

// Lot is the durable record of one vehicle's run through an auction.
// CurrentPrice, BidCount, status and hammer fields are written through
// by the lot owner on every committed transition.
type Lot struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AuctionID    uuid.UUID       `gorm:"type:uuid;index" json:"auction_id"`
	VehicleID    uuid.UUID       `gorm:"type:uuid" json:"vehicle_id"`
	LotNumber    int             `gorm:"index:idx_auction_lot,unique,composite:auction" json:"lot_number"`
	Sequence     int             `json:"sequence"`
	OpeningPrice decimal.Decimal `gorm:"type:numeric(14,2)" json:"opening_price"`
	ReservePrice decimal.Decimal `gorm:"type:numeric(14,2)" json:"reserve_price"`
	HasReserve   bool            `json:"has_reserve"`
	CurrentPrice decimal.Decimal `gorm:"type:numeric(14,2)" json:"current_price"`
	HammerPrice  decimal.Decimal `gorm:"type:numeric(14,2)" json:"hammer_price"`
	HasHammer    bool            `json:"has_hammer"`
	ReserveMet   bool            `json:"reserve_met"`
	Status       string          `gorm:"size:20;index" json:"status"`
	WinnerID     uuid.UUID       `gorm:"type:uuid" json:"winner_id"`
	BidCount     int             `json:"bid_count"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Bid rows are append-only; only Status ever changes after insert.
type Bid struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	LotID    uuid.UUID       `gorm:"type:uuid;index" json:"lot_id"`
	BidderID uuid.UUID       `gorm:"type:uuid;index" json:"bidder_id"`
	Amount   decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	Kind     string          `gorm:"size:16" json:"kind"`
	Status   string          `gorm:"size:16" json:"status"`
	PlacedAt time.Time       `json:"placed_at"`
}

// ProxyRegistration is the standing "bid up to Ceiling" instruction,
// unique per (lot, bidder). Re-registering replaces the row.
type ProxyRegistration struct {
	LotID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"lot_id"`
	BidderID     uuid.UUID       `gorm:"type:uuid;primaryKey" json:"bidder_id"`
	Ceiling      decimal.Decimal `gorm:"type:numeric(14,2)" json:"ceiling"`
	Seq          int             `json:"seq"`
	RegisteredAt time.Time       `json:"registered_at"`
}

// Vehicle is read-only reference data owned by an external service.
type Vehicle struct {
	ID      uuid.UUID `json:"id"`
	VIN     string    `json:"vin"`
	Make    string    `json:"make"`
	Model   string    `json:"model"`
	Year    int       `json:"year"`
	Mileage int       `json:"mileage"`
}

// VehicleDirectory is the lookup boundary to the vehicle service.
type VehicleDirectory interface {
	Vehicle(ctx context.Context, id uuid.UUID) (*Vehicle, error)
}

// StaticDirectory serves a fixed vehicle set; used in tests and when
// running without the external catalogue.
type StaticDirectory map[uuid.UUID]*Vehicle

func (d StaticDirectory) Vehicle(_ context.Context, id uuid.UUID) (*Vehicle, error) {
	v, ok := d[id]
	if !ok {
		return nil, ErrVehicleNotFound
	}
	return v, nil
}

// LoadDirectory reads a JSON vehicle list into a StaticDirectory.
func LoadDirectory(path string) (StaticDirectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vehicle catalog: %w", err)
	}
	var vehicles []Vehicle
	if err := json.Unmarshal(raw, &vehicles); err != nil {
		return nil, fmt.Errorf("parse vehicle catalog: %w", err)
	}
	dir := make(StaticDirectory, len(vehicles))
	for i := range vehicles {
		dir[vehicles[i].ID] = &vehicles[i]
	}
	return dir, nil
}
