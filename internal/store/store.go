package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/domain"
)

var ErrNotFound = errors.New("record not found")

// ErrPersistenceFailure wraps any write error surfaced to callers; the
// in-memory transition that triggered the write is rolled back.
var ErrPersistenceFailure = errors.New("persistence failure")

// Transition bundles every row one committed lot transition writes.
// The store applies it atomically: either all rows land or none do, so
// a rolled-back in-memory transition never leaves orphan bid rows.
type Transition struct {
	Lot         *domain.Lot
	Bids        []*domain.Bid
	SaveProxy   *domain.ProxyRegistration
	DeleteProxy *ProxyKey
	BidStatus   *BidStatusChange
}

type ProxyKey struct {
	LotID    uuid.UUID
	BidderID uuid.UUID
}

type BidStatusChange struct {
	BidID  uuid.UUID
	Status string
}

// Store is the durable write-through boundary. The engine treats it as
// the system of record, not a cache: a committed in-memory transition
// always has a matching row, and the lookup methods rebuild actor
// state at boot.
type Store interface {
	SaveAuction(ctx context.Context, a *domain.Auction) error
	Auction(ctx context.Context, id uuid.UUID) (*domain.Auction, error)
	ListAuctions(ctx context.Context) ([]domain.Auction, error)

	SaveLot(ctx context.Context, l *domain.Lot) error
	LotsByAuction(ctx context.Context, auctionID uuid.UUID) ([]domain.Lot, error)

	SaveTransition(ctx context.Context, t Transition) error

	BidsByLot(ctx context.Context, lotID uuid.UUID) ([]domain.Bid, error)
	ProxiesByLot(ctx context.Context, lotID uuid.UUID) ([]domain.ProxyRegistration, error)
}
