package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/domain"
)

func TestMemory_AuctionRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.Auction(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	a := domain.Auction{ID: uuid.New(), Name: "test", Status: domain.AuctionScheduled}
	if err := m.SaveAuction(ctx, &a); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got, err := m.Auction(ctx, a.ID)
	if err != nil || got.Name != "test" {
		t.Fatalf("round trip failed: %+v err=%v", got, err)
	}

	// Saving again overwrites in place.
	a.Status = domain.AuctionRunning
	_ = m.SaveAuction(ctx, &a)
	got, _ = m.Auction(ctx, a.ID)
	if got.Status != domain.AuctionRunning {
		t.Fatalf("want updated status, got %s", got.Status)
	}
}

func TestMemory_LotsSortedBySequence(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	auctionID := uuid.New()

	for _, seq := range []int{3, 1, 2} {
		l := domain.Lot{ID: uuid.New(), AuctionID: auctionID, LotNumber: seq, Sequence: seq}
		if err := m.SaveLot(ctx, &l); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}

	lots, err := m.LotsByAuction(ctx, auctionID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(lots) != 3 {
		t.Fatalf("want 3 lots, got %d", len(lots))
	}
	for i, l := range lots {
		if l.Sequence != i+1 {
			t.Fatalf("want run-order listing, got %+v", lots)
		}
	}
}

func TestMemory_BidsKeepInsertionOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	lotID := uuid.New()

	first := domain.Bid{ID: uuid.New(), LotID: lotID, Amount: decimal.RequireFromString("1100"), Status: "placed"}
	second := domain.Bid{ID: uuid.New(), LotID: lotID, Amount: decimal.RequireFromString("1200"), Status: "placed"}
	_ = m.SaveTransition(ctx, Transition{Bids: []*domain.Bid{&first}})
	_ = m.SaveTransition(ctx, Transition{Bids: []*domain.Bid{&second}})
	_ = m.SaveTransition(ctx, Transition{Bids: []*domain.Bid{{ID: uuid.New(), LotID: uuid.New()}}}) // other lot

	bids, err := m.BidsByLot(ctx, lotID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(bids) != 2 || bids[0].ID != first.ID || bids[1].ID != second.ID {
		t.Fatalf("want insertion order [first second], got %+v", bids)
	}

	if err := m.SaveTransition(ctx, Transition{BidStatus: &BidStatusChange{BidID: second.ID, Status: "retracted"}}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	bids, _ = m.BidsByLot(ctx, lotID)
	if bids[1].Status != "retracted" {
		t.Fatalf("want retracted, got %s", bids[1].Status)
	}

	if err := m.SaveTransition(ctx, Transition{BidStatus: &BidStatusChange{BidID: uuid.New(), Status: "retracted"}}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMemory_ProxyLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	lotID, bidder := uuid.New(), uuid.New()

	p := domain.ProxyRegistration{LotID: lotID, BidderID: bidder, Ceiling: decimal.RequireFromString("1500"), Seq: 1}
	if err := m.SaveTransition(ctx, Transition{SaveProxy: &p}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got, err := m.ProxiesByLot(ctx, lotID)
	if err != nil || len(got) != 1 || got[0].BidderID != bidder {
		t.Fatalf("want one registration, got %+v err=%v", got, err)
	}

	key := &ProxyKey{LotID: lotID, BidderID: bidder}
	if err := m.SaveTransition(ctx, Transition{DeleteProxy: key}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// Deleting twice is a no-op, matching the upsert semantics.
	if err := m.SaveTransition(ctx, Transition{DeleteProxy: key}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got, _ := m.ProxiesByLot(ctx, lotID); len(got) != 0 {
		t.Fatalf("want empty after delete, got %+v", got)
	}
}

func TestMemory_TransitionIsAllOrNothing(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	lotID := uuid.New()

	// A transition referencing a missing bid row fails before writing
	// anything, including the new bid it carries.
	bad := Transition{
		Lot:       &domain.Lot{ID: lotID, Status: "active"},
		Bids:      []*domain.Bid{{ID: uuid.New(), LotID: lotID, Status: "placed"}},
		BidStatus: &BidStatusChange{BidID: uuid.New(), Status: "retracted"},
	}
	if err := m.SaveTransition(ctx, bad); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if bids, _ := m.BidsByLot(ctx, lotID); len(bids) != 0 {
		t.Fatalf("failed transition wrote bid rows: %+v", bids)
	}
	if lots, _ := m.LotsByAuction(ctx, uuid.Nil); len(lots) != 0 {
		t.Fatalf("failed transition wrote the lot row: %+v", lots)
	}
}
