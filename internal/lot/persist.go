package lot

import (
	"context"
	"time"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/domain"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/engine"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/store"
)

const writeTimeout = 5 * time.Second

// persist writes the transition through to the durable store as one
// atomic unit. Called before the in-memory commit; any error here
// aborts the transition and leaves no rows behind.
func (l *Lot) persist(cmd engine.Command, ns engine.State, evs []engine.Event) error {
	t := store.Transition{Lot: Record(ns)}

	for _, ev := range evs {
		ba, ok := ev.(engine.BidAccepted)
		if !ok {
			continue
		}
		t.Bids = append(t.Bids, &domain.Bid{
			ID:       ba.BidID,
			LotID:    ns.LotID,
			BidderID: ba.Bidder,
			Amount:   ba.Amount,
			Kind:     string(ba.Kind),
			Status:   string(engine.BidPlaced),
			PlacedAt: time.Now().UTC(),
		})
	}

	switch cmd.Type {
	case engine.CmdRegisterProxy:
		if reg, ok := ns.ProxyFor(cmd.Bidder); ok {
			t.SaveProxy = &domain.ProxyRegistration{
				LotID:        ns.LotID,
				BidderID:     reg.Bidder,
				Ceiling:      reg.Ceiling,
				Seq:          reg.Seq,
				RegisteredAt: reg.RegisteredAt,
			}
		}
	case engine.CmdCancelProxy:
		t.DeleteProxy = &store.ProxyKey{LotID: ns.LotID, BidderID: cmd.Bidder}
	case engine.CmdRetractBid:
		t.BidStatus = &store.BidStatusChange{BidID: cmd.BidID, Status: string(engine.BidRetracted)}
	case engine.CmdInvalidateBid:
		t.BidStatus = &store.BidStatusChange{BidID: cmd.BidID, Status: string(engine.BidInvalidated)}
	}

	ctx, cancel := context.WithTimeout(l.ctx, writeTimeout)
	defer cancel()
	return l.store.SaveTransition(ctx, t)
}

// Record flattens engine state into its durable row.
func Record(s engine.State) *domain.Lot {
	return &domain.Lot{
		ID:           s.LotID,
		AuctionID:    s.AuctionID,
		VehicleID:    s.VehicleID,
		LotNumber:    s.LotNumber,
		Sequence:     s.Sequence,
		OpeningPrice: s.OpeningPrice,
		ReservePrice: s.ReservePrice,
		HasReserve:   s.HasReserve,
		CurrentPrice: s.CurrentPrice(),
		HammerPrice:  s.HammerPrice,
		HasHammer:    s.HasHammer,
		ReserveMet:   s.ReserveMet,
		Status:       string(s.Status),
		WinnerID:     s.WinnerID,
		BidCount:     s.BidCount(),
	}
}
