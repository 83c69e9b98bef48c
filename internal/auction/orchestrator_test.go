package auction

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/domain"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/engine"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/lot"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/store"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rec := domain.Auction{
		ID:           uuid.New(),
		Name:         "Wednesday sale",
		StartsAt:     time.Now(),
		EndsAt:       time.Now().Add(2 * time.Hour),
		Status:       domain.AuctionScheduled,
		MinIncrement: d("100"),
		LotTimerSec:  60,
		Currency:     "USD",
	}
	return New(ctx, rec, store.NewMemory(), zap.NewNop())
}

func tell(t *testing.T, o *Orchestrator, build func(chan error) Msg) error {
	t.Helper()
	reply := make(chan error, 1)
	o.Inbox() <- build(reply)
	select {
	case err := <-reply:
		return err
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for orchestrator reply")
		return nil // unreachable
	}
}

func view(t *testing.T, o *Orchestrator) View {
	t.Helper()
	reply := make(chan View, 1)
	o.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func addPreparedLot(t *testing.T, o *Orchestrator, number, seq int) {
	t.Helper()
	err := tell(t, o, func(reply chan error) Msg {
		return CreateLot{
			Config: LotConfig{VehicleID: uuid.New(), LotNumber: number, Sequence: seq, OpeningPrice: d("1000")},
			Reply:  reply,
		}
	})
	require.NoError(t, err)

	reply := make(chan lot.Result, 1)
	o.Inbox() <- LotOp{LotNumber: number, Cmd: engine.Command{Type: engine.CmdPrepare}, Reply: reply}
	res := <-reply
	require.NoError(t, res.Err)
	require.Equal(t, engine.StatusPrepared, res.Status)
}

func TestStartRequiresPreparedLot(t *testing.T) {
	o := newTestOrchestrator(t)

	err := tell(t, o, func(r chan error) Msg { return Start{Reply: r} })
	require.ErrorIs(t, err, ErrNotReadyToStart)

	// An unprepared lot is not enough either.
	err = tell(t, o, func(r chan error) Msg {
		return CreateLot{
			Config: LotConfig{VehicleID: uuid.New(), LotNumber: 1, Sequence: 1, OpeningPrice: d("1000")},
			Reply:  r,
		}
	})
	require.NoError(t, err)
	err = tell(t, o, func(r chan error) Msg { return Start{Reply: r} })
	require.ErrorIs(t, err, ErrNotReadyToStart)
}

func TestAuctionRunsLotsInSequence(t *testing.T) {
	o := newTestOrchestrator(t)
	addPreparedLot(t, o, 1, 1)
	addPreparedLot(t, o, 2, 2)

	require.NoError(t, tell(t, o, func(r chan error) Msg { return Start{Reply: r} }))
	require.Equal(t, 1, view(t, o).ActiveLot)
	require.Equal(t, domain.AuctionRunning, view(t, o).Record.Status)

	// Advancing closes lot 1; the closure feedback brings up lot 2.
	require.NoError(t, tell(t, o, func(r chan error) Msg { return Advance{Reply: r} }))
	require.Eventually(t, func() bool { return view(t, o).ActiveLot == 2 }, time.Second, 10*time.Millisecond)

	// Closing the last lot ends the auction.
	require.NoError(t, tell(t, o, func(r chan error) Msg { return Advance{Reply: r} }))
	require.Eventually(t, func() bool {
		v := view(t, o)
		return v.ActiveLot == 0 && v.Record.Status == domain.AuctionEnded
	}, time.Second, 10*time.Millisecond)
}

func TestJumpToLaterLot(t *testing.T) {
	o := newTestOrchestrator(t)
	addPreparedLot(t, o, 1, 1)
	addPreparedLot(t, o, 2, 2)
	addPreparedLot(t, o, 3, 3)

	require.NoError(t, tell(t, o, func(r chan error) Msg { return Start{Reply: r} }))
	require.Equal(t, 1, view(t, o).ActiveLot)

	require.NoError(t, tell(t, o, func(r chan error) Msg { return Jump{LotNumber: 3, Reply: r} }))
	require.Eventually(t, func() bool { return view(t, o).ActiveLot == 3 }, time.Second, 10*time.Millisecond)

	err := tell(t, o, func(r chan error) Msg { return Jump{LotNumber: 99, Reply: r} })
	require.ErrorIs(t, err, ErrLotNotFound)
}

func TestJumpRequiresPreparedTarget(t *testing.T) {
	o := newTestOrchestrator(t)
	addPreparedLot(t, o, 1, 1)

	// Lot 2 exists but was never prepared.
	require.NoError(t, tell(t, o, func(r chan error) Msg {
		return CreateLot{
			Config: LotConfig{VehicleID: uuid.New(), LotNumber: 2, Sequence: 2, OpeningPrice: d("500")},
			Reply:  r,
		}
	}))
	require.NoError(t, tell(t, o, func(r chan error) Msg { return Start{Reply: r} }))
	require.Equal(t, 1, view(t, o).ActiveLot)

	err := tell(t, o, func(r chan error) Msg { return Jump{LotNumber: 2, Reply: r} })
	require.ErrorIs(t, err, ErrLotUnavailable)

	// The active lot was not disturbed by the rejected jump.
	require.Equal(t, 1, view(t, o).ActiveLot)
}

func TestRestoreRevivesSavedLots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mem := store.NewMemory()
	rec := domain.Auction{
		ID:           uuid.New(),
		Name:         "restart sale",
		StartsAt:     time.Now(),
		EndsAt:       time.Now().Add(2 * time.Hour),
		Status:       domain.AuctionScheduled,
		MinIncrement: d("100"),
		LotTimerSec:  60,
		Currency:     "USD",
	}
	require.NoError(t, mem.SaveAuction(ctx, &rec))

	first := New(ctx, rec, mem, zap.NewNop())
	addPreparedLot(t, first, 1, 1)
	require.NoError(t, tell(t, first, func(r chan error) Msg { return Start{Reply: r} }))

	reply := make(chan lot.Result, 1)
	first.Inbox() <- LotOp{
		LotNumber: 1,
		Cmd:       engine.Command{Type: engine.CmdSubmitBid, Bidder: uuid.New(), Amount: d("1100"), Kind: engine.KindLive},
		Reply:     reply,
	}
	require.NoError(t, (<-reply).Err)
	first.Inbox() <- Shutdown{}

	saved, err := mem.Auction(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AuctionRunning, saved.Status)

	second, err := Restore(ctx, *saved, mem, zap.NewNop())
	require.NoError(t, err)
	v := view(t, second)
	require.Equal(t, 1, v.NumLots)
	require.Equal(t, 1, v.ActiveLot)

	// The pre-restart ledger survived: the old price still gates new
	// bids, and outbidding it works.
	reply = make(chan lot.Result, 1)
	second.Inbox() <- LotOp{
		LotNumber: 1,
		Cmd:       engine.Command{Type: engine.CmdSubmitBid, Bidder: uuid.New(), Amount: d("1100"), Kind: engine.KindLive},
		Reply:     reply,
	}
	var tooLow *engine.BidTooLowError
	require.ErrorAs(t, (<-reply).Err, &tooLow)

	reply = make(chan lot.Result, 1)
	second.Inbox() <- LotOp{
		LotNumber: 1,
		Cmd:       engine.Command{Type: engine.CmdSubmitBid, Bidder: uuid.New(), Amount: d("1200"), Kind: engine.KindLive},
		Reply:     reply,
	}
	require.NoError(t, (<-reply).Err)
}

func TestCancelRequiresReasonAndClosesActiveLot(t *testing.T) {
	o := newTestOrchestrator(t)
	addPreparedLot(t, o, 1, 1)
	require.NoError(t, tell(t, o, func(r chan error) Msg { return Start{Reply: r} }))

	err := tell(t, o, func(r chan error) Msg { return Cancel{Reply: r} })
	require.ErrorIs(t, err, engine.ErrReasonRequired)

	require.NoError(t, tell(t, o, func(r chan error) Msg { return Cancel{Reason: "venue flooded", Reply: r} }))
	require.Eventually(t, func() bool {
		v := view(t, o)
		return v.Record.Status == domain.AuctionCancelled && v.ActiveLot == 0
	}, time.Second, 10*time.Millisecond)

	// Terminal means terminal.
	err = tell(t, o, func(r chan error) Msg { return Cancel{Reason: "again", Reply: r} })
	require.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestExtendMovesAuctionEnd(t *testing.T) {
	o := newTestOrchestrator(t)
	before := view(t, o).Record.EndsAt

	err := tell(t, o, func(r chan error) Msg { return Extend{Minutes: 0, Reason: "x", Reply: r} })
	require.ErrorIs(t, err, ErrInvalidExtension)

	err = tell(t, o, func(r chan error) Msg { return Extend{Minutes: 30, Reply: r} })
	require.ErrorIs(t, err, engine.ErrReasonRequired)

	require.NoError(t, tell(t, o, func(r chan error) Msg {
		return Extend{Minutes: 30, Reason: "heavy bidding expected", Reply: r}
	}))
	require.Equal(t, before.Add(30*time.Minute), view(t, o).Record.EndsAt)
}

func TestSettleOnlyAfterEnd(t *testing.T) {
	o := newTestOrchestrator(t)
	addPreparedLot(t, o, 1, 1)

	err := tell(t, o, func(r chan error) Msg { return Settle{Reply: r} })
	require.ErrorIs(t, err, ErrNotEnded)

	require.NoError(t, tell(t, o, func(r chan error) Msg { return Start{Reply: r} }))
	require.NoError(t, tell(t, o, func(r chan error) Msg { return Stop{Reply: r} }))
	require.Eventually(t, func() bool {
		return view(t, o).Record.Status == domain.AuctionEnded
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, tell(t, o, func(r chan error) Msg { return Settle{Reply: r} }))
	require.Equal(t, domain.AuctionSettled, view(t, o).Record.Status)
}

func TestDuplicateLotNumberRejected(t *testing.T) {
	o := newTestOrchestrator(t)
	addPreparedLot(t, o, 1, 1)

	err := tell(t, o, func(r chan error) Msg {
		return CreateLot{
			Config: LotConfig{VehicleID: uuid.New(), LotNumber: 1, Sequence: 2, OpeningPrice: d("500")},
			Reply:  r,
		}
	})
	require.ErrorIs(t, err, ErrDuplicateLotNumber)
}

func TestBidsFlowThroughLotOp(t *testing.T) {
	o := newTestOrchestrator(t)
	addPreparedLot(t, o, 1, 1)
	require.NoError(t, tell(t, o, func(r chan error) Msg { return Start{Reply: r} }))

	bidder := uuid.New()
	reply := make(chan lot.Result, 1)
	o.Inbox() <- LotOp{
		LotNumber: 1,
		Cmd:       engine.Command{Type: engine.CmdSubmitBid, Bidder: bidder, Amount: d("1100"), Kind: engine.KindLive},
		Reply:     reply,
	}
	res := <-reply
	require.NoError(t, res.Err)
	require.Equal(t, engine.StatusActive, res.Status)

	reply = make(chan lot.Result, 1)
	o.Inbox() <- LotOp{LotNumber: 42, Cmd: engine.Command{Type: engine.CmdSubmitBid, Bidder: bidder, Amount: d("1100")}, Reply: reply}
	res = <-reply
	require.ErrorIs(t, res.Err, ErrLotNotFound)
}
