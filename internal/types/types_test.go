package types

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/engine"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/lot"
)

func TestEncodeEventFlattensBidAccepted(t *testing.T) {
	lotID, bidder := uuid.New(), uuid.New()
	msg, ok := EncodeEvent(engine.BidAccepted{
		LotID:     lotID,
		LotNumber: 3,
		Bidder:    bidder,
		Amount:    decimal.RequireFromString("1100"),
		Kind:      engine.KindLive,
		BidCount:  1,
	})
	if !ok {
		t.Fatalf("BidAccepted must encode")
	}
	if msg.Type != "BidAccepted" || msg.LotNumber != 3 || msg.BidderID != bidder.String() {
		t.Fatalf("bad encoding: %+v", msg)
	}

	// Decimal fields are pointers so unset ones vanish from the wire.
	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	_ = json.Unmarshal(payload, &raw)
	if _, present := raw["hammer_price"]; present {
		t.Fatalf("unset decimal leaked into payload: %s", payload)
	}
	if raw["amount"] != "1100" {
		t.Fatalf("want amount 1100, got %v", raw["amount"])
	}
}

func TestEncodeLotSnapshotLeaderHandling(t *testing.T) {
	st := engine.State{
		LotID:        uuid.New(),
		LotNumber:    9,
		Status:       engine.StatusActive,
		OpeningPrice: decimal.RequireFromString("1000"),
	}
	msg := EncodeLotSnapshot(lot.Snapshot{Version: 2, State: st, RemainingSeconds: 15})
	if msg.Type != "LotSnapshot" || msg.Version != 2 || msg.RemainingSeconds != 15 {
		t.Fatalf("bad snapshot encoding: %+v", msg)
	}
	if msg.LeaderID != "" {
		t.Fatalf("lot with no bids must not report a leader, got %q", msg.LeaderID)
	}
	if !msg.Price.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("want opening price, got %s", msg.Price)
	}
}
