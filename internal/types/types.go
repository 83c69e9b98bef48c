package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/engine"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/lot"
)

// ClientMessage is everything a bidder-facing connection may send.
type ClientMessage struct {
	Type        string          `json:"type"`
	LotNumber   int             `json:"lot_number,omitempty"`
	BidderID    string          `json:"bidder_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	StartAmount decimal.Decimal `json:"start_amount"`
	MaxAmount   decimal.Decimal `json:"max_amount"`
}

// ServerMessage is the flattened wire form of the outbound event
// union plus snapshots and per-client errors.
type ServerMessage struct {
	Type             string           `json:"type"`
	Version          int              `json:"version,omitempty"`
	AuctionID        string           `json:"auction_id,omitempty"`
	LotID            string           `json:"lot_id,omitempty"`
	LotNumber        int              `json:"lot_number,omitempty"`
	Status           string           `json:"status,omitempty"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	MinAcceptable    *decimal.Decimal `json:"min_acceptable,omitempty"`
	HammerPrice      *decimal.Decimal `json:"hammer_price,omitempty"`
	Kind             string           `json:"kind,omitempty"`
	BidderID         string           `json:"bidder_id,omitempty"`
	LeaderID         string           `json:"leader_id,omitempty"`
	WinnerID         string           `json:"winner_id,omitempty"`
	BidCount         int              `json:"bid_count,omitempty"`
	RemainingSeconds int              `json:"remaining_seconds,omitempty"`
	PreviousLot      int              `json:"previous_lot,omitempty"`
	NextLot          int              `json:"next_lot,omitempty"`
	Minutes          int              `json:"minutes,omitempty"`
	ReserveMet       bool             `json:"reserve_met,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	Error            string           `json:"error,omitempty"`
}

func dec(d decimal.Decimal) *decimal.Decimal { return &d }

// EncodeEvent flattens one engine event for the wire.
func EncodeEvent(ev engine.Event) (ServerMessage, bool) {
	switch e := ev.(type) {
	case engine.BidAccepted:
		return ServerMessage{Type: "BidAccepted", LotID: e.LotID.String(), LotNumber: e.LotNumber, BidderID: e.Bidder.String(), Amount: dec(e.Amount), Kind: string(e.Kind), BidCount: e.BidCount}, true
	case engine.BidRejected:
		return ServerMessage{Type: "BidRejected", LotID: e.LotID.String(), LotNumber: e.LotNumber, BidderID: e.Bidder.String(), Amount: dec(e.Amount), MinAcceptable: dec(e.MinAcceptable), Reason: e.Reason}, true
	case engine.CurrentPriceChanged:
		return ServerMessage{Type: "CurrentPriceChanged", LotID: e.LotID.String(), LotNumber: e.LotNumber, Price: dec(e.Price), LeaderID: e.Leader.String(), BidCount: e.BidCount}, true
	case engine.TimerReset:
		return ServerMessage{Type: "TimerReset", LotID: e.LotID.String(), LotNumber: e.LotNumber, RemainingSeconds: e.RemainingSeconds}, true
	case engine.LotSold:
		return ServerMessage{Type: "LotSold", LotID: e.LotID.String(), LotNumber: e.LotNumber, HammerPrice: dec(e.HammerPrice), WinnerID: e.Winner.String(), ReserveMet: e.ReserveMet}, true
	case engine.LotUnsold:
		return ServerMessage{Type: "LotUnsold", LotID: e.LotID.String(), LotNumber: e.LotNumber, Reason: e.Reason}, true
	case engine.LotEnded:
		return ServerMessage{Type: "LotEnded", LotID: e.LotID.String(), LotNumber: e.LotNumber, Reason: e.Reason}, true
	case engine.LotChanged:
		return ServerMessage{Type: "LotChanged", AuctionID: e.AuctionID.String(), PreviousLot: e.PreviousLot, NextLot: e.NextLot}, true
	case engine.AuctionStarted:
		return ServerMessage{Type: "AuctionStarted", AuctionID: e.AuctionID.String(), NextLot: e.FirstLot}, true
	case engine.AuctionEnded:
		return ServerMessage{Type: "AuctionEnded", AuctionID: e.AuctionID.String()}, true
	case engine.AuctionExtended:
		return ServerMessage{Type: "AuctionExtended", AuctionID: e.AuctionID.String(), Minutes: e.Minutes, Reason: e.Reason}, true
	case engine.AuctionCancelled:
		return ServerMessage{Type: "AuctionCancelled", AuctionID: e.AuctionID.String(), Reason: e.Reason}, true
	default:
		return ServerMessage{}, false
	}
}

// EncodeLotSnapshot is the consistent picture a client gets on join
// and after every transition.
func EncodeLotSnapshot(snap lot.Snapshot) ServerMessage {
	leader, _ := snap.State.Leader()
	leaderID := ""
	if leader != uuid.Nil {
		leaderID = leader.String()
	}
	return ServerMessage{
		Type:             "LotSnapshot",
		Version:          snap.Version,
		LotID:            snap.State.LotID.String(),
		LotNumber:        snap.State.LotNumber,
		Status:           string(snap.State.Status),
		Price:            dec(snap.State.CurrentPrice()),
		LeaderID:         leaderID,
		BidCount:         snap.State.BidCount(),
		RemainingSeconds: snap.RemainingSeconds,
	}
}
