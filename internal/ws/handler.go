package ws

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/auction"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/engine"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/hub"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/lot"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/types"
)

// Handler upgrades a viewer/bidder connection and bridges it to the
// auction and lot actors. The caller is assumed to be authenticated
// already; bidder identity arrives in the messages.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auctionID, err := uuid.Parse(r.URL.Query().Get("auction"))
		if err != nil {
			http.Error(w, "missing or invalid auction id", http.StatusBadRequest)
			return
		}

		reply := make(chan *auction.Orchestrator, 1)
		h.Inbox() <- hub.GetAuction{ID: auctionID, Reply: reply}
		orch := <-reply
		if orch == nil {
			http.Error(w, "auction not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := &client{
			id:       randID(6),
			orch:     orch,
			conn:     conn,
			outgoing: make(chan types.ServerMessage, 32),
			log:      log,
		}
		c.run(r.Context())
	}
}

type client struct {
	id       string
	orch     *auction.Orchestrator
	conn     *websocket.Conn
	outgoing chan types.ServerMessage
	lotActor *lot.Lot
	lotDone  context.CancelFunc
	log      *zap.Logger
}

func (c *client) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.log.Debug("client connected", zap.String("client_id", c.id), zap.Stringer("auction_id", c.orch.ID()))
	defer c.log.Debug("client disconnected", zap.String("client_id", c.id))

	// Auction channel: joined for the life of the connection. The join
	// reply is the snapshot, so a reconnecting client is immediately
	// consistent.
	aOut := make(chan auction.Snapshot, 8)
	c.orch.Inbox() <- auction.Join{ClientID: c.id, Outbox: aOut}
	defer func() { c.orch.Inbox() <- auction.Leave{ClientID: c.id} }()

	go c.forwardAuction(ctx, aOut)
	go c.writer(ctx)

	defer c.leaveLot()

	// Reader loop
	for {
		readCtx, cancelRead := context.WithTimeout(ctx, 60*time.Second)
		_, data, err := c.conn.Read(readCtx)
		cancelRead()
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			c.send(types.ServerMessage{Type: "Error", Error: "bad json"})
			continue
		}
		c.dispatch(ctx, cm)
	}
}

func (c *client) dispatch(ctx context.Context, cm types.ClientMessage) {
	switch cm.Type {
	case "JoinLot":
		c.joinLot(ctx, cm.LotNumber)

	case "LeaveLot":
		c.leaveLot()

	case "PlaceBid", "PlacePreBid", "RegisterProxy", "CancelProxy":
		cmd, ok := toEngineCommand(cm)
		if !ok {
			c.send(types.ServerMessage{Type: "Error", Error: "invalid bidder id"})
			return
		}
		reply := make(chan lot.Result, 1)
		c.orch.Inbox() <- auction.LotOp{LotNumber: cm.LotNumber, Cmd: cmd, Reply: reply}
		select {
		case res := <-reply:
			c.report(cm, res)
		case <-ctx.Done():
		}

	default:
		c.send(types.ServerMessage{Type: "Error", Error: "unknown type"})
	}
}

// report maps a rejected command back to just this client. Bid
// rejection is a routine outcome, delivered with the corrected
// minimum so the bidder can retry at once.
func (c *client) report(cm types.ClientMessage, res lot.Result) {
	if res.Err == nil {
		return
	}
	var tooLow *engine.BidTooLowError
	if errors.As(res.Err, &tooLow) {
		c.send(types.ServerMessage{
			Type:          "BidRejected",
			LotNumber:     cm.LotNumber,
			BidderID:      cm.BidderID,
			MinAcceptable: &tooLow.MinAcceptable,
			Reason:        "below minimum",
		})
		return
	}
	c.send(types.ServerMessage{Type: "Error", LotNumber: cm.LotNumber, Error: res.Err.Error()})
}

func (c *client) joinLot(ctx context.Context, n int) {
	c.leaveLot()

	reply := make(chan *lot.Lot, 1)
	c.orch.Inbox() <- auction.GetLotActor{LotNumber: n, Reply: reply}
	actor := <-reply
	if actor == nil {
		c.send(types.ServerMessage{Type: "Error", Error: "lot not found"})
		return
	}

	lotCtx, cancel := context.WithCancel(ctx)
	c.lotActor = actor
	c.lotDone = cancel

	out := make(chan lot.Snapshot, 8)
	actor.Inbox() <- lot.Join{ClientID: c.id, Outbox: out}
	go c.forwardLot(lotCtx, out)
}

func (c *client) leaveLot() {
	if c.lotActor == nil {
		return
	}
	c.lotActor.Inbox() <- lot.Leave{ClientID: c.id}
	c.lotDone()
	c.lotActor = nil
	c.lotDone = nil
}

func (c *client) forwardLot(ctx context.Context, out <-chan lot.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-out:
			if !ok {
				return
			}
			c.send(types.EncodeLotSnapshot(snap))
			for _, ev := range snap.Events {
				if msg, ok := types.EncodeEvent(ev); ok {
					c.send(msg)
				}
			}
		}
	}
}

func (c *client) forwardAuction(ctx context.Context, out <-chan auction.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-out:
			if !ok {
				return
			}
			if len(snap.Events) == 0 {
				c.send(types.ServerMessage{
					Type:      "AuctionSnapshot",
					AuctionID: snap.AuctionID.String(),
					Status:    string(snap.Status),
					NextLot:   snap.CurrentLot,
				})
				continue
			}
			for _, ev := range snap.Events {
				if msg, ok := types.EncodeEvent(ev); ok {
					c.send(msg)
				}
			}
		}
	}
}

func (c *client) writer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.outgoing:
			payload, _ := json.Marshal(msg)
			writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			_ = c.conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
		}
	}
}

// send never blocks the actor-facing goroutines; a full outgoing
// buffer just drops the message, the next snapshot reconciles.
func (c *client) send(msg types.ServerMessage) {
	select {
	case c.outgoing <- msg:
	default:
	}
}

func toEngineCommand(cm types.ClientMessage) (engine.Command, bool) {
	bidder, err := uuid.Parse(cm.BidderID)
	if err != nil {
		return engine.Command{}, false
	}

	switch cm.Type {
	case "PlaceBid":
		return engine.Command{Type: engine.CmdSubmitBid, Bidder: bidder, Amount: cm.Amount, Kind: engine.KindLive}, true
	case "PlacePreBid":
		return engine.Command{Type: engine.CmdSubmitBid, Bidder: bidder, Amount: cm.Amount, Kind: engine.KindPreBid}, true
	case "RegisterProxy":
		return engine.Command{Type: engine.CmdRegisterProxy, Bidder: bidder, Amount: cm.StartAmount, Ceiling: cm.MaxAmount}, true
	case "CancelProxy":
		return engine.Command{Type: engine.CmdCancelProxy, Bidder: bidder}, true
	default:
		return engine.Command{}, false
	}
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
