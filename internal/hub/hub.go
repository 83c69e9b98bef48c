package hub

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/auction"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/domain"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/store"
)

type HubMsg interface{ isHubMsg() }

type CreateAuction struct {
	Record domain.Auction
	Reply  chan *auction.Orchestrator
}

type GetAuction struct {
	ID    uuid.UUID
	Reply chan *auction.Orchestrator
}

type EnsureAuction struct {
	Record domain.Auction // only used if creation happens
	Reply  chan *auction.Orchestrator
}

type RemoveAuction struct {
	ID uuid.UUID
}

type ShutdownHub struct{}

func (CreateAuction) isHubMsg() {}
func (GetAuction) isHubMsg()    {}
func (EnsureAuction) isHubMsg() {}
func (RemoveAuction) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

// Hub is the registry of running auctions. Operations on different
// auctions proceed fully in parallel; the hub only hands out handles.
type Hub struct {
	inbox    chan HubMsg
	auctions map[uuid.UUID]*auction.Orchestrator
	store    store.Store
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, st store.Store, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		auctions: make(map[uuid.UUID]*auction.Orchestrator),
		store:    st,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateAuction:
				if o := h.auctions[msg.Record.ID]; o != nil {
					msg.Reply <- o
					break
				}
				o := auction.New(h.ctx, msg.Record, h.store, h.log)
				h.auctions[msg.Record.ID] = o
				msg.Reply <- o

			case GetAuction:
				msg.Reply <- h.auctions[msg.ID] // May be nil

			case EnsureAuction:
				if o := h.auctions[msg.Record.ID]; o != nil {
					msg.Reply <- o
					break
				}
				// The record came from the store, so its lots may be
				// there too; revive them along with the orchestrator.
				o, err := auction.Restore(h.ctx, msg.Record, h.store, h.log)
				if err != nil {
					h.log.Error("failed to restore auction",
						zap.Stringer("auction_id", msg.Record.ID), zap.Error(err))
					msg.Reply <- nil
					break
				}
				h.auctions[msg.Record.ID] = o
				msg.Reply <- o

			case RemoveAuction:
				delete(h.auctions, msg.ID)

			case ShutdownHub:
				for _, o := range h.auctions {
					o.Inbox() <- auction.Shutdown{}
				}
				clear(h.auctions)
				h.cancel()
			}
		}
	}
}
