package lot

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/engine"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/store"
)

type Msg interface{ isLotMsg() }

// FromClient carries one engine command. Reply, when non-nil, must be
// buffered; the outcome is delivered to it exactly once.
type FromClient struct {
	Cmd   engine.Command
	Reply chan<- Result
}

func (FromClient) isLotMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLotMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLotMsg() {}

type Shutdown struct{}

func (Shutdown) isLotMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLotMsg() {}

type clockExpired struct{ gen uint64 }

func (clockExpired) isLotMsg() {}

type Result struct {
	Events []engine.Event
	Status engine.LotStatus
	Err    error
}

type Snapshot struct {
	Version          int
	State            engine.State
	Events           []engine.Event
	RemainingSeconds int
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
	Remaining  int
}

// Closure tells the owning orchestrator the lot left the bidding
// lifecycle, whether by clock expiry or operator command.
type Closure struct {
	LotID     uuid.UUID
	LotNumber int
	Status    engine.LotStatus
}

// Lot is the single-owner execution context for one lot: every
// mutation is funneled through its inbox and processed in arrival
// order, so a human bid, a proxy bid and a clock expiry can never
// interleave.
type Lot struct {
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Snapshot
	clk     clock
	store   store.Store
	log     *zap.Logger
	closed  chan<- Closure
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, initial engine.State, st store.Store, log *zap.Logger, closed chan<- Closure) *Lot {
	ctx, cancel := context.WithCancel(parent)

	l := &Lot{
		inbox:   make(chan Msg, 64),
		state:   initial,
		clients: make(map[string]chan Snapshot),
		store:   st,
		log:     log.With(zap.Stringer("lot_id", initial.LotID), zap.Int("lot", initial.LotNumber)),
		closed:  closed,
		ctx:     ctx,
		cancel:  cancel,
	}

	// A lot handed over mid-run (process restart) gets a fresh full
	// countdown; the old deadline did not survive the old process.
	if initial.Status == engine.StatusActive {
		l.armClock(time.Duration(initial.Rules.TimerSeconds) * time.Second)
	}

	go l.loop()
	return l
}

// Inbox exposes the message channel to the ws layer, the orchestrator
// and tests.
func (l *Lot) Inbox() chan<- Msg { return l.inbox }

func (l *Lot) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send the current snapshot
				// immediately so a mid-lot joiner is consistent at once.
				l.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: l.version, State: l.state, RemainingSeconds: l.clk.Remaining()}

			case Leave:
				if ch, ok := l.clients[msg.ClientID]; ok {
					delete(l.clients, msg.ClientID)
					close(ch)
				}

			case FromClient:
				l.handle(msg)

			case clockExpired:
				if msg.gen != l.clk.Generation() {
					// A bid re-armed the clock after this fire was
					// scheduled; the fire is stale.
					l.log.Debug("dropping stale clock fire", zap.Uint64("gen", msg.gen))
					break
				}
				l.handle(FromClient{Cmd: engine.Command{Type: engine.CmdClockExpiry}})

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state,
					Remaining:  l.clk.Remaining(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lot) handle(msg FromClient) {
	evs, ns, err := engine.Apply(l.state, msg.Cmd)
	if err != nil {
		reply(msg.Reply, Result{Err: err, Status: l.state.Status})
		return
	}

	// Write through before committing: the in-memory state must never
	// run ahead of the durable store.
	if err := l.persist(msg.Cmd, ns, evs); err != nil {
		l.log.Error("write-through failed, transition rolled back", zap.Error(err))
		reply(msg.Reply, Result{Err: err, Status: l.state.Status})
		return
	}

	l.state = ns
	l.version++
	l.react(evs)
	l.broadcast(Snapshot{Version: l.version, State: l.state, Events: evs, RemainingSeconds: l.clk.Remaining()})
	reply(msg.Reply, Result{Events: evs, Status: l.state.Status})
}

// react re-arms or cancels the clock and reports closure, based on
// what the transition announced.
func (l *Lot) react(evs []engine.Event) {
	for _, ev := range evs {
		switch e := ev.(type) {
		case engine.TimerReset:
			l.armClock(time.Duration(e.RemainingSeconds) * time.Second)
		case engine.LotSold:
			l.clk.Cancel()
			l.notifyClosed()
		case engine.LotUnsold:
			l.clk.Cancel()
			l.notifyClosed()
		case engine.LotEnded:
			l.clk.Cancel()
			l.notifyClosed()
		}
	}
}

func (l *Lot) armClock(d time.Duration) {
	l.clk.Arm(d, func(gen uint64) {
		select {
		case l.inbox <- clockExpired{gen}:
		case <-l.ctx.Done():
		}
	})
}

func (l *Lot) notifyClosed() {
	if l.closed == nil {
		return
	}
	c := Closure{LotID: l.state.LotID, LotNumber: l.state.LotNumber, Status: l.state.Status}
	// Async so a busy orchestrator can never stall this lot.
	go func() {
		select {
		case l.closed <- c:
		case <-l.ctx.Done():
		}
	}()
}

func (l *Lot) shutdown() {
	l.clk.Cancel()
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lot) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(l.clients, id)
		}
	}
}

func reply(ch chan<- Result, r Result) {
	if ch != nil {
		ch <- r
	}
}
