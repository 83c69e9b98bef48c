package auction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/domain"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/engine"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/lot"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/store"
)

var ErrNotReadyToStart = errors.New("auction is not ready to start")
var ErrNotRunning = errors.New("auction is not running")
var ErrNotEnded = errors.New("auction has not ended")
var ErrAlreadyTerminal = errors.New("auction is cancelled or settled")
var ErrLotNotFound = errors.New("lot not found in this auction")
var ErrLotUnavailable = errors.New("target lot is not prepared")
var ErrDuplicateLotNumber = errors.New("lot number already taken")
var ErrAnotherLotActive = errors.New("another lot is already active")
var ErrInvalidExtension = errors.New("extension minutes must be positive")

type Msg interface{ isAuctionMsg() }

type Start struct{ Reply chan error }
type Stop struct{ Reply chan error }
type Cancel struct {
	Reason string
	Reply  chan error
}
type Extend struct {
	Minutes int
	Reason  string
	Reply   chan error
}
type Settle struct{ Reply chan error }
type Advance struct{ Reply chan error }
type Jump struct {
	LotNumber int
	Reply     chan error
}
type CreateLot struct {
	Config LotConfig
	Reply  chan error
}

// LotOp routes an engine command to one of this auction's lots.
type LotOp struct {
	LotNumber int
	Cmd       engine.Command
	Reply     chan lot.Result
}

type GetLotActor struct {
	LotNumber int
	Reply     chan *lot.Lot
}

type Join struct {
	ClientID string
	Outbox   chan Snapshot
}
type Leave struct{ ClientID string }
type GetState struct{ Reply chan View }
type Shutdown struct{}

func (Start) isAuctionMsg()       {}
func (Stop) isAuctionMsg()        {}
func (Cancel) isAuctionMsg()      {}
func (Extend) isAuctionMsg()      {}
func (Settle) isAuctionMsg()      {}
func (Advance) isAuctionMsg()     {}
func (Jump) isAuctionMsg()        {}
func (CreateLot) isAuctionMsg()   {}
func (LotOp) isAuctionMsg()       {}
func (GetLotActor) isAuctionMsg() {}
func (Join) isAuctionMsg()        {}
func (Leave) isAuctionMsg()       {}
func (GetState) isAuctionMsg()    {}
func (Shutdown) isAuctionMsg()    {}

type LotConfig struct {
	LotID        uuid.UUID
	VehicleID    uuid.UUID
	LotNumber    int
	Sequence     int
	OpeningPrice decimal.Decimal
}

// Snapshot is what auction-channel subscribers receive: the auction
// headline plus whatever events the change produced.
type Snapshot struct {
	AuctionID  uuid.UUID
	Status     domain.AuctionStatus
	CurrentLot int
	EndsAt     time.Time
	Events     []engine.Event
}

type View struct {
	Record     domain.Auction
	ActiveLot  int
	NumLots    int
	NumClients int
}

type lotEntry struct {
	actor   *lot.Lot
	id      uuid.UUID
	number  int
	seq     int
	status  engine.LotStatus
	opening decimal.Decimal
}

// Orchestrator owns one auction's lifecycle: it spawns a lot actor per
// lot, activates them one at a time in sequence order, and advances
// when the active lot closes. All auction-level mutation runs on its
// own goroutine.
type Orchestrator struct {
	inbox    chan Msg
	record   domain.Auction
	lots     map[int]*lotEntry
	active   int
	jumpNext int
	clients  map[string]chan Snapshot
	closures chan lot.Closure
	store    store.Store
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, record domain.Auction, st store.Store, log *zap.Logger) *Orchestrator {
	o := build(parent, record, st, log)
	go o.loop()
	return o
}

// Restore rebuilds an orchestrator from durable rows, spawning a lot
// actor per saved lot. This is how a process takes over an auction it
// did not create.
func Restore(parent context.Context, record domain.Auction, st store.Store, log *zap.Logger) (*Orchestrator, error) {
	o := build(parent, record, st, log)

	ctx, cancel := context.WithTimeout(o.ctx, 15*time.Second)
	defer cancel()
	rows, err := st.LotsByAuction(ctx, record.ID)
	if err != nil {
		o.cancel()
		return nil, err
	}
	for i := range rows {
		ls, err := o.loadLotState(ctx, rows[i])
		if err != nil {
			o.cancel()
			return nil, err
		}
		actor := lot.New(o.ctx, ls, o.store, o.log, o.closures)
		o.lots[ls.LotNumber] = &lotEntry{
			actor:   actor,
			id:      ls.LotID,
			number:  ls.LotNumber,
			seq:     ls.Sequence,
			status:  ls.Status,
			opening: ls.OpeningPrice,
		}
		if ls.Status == engine.StatusActive {
			o.active = ls.LotNumber
		}
	}

	go o.loop()
	return o, nil
}

func build(parent context.Context, record domain.Auction, st store.Store, log *zap.Logger) *Orchestrator {
	ctx, cancel := context.WithCancel(parent)

	return &Orchestrator{
		inbox:    make(chan Msg, 64),
		record:   record,
		lots:     make(map[int]*lotEntry),
		clients:  make(map[string]chan Snapshot),
		closures: make(chan lot.Closure, 16),
		store:    st,
		log:      log.With(zap.Stringer("auction_id", record.ID)),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// loadLotState folds one lot's durable rows back into engine state.
// Pre-bids on a lot that has not gone live yet go back to the queue;
// every other bid re-enters the ledger as stored.
func (o *Orchestrator) loadLotState(ctx context.Context, row domain.Lot) (engine.State, error) {
	st := engine.State{
		LotID:        row.ID,
		AuctionID:    row.AuctionID,
		VehicleID:    row.VehicleID,
		LotNumber:    row.LotNumber,
		Sequence:     row.Sequence,
		Status:       engine.LotStatus(row.Status),
		OpeningPrice: row.OpeningPrice,
		ReservePrice: row.ReservePrice,
		HasReserve:   row.HasReserve,
		HammerPrice:  row.HammerPrice,
		HasHammer:    row.HasHammer,
		ReserveMet:   row.ReserveMet,
		WinnerID:     row.WinnerID,
		NextProxySeq: 1,
		Rules: engine.Rules{
			MinIncrement: o.record.MinIncrement,
			TimerSeconds: o.record.LotTimerSec,
			Currency:     o.record.Currency,
		},
	}

	bids, err := o.store.BidsByLot(ctx, row.ID)
	if err != nil {
		return engine.State{}, err
	}
	queued := st.Status == engine.StatusPending || st.Status == engine.StatusPrepared
	for _, b := range bids {
		eb := engine.Bid{
			ID:       b.ID,
			Bidder:   b.BidderID,
			Amount:   b.Amount,
			Kind:     engine.BidKind(b.Kind),
			Status:   engine.BidStatus(b.Status),
			PlacedAt: b.PlacedAt,
		}
		if queued && eb.Kind == engine.KindPreBid {
			st.PreBids = append(st.PreBids, eb)
			continue
		}
		st.Ledger.Entries = append(st.Ledger.Entries, eb)
	}

	proxies, err := o.store.ProxiesByLot(ctx, row.ID)
	if err != nil {
		return engine.State{}, err
	}
	for _, p := range proxies {
		st.Proxies = append(st.Proxies, engine.ProxyRegistration{
			Bidder:       p.BidderID,
			Ceiling:      p.Ceiling,
			Seq:          p.Seq,
			RegisteredAt: p.RegisteredAt,
		})
		if p.Seq >= st.NextProxySeq {
			st.NextProxySeq = p.Seq + 1
		}
	}
	return st, nil
}

func (o *Orchestrator) Inbox() chan<- Msg { return o.inbox }
func (o *Orchestrator) ID() uuid.UUID    { return o.record.ID }

func (o *Orchestrator) loop() {
	for {
		select {
		case <-o.ctx.Done():
			o.shutdown()
			return

		case c := <-o.closures:
			o.onClosure(c)

		case m := <-o.inbox:
			switch msg := m.(type) {
			case Start:
				msg.Reply <- o.start()
			case Stop:
				msg.Reply <- o.stop()
			case Cancel:
				msg.Reply <- o.cancelAuction(msg.Reason)
			case Extend:
				msg.Reply <- o.extend(msg.Minutes, msg.Reason)
			case Settle:
				msg.Reply <- o.settle()
			case Advance:
				msg.Reply <- o.advance()
			case Jump:
				msg.Reply <- o.jump(msg.LotNumber)
			case CreateLot:
				msg.Reply <- o.createLot(msg.Config)
			case LotOp:
				o.lotOp(msg)
			case GetLotActor:
				if e, ok := o.lots[msg.LotNumber]; ok {
					msg.Reply <- e.actor
				} else {
					msg.Reply <- nil
				}
			case Join:
				o.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- o.snapshot(nil)
			case Leave:
				if ch, ok := o.clients[msg.ClientID]; ok {
					delete(o.clients, msg.ClientID)
					close(ch)
				}
			case GetState:
				msg.Reply <- View{Record: o.record, ActiveLot: o.active, NumLots: len(o.lots), NumClients: len(o.clients)}
			case Shutdown:
				o.shutdown()
				return
			}
		}
	}
}

func (o *Orchestrator) createLot(cfg LotConfig) error {
	if o.record.Status.Terminal() || o.record.Status == domain.AuctionEnded {
		return ErrAlreadyTerminal
	}
	if cfg.LotNumber <= 0 || !cfg.OpeningPrice.IsPositive() {
		return engine.ErrInvalidLotConfig
	}
	if _, dup := o.lots[cfg.LotNumber]; dup {
		return ErrDuplicateLotNumber
	}

	id := cfg.LotID
	if id == uuid.Nil {
		id = uuid.New()
	}
	st := engine.State{
		LotID:        id,
		AuctionID:    o.record.ID,
		VehicleID:    cfg.VehicleID,
		LotNumber:    cfg.LotNumber,
		Sequence:     cfg.Sequence,
		Status:       engine.StatusPending,
		OpeningPrice: cfg.OpeningPrice,
		Rules: engine.Rules{
			MinIncrement: o.record.MinIncrement,
			TimerSeconds: o.record.LotTimerSec,
			Currency:     o.record.Currency,
		},
	}

	ctx, cancel := context.WithTimeout(o.ctx, 5*time.Second)
	defer cancel()
	if err := o.store.SaveLot(ctx, lot.Record(st)); err != nil {
		return err
	}

	actor := lot.New(o.ctx, st, o.store, o.log, o.closures)
	o.lots[cfg.LotNumber] = &lotEntry{
		actor:   actor,
		id:      id,
		number:  cfg.LotNumber,
		seq:     cfg.Sequence,
		status:  engine.StatusPending,
		opening: cfg.OpeningPrice,
	}
	return nil
}

func (o *Orchestrator) lotOp(msg LotOp) {
	e, ok := o.lots[msg.LotNumber]
	if !ok {
		if msg.Reply != nil {
			msg.Reply <- lot.Result{Err: ErrLotNotFound}
		}
		return
	}
	if msg.Cmd.Type == engine.CmdActivate && o.active != 0 && o.active != msg.LotNumber {
		if msg.Reply != nil {
			msg.Reply <- lot.Result{Err: ErrAnotherLotActive}
		}
		return
	}
	res := o.tellLot(e, msg.Cmd)
	if msg.Reply != nil {
		msg.Reply <- res
	}
}

// tellLot routes a command to a lot actor and waits for its outcome.
// Lot actors never block back on the orchestrator, so this round trip
// is safe inside the loop.
func (o *Orchestrator) tellLot(e *lotEntry, cmd engine.Command) lot.Result {
	reply := make(chan lot.Result, 1)
	select {
	case e.actor.Inbox() <- lot.FromClient{Cmd: cmd, Reply: reply}:
	case <-o.ctx.Done():
		return lot.Result{Err: o.ctx.Err()}
	}
	select {
	case res := <-reply:
		if res.Err == nil {
			e.status = res.Status
			if res.Status == engine.StatusActive {
				o.active = e.number
			}
		}
		return res
	case <-o.ctx.Done():
		return lot.Result{Err: o.ctx.Err()}
	}
}

func (o *Orchestrator) start() error {
	if o.record.Status != domain.AuctionScheduled {
		return ErrNotReadyToStart
	}
	prepared := 0
	for _, e := range o.lots {
		if e.status == engine.StatusRemoved {
			continue
		}
		if e.number <= 0 || !e.opening.IsPositive() {
			return ErrNotReadyToStart
		}
		if e.status == engine.StatusPrepared {
			prepared++
		}
	}
	if prepared == 0 {
		return ErrNotReadyToStart
	}

	o.record.Status = domain.AuctionRunning
	if err := o.saveAuction(); err != nil {
		o.record.Status = domain.AuctionScheduled
		return err
	}

	first := o.nextPrepared()
	o.publish(engine.AuctionStarted{AuctionID: o.record.ID, FirstLot: first})
	o.activate(first, 0)
	return nil
}

func (o *Orchestrator) stop() error {
	if o.record.Status != domain.AuctionRunning {
		return ErrNotRunning
	}
	o.record.Status = domain.AuctionEnded
	if err := o.saveAuction(); err != nil {
		o.record.Status = domain.AuctionRunning
		return err
	}
	o.forceEndActive("auction ended by operator")
	o.publish(engine.AuctionEnded{AuctionID: o.record.ID})
	return nil
}

func (o *Orchestrator) cancelAuction(reason string) error {
	if reason == "" {
		return engine.ErrReasonRequired
	}
	if o.record.Status.Terminal() {
		return ErrAlreadyTerminal
	}
	prev := o.record.Status
	o.record.Status = domain.AuctionCancelled
	o.record.CancelReason = reason
	if err := o.saveAuction(); err != nil {
		o.record.Status = prev
		o.record.CancelReason = ""
		return err
	}
	o.forceEndActive(fmt.Sprintf("auction cancelled: %s", reason))
	o.publish(engine.AuctionCancelled{AuctionID: o.record.ID, Reason: reason})
	return nil
}

func (o *Orchestrator) extend(minutes int, reason string) error {
	if minutes <= 0 {
		return ErrInvalidExtension
	}
	if reason == "" {
		return engine.ErrReasonRequired
	}
	if o.record.Status != domain.AuctionScheduled && o.record.Status != domain.AuctionRunning {
		return ErrNotRunning
	}
	prevEnd := o.record.EndsAt
	o.record.EndsAt = o.record.EndsAt.Add(time.Duration(minutes) * time.Minute)
	if err := o.saveAuction(); err != nil {
		o.record.EndsAt = prevEnd
		return err
	}
	// Extending the auction boundary deliberately leaves the active
	// lot's countdown alone.
	o.publish(engine.AuctionExtended{AuctionID: o.record.ID, Minutes: minutes, Reason: reason, NewEnd: o.record.EndsAt})
	return nil
}

func (o *Orchestrator) settle() error {
	if o.record.Status != domain.AuctionEnded {
		return ErrNotEnded
	}
	o.record.Status = domain.AuctionSettled
	if err := o.saveAuction(); err != nil {
		o.record.Status = domain.AuctionEnded
		return err
	}
	return nil
}

func (o *Orchestrator) advance() error {
	if o.record.Status != domain.AuctionRunning {
		return ErrNotRunning
	}
	if o.active != 0 {
		// Closing the live lot triggers the normal closure path,
		// which picks the next one.
		return o.forceEndActive("advanced by operator")
	}
	next := o.nextPrepared()
	if next == 0 {
		o.endAuction()
		return nil
	}
	o.activate(next, 0)
	return nil
}

func (o *Orchestrator) jump(n int) error {
	if o.record.Status != domain.AuctionRunning {
		return ErrNotRunning
	}
	e, ok := o.lots[n]
	if !ok {
		return ErrLotNotFound
	}
	if n == o.active {
		return nil
	}
	// Only a prepared lot can go live; anything else would make the
	// jump report success while activation quietly fails.
	if e.status != engine.StatusPrepared {
		return ErrLotUnavailable
	}
	if o.active != 0 {
		o.jumpNext = n
		return o.forceEndActive(fmt.Sprintf("operator jumped to lot %d", n))
	}
	o.activate(n, 0)
	return nil
}

func (o *Orchestrator) forceEndActive(reason string) error {
	if o.active == 0 {
		return nil
	}
	e := o.lots[o.active]
	res := o.tellLot(e, engine.Command{Type: engine.CmdForceEnd, Reason: reason})
	return res.Err
}

// onClosure is the single place lot endings feed back into auction
// flow: record the outcome, and while running, bring up the next lot
// or end the auction.
func (o *Orchestrator) onClosure(c lot.Closure) {
	e, ok := o.lots[c.LotNumber]
	if ok {
		e.status = c.Status
	}
	if o.active != c.LotNumber {
		return
	}
	o.active = 0
	if o.record.Status != domain.AuctionRunning {
		return
	}

	next := o.jumpNext
	o.jumpNext = 0
	if next == 0 {
		next = o.nextPrepared()
	}
	if next == 0 {
		o.endAuction()
		return
	}
	o.activate(next, c.LotNumber)
}

func (o *Orchestrator) activate(n, prev int) {
	e, ok := o.lots[n]
	if !ok {
		return
	}
	res := o.tellLot(e, engine.Command{Type: engine.CmdActivate})
	if res.Err != nil {
		o.log.Error("failed to activate lot", zap.Int("lot", n), zap.Error(res.Err))
		return
	}
	o.publish(engine.LotChanged{AuctionID: o.record.ID, PreviousLot: prev, NextLot: n})
}

func (o *Orchestrator) nextPrepared() int {
	best := 0
	bestSeq := 0
	for _, e := range o.lots {
		if e.status != engine.StatusPrepared {
			continue
		}
		if best == 0 || e.seq < bestSeq || (e.seq == bestSeq && e.number < best) {
			best = e.number
			bestSeq = e.seq
		}
	}
	return best
}

func (o *Orchestrator) endAuction() {
	o.record.Status = domain.AuctionEnded
	if err := o.saveAuction(); err != nil {
		o.log.Error("failed to persist auction end", zap.Error(err))
	}
	o.publish(engine.AuctionEnded{AuctionID: o.record.ID})
}

func (o *Orchestrator) saveAuction() error {
	ctx, cancel := context.WithTimeout(o.ctx, 5*time.Second)
	defer cancel()
	rec := o.record
	return o.store.SaveAuction(ctx, &rec)
}

func (o *Orchestrator) snapshot(evs []engine.Event) Snapshot {
	return Snapshot{
		AuctionID:  o.record.ID,
		Status:     o.record.Status,
		CurrentLot: o.active,
		EndsAt:     o.record.EndsAt,
		Events:     evs,
	}
}

func (o *Orchestrator) publish(evs ...engine.Event) {
	snap := o.snapshot(evs)
	for id, ch := range o.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(o.clients, id)
		}
	}
}

func (o *Orchestrator) shutdown() {
	for _, e := range o.lots {
		select {
		case e.actor.Inbox() <- lot.Shutdown{}:
		default:
		}
	}
	for id, ch := range o.clients {
		close(ch)
		delete(o.clients, id)
	}
	o.cancel()
}
