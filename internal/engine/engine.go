package engine

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CommandType string

const (
	CmdPrepare        CommandType = "Prepare"
	CmdActivate       CommandType = "Activate"
	CmdSubmitBid      CommandType = "SubmitBid"
	CmdRegisterProxy  CommandType = "RegisterProxy"
	CmdCancelProxy    CommandType = "CancelProxy"
	CmdClockExpiry    CommandType = "ClockExpiry"
	CmdForceEnd       CommandType = "ForceEnd"
	CmdMarkUnsold     CommandType = "MarkUnsold"
	CmdSetReserve     CommandType = "SetReserve"
	CmdSetHammerPrice CommandType = "SetHammerPrice"
	CmdRetractBid     CommandType = "RetractBid"
	CmdInvalidateBid  CommandType = "InvalidateBid"
	CmdRemove         CommandType = "Remove"
)

type Command struct {
	Type    CommandType
	Bidder  uuid.UUID
	Amount  decimal.Decimal
	Ceiling decimal.Decimal
	Kind    BidKind
	BidID   uuid.UUID
	Reason  string
	At      time.Time
}

func (c Command) at() time.Time {
	if c.At.IsZero() {
		return time.Now().UTC()
	}
	return c.At
}

// Apply runs one command against a lot's state and returns the events
// it produced together with the successor state. The input state is
// never mutated, so a caller whose durable write fails can simply keep
// the old value.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdPrepare:
		if s.Status != StatusPending {
			return nil, s, ErrInvalidTransition
		}
		if s.LotNumber <= 0 || !s.OpeningPrice.IsPositive() {
			return nil, s, ErrInvalidLotConfig
		}
		ns := s
		ns.Status = StatusPrepared
		return nil, ns, nil

	case CmdActivate:
		if s.Status != StatusPrepared {
			return nil, s, ErrInvalidTransition
		}
		ns := s.clone()
		ns.Status = StatusActive
		var evs []Event
		ns, evs = replayPreBids(ns, evs)
		ns, evs = resolveProxies(ns, evs)
		evs = append(evs, TimerReset{LotID: ns.LotID, LotNumber: ns.LotNumber, RemainingSeconds: ns.Rules.TimerSeconds})
		return evs, ns, nil

	case CmdSubmitBid:
		return applySubmitBid(s, cmd)

	case CmdRegisterProxy:
		return applyRegisterProxy(s, cmd)

	case CmdCancelProxy:
		idx := slices.IndexFunc(s.Proxies, func(r ProxyRegistration) bool { return r.Bidder == cmd.Bidder })
		if idx < 0 {
			return nil, s, ErrProxyNotFound
		}
		ns := s.clone()
		ns.Proxies = slices.Delete(ns.Proxies, idx, idx+1)
		return nil, ns, nil

	case CmdClockExpiry:
		return applyClockExpiry(s)

	case CmdForceEnd:
		if s.Status != StatusActive {
			return nil, s, ErrInvalidTransition
		}
		if cmd.Reason == "" {
			return nil, s, ErrReasonRequired
		}
		ns := s
		ns.Status = StatusEnded
		return []Event{LotEnded{LotID: s.LotID, LotNumber: s.LotNumber, Reason: cmd.Reason}}, ns, nil

	case CmdMarkUnsold:
		if s.Status != StatusActive && s.Status != StatusEnded {
			return nil, s, ErrInvalidTransition
		}
		if cmd.Reason == "" {
			return nil, s, ErrReasonRequired
		}
		ns := s
		ns.Status = StatusUnsold
		return []Event{LotUnsold{LotID: s.LotID, LotNumber: s.LotNumber, Reason: cmd.Reason}}, ns, nil

	case CmdSetReserve:
		if s.Status != StatusPending && s.Status != StatusPrepared {
			return nil, s, ErrReserveLocked
		}
		if !cmd.Amount.IsPositive() {
			return nil, s, ErrInvalidLotConfig
		}
		ns := s
		ns.ReservePrice = cmd.Amount
		ns.HasReserve = true
		return nil, ns, nil

	case CmdSetHammerPrice:
		if s.HasHammer {
			return nil, s, ErrHammerAlreadySet
		}
		if s.Status != StatusEnded && s.Status != StatusSold {
			return nil, s, ErrInvalidTransition
		}
		if !cmd.Amount.IsPositive() {
			return nil, s, ErrInvalidLotConfig
		}
		ns := s
		ns.Status = StatusSold
		ns.HammerPrice = cmd.Amount
		ns.HasHammer = true
		return []Event{LotSold{LotID: s.LotID, LotNumber: s.LotNumber, HammerPrice: cmd.Amount, Winner: ns.WinnerID, ReserveMet: ns.ReserveMet}}, ns, nil

	case CmdRetractBid, CmdInvalidateBid:
		if s.Status != StatusActive {
			return nil, s, ErrInvalidTransition
		}
		status := BidRetracted
		if cmd.Type == CmdInvalidateBid {
			status = BidInvalidated
		}
		ledger, err := s.Ledger.setStatus(cmd.BidID, status)
		if err != nil {
			return nil, s, err
		}
		ns := s
		ns.Ledger = ledger
		leader, _ := ns.Leader()
		ev := CurrentPriceChanged{LotID: s.LotID, LotNumber: s.LotNumber, Price: ns.CurrentPrice(), Leader: leader, BidCount: ns.BidCount()}
		return []Event{ev}, ns, nil

	case CmdRemove:
		if s.Status == StatusRemoved {
			return nil, s, ErrInvalidTransition
		}
		ns := s
		ns.Status = StatusRemoved
		return nil, ns, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applySubmitBid(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusActive {
		// Pre-bids queue up until activation.
		if cmd.Kind == KindPreBid && (s.Status == StatusPending || s.Status == StatusPrepared) {
			ns := s.clone()
			b := Bid{ID: uuid.New(), Bidder: cmd.Bidder, Amount: cmd.Amount, Kind: KindPreBid, Status: BidPlaced, PlacedAt: cmd.at()}
			ns.PreBids = append(ns.PreBids, b)
			ev := BidAccepted{LotID: s.LotID, LotNumber: s.LotNumber, BidID: b.ID, Bidder: b.Bidder, Amount: b.Amount, Kind: KindPreBid, BidCount: ns.BidCount()}
			return []Event{ev}, ns, nil
		}
		return nil, s, ErrLotNotActive
	}

	min := s.MinAcceptable()
	if cmd.Amount.LessThan(min) {
		return nil, s, &BidTooLowError{MinAcceptable: min}
	}

	ns := s.clone()
	var evs []Event
	b := Bid{ID: uuid.New(), Bidder: cmd.Bidder, Amount: cmd.Amount, Kind: cmd.Kind, Status: BidPlaced, PlacedAt: cmd.at()}
	ns, evs = acceptBid(ns, evs, b)
	if cmd.Kind != KindProxy {
		ns, evs = resolveProxies(ns, evs)
	}
	evs = append(evs, TimerReset{LotID: ns.LotID, LotNumber: ns.LotNumber, RemainingSeconds: ns.Rules.TimerSeconds})
	return evs, ns, nil
}

func applyRegisterProxy(s State, cmd Command) ([]Event, State, error) {
	if s.Status.Closed() {
		return nil, s, ErrInvalidTransition
	}
	if !cmd.Ceiling.GreaterThan(s.CurrentPrice()) {
		return nil, s, ErrProxyCeilingTooLow
	}
	if cmd.Amount.IsPositive() && cmd.Amount.GreaterThan(cmd.Ceiling) {
		return nil, s, ErrProxyStartAboveCeiling
	}

	ns := s.clone()
	if idx := slices.IndexFunc(ns.Proxies, func(r ProxyRegistration) bool { return r.Bidder == cmd.Bidder }); idx >= 0 {
		ns.Proxies = slices.Delete(ns.Proxies, idx, idx+1)
	}
	reg := ProxyRegistration{Bidder: cmd.Bidder, Ceiling: cmd.Ceiling, Seq: ns.NextProxySeq, RegisteredAt: cmd.at()}
	ns.NextProxySeq++
	ns.Proxies = append(ns.Proxies, reg)

	var evs []Event
	switch {
	case s.Status == StatusActive && cmd.Amount.GreaterThanOrEqual(ns.MinAcceptable()):
		// The start amount competes like any other bid and may wake
		// other registrations.
		b := Bid{ID: uuid.New(), Bidder: cmd.Bidder, Amount: cmd.Amount, Kind: KindProxy, Status: BidPlaced, PlacedAt: cmd.at()}
		ns, evs = acceptBid(ns, evs, b)
		ns, evs = resolveProxies(ns, evs)
		evs = append(evs, TimerReset{LotID: ns.LotID, LotNumber: ns.LotNumber, RemainingSeconds: ns.Rules.TimerSeconds})

	case s.Status == StatusActive:
		// Passive registration: never snipes a human leader, but a
		// standing proxy leader gets challenged right away.
		if leader, ok := ns.Ledger.LeaderBid(); ok && leader.Kind == KindProxy {
			before := len(ns.Ledger.Entries)
			ns, evs = resolveProxies(ns, evs)
			if len(ns.Ledger.Entries) > before {
				evs = append(evs, TimerReset{LotID: ns.LotID, LotNumber: ns.LotNumber, RemainingSeconds: ns.Rules.TimerSeconds})
			}
		}

	case cmd.Amount.IsPositive():
		// Before activation the start amount queues as a pre-bid.
		ns.PreBids = append(ns.PreBids, Bid{ID: uuid.New(), Bidder: cmd.Bidder, Amount: cmd.Amount, Kind: KindPreBid, Status: BidPlaced, PlacedAt: cmd.at()})
	}
	return evs, ns, nil
}

func applyClockExpiry(s State) ([]Event, State, error) {
	if s.Status != StatusActive {
		return nil, s, ErrInvalidTransition
	}
	ns := s
	price := s.CurrentPrice()
	leader, hasLeader := s.Ledger.LeaderBid()
	reserveMet := !s.HasReserve || price.GreaterThanOrEqual(s.ReservePrice)

	if hasLeader && reserveMet {
		ns.Status = StatusSold
		ns.HammerPrice = price
		ns.HasHammer = true
		ns.ReserveMet = true
		ns.WinnerID = leader.Bidder
		return []Event{LotSold{LotID: s.LotID, LotNumber: s.LotNumber, HammerPrice: price, Winner: leader.Bidder, ReserveMet: true}}, ns, nil
	}

	ns.Status = StatusUnsold
	ns.ReserveMet = false
	reason := "reserve not met"
	if !hasLeader {
		reason = "no bids"
	}
	return []Event{LotUnsold{LotID: s.LotID, LotNumber: s.LotNumber, Reason: reason}}, ns, nil
}

func acceptBid(s State, evs []Event, b Bid) (State, []Event) {
	s.Ledger = s.Ledger.add(b)
	count := s.BidCount()
	evs = append(evs,
		BidAccepted{LotID: s.LotID, LotNumber: s.LotNumber, BidID: b.ID, Bidder: b.Bidder, Amount: b.Amount, Kind: b.Kind, BidCount: count},
		CurrentPriceChanged{LotID: s.LotID, LotNumber: s.LotNumber, Price: s.CurrentPrice(), Leader: b.Bidder, BidCount: count},
	)
	return s, evs
}

// replayPreBids feeds queued pre-bids through the normal acceptance
// rule in arrival order. Rejections surface as events, not errors; a
// pre-bid that lost its margin by activation time is old news.
func replayPreBids(s State, evs []Event) (State, []Event) {
	queued := s.PreBids
	s.PreBids = nil
	for _, b := range queued {
		min := s.MinAcceptable()
		if b.Amount.LessThan(min) {
			evs = append(evs, BidRejected{LotID: s.LotID, LotNumber: s.LotNumber, Bidder: b.Bidder, Amount: b.Amount, MinAcceptable: min, Reason: "pre-bid below minimum at activation"})
			continue
		}
		s, evs = acceptBid(s, evs, b)
	}
	return s, evs
}
