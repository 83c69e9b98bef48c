package engine

import (
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger is the append-only record of accepted bids for one lot.
// Entries are never removed; Invalidated/Retracted flips keep the
// audit trail intact while excluding the bid from price derivation.
type Ledger struct {
	Entries []Bid
}

// LeaderBid returns the countable bid holding the highest amount.
// Accepted amounts strictly increase, so amounts are distinct and the
// leader is unambiguous.
func (l Ledger) LeaderBid() (Bid, bool) {
	best := -1
	for i, b := range l.Entries {
		if b.Status != BidPlaced {
			continue
		}
		if best < 0 || b.Amount.GreaterThan(l.Entries[best].Amount) {
			best = i
		}
	}
	if best < 0 {
		return Bid{}, false
	}
	return l.Entries[best], true
}

// CurrentPrice derives the lot's authoritative price.
func (l Ledger) CurrentPrice(opening decimal.Decimal) decimal.Decimal {
	if top, ok := l.LeaderBid(); ok {
		return top.Amount
	}
	return opening
}

// Count is the number of countable bids.
func (l Ledger) Count() int {
	n := 0
	for _, b := range l.Entries {
		if b.Status == BidPlaced {
			n++
		}
	}
	return n
}

func (l Ledger) add(b Bid) Ledger {
	entries := slices.Clone(l.Entries)
	return Ledger{Entries: append(entries, b)}
}

// setStatus flips a placed bid to Invalidated or Retracted.
func (l Ledger) setStatus(id uuid.UUID, status BidStatus) (Ledger, error) {
	idx := -1
	for i, b := range l.Entries {
		if b.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return l, ErrBidNotFound
	}
	if l.Entries[idx].Status != BidPlaced {
		return l, ErrBidNotRetractable
	}
	entries := slices.Clone(l.Entries)
	entries[idx].Status = status
	return Ledger{Entries: entries}, nil
}
