package store

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/domain"
)

// Memory keeps every record in process. It backs tests and lets the
// server run without a database.
type Memory struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]domain.Auction
	lots     map[uuid.UUID]domain.Lot
	bids     map[uuid.UUID]domain.Bid
	bidOrder []uuid.UUID
	proxies  map[uuid.UUID]map[uuid.UUID]domain.ProxyRegistration
}

func NewMemory() *Memory {
	return &Memory{
		auctions: make(map[uuid.UUID]domain.Auction),
		lots:     make(map[uuid.UUID]domain.Lot),
		bids:     make(map[uuid.UUID]domain.Bid),
		proxies:  make(map[uuid.UUID]map[uuid.UUID]domain.ProxyRegistration),
	}
}

func (m *Memory) SaveAuction(_ context.Context, a *domain.Auction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auctions[a.ID] = *a
	return nil
}

func (m *Memory) Auction(_ context.Context, id uuid.UUID) (*domain.Auction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.auctions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *Memory) ListAuctions(_ context.Context) ([]domain.Auction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Auction, 0, len(m.auctions))
	for _, a := range m.auctions {
		out = append(out, a)
	}
	return out, nil
}

func (m *Memory) SaveLot(_ context.Context, l *domain.Lot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lots[l.ID] = *l
	return nil
}

func (m *Memory) LotsByAuction(_ context.Context, auctionID uuid.UUID) ([]domain.Lot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Lot
	for _, l := range m.lots {
		if l.AuctionID == auctionID {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b domain.Lot) int { return a.Sequence - b.Sequence })
	return out, nil
}

// SaveTransition applies the whole transition under one lock. The
// referenced-row check runs before any write so a failure leaves the
// store untouched.
func (m *Memory) SaveTransition(_ context.Context, t Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.BidStatus != nil {
		if _, ok := m.bids[t.BidStatus.BidID]; !ok {
			return ErrNotFound
		}
	}

	for _, b := range t.Bids {
		if _, exists := m.bids[b.ID]; !exists {
			m.bidOrder = append(m.bidOrder, b.ID)
		}
		m.bids[b.ID] = *b
	}
	if t.BidStatus != nil {
		b := m.bids[t.BidStatus.BidID]
		b.Status = t.BidStatus.Status
		m.bids[b.ID] = b
	}
	if t.SaveProxy != nil {
		p := t.SaveProxy
		if m.proxies[p.LotID] == nil {
			m.proxies[p.LotID] = make(map[uuid.UUID]domain.ProxyRegistration)
		}
		m.proxies[p.LotID][p.BidderID] = *p
	}
	if t.DeleteProxy != nil {
		delete(m.proxies[t.DeleteProxy.LotID], t.DeleteProxy.BidderID)
	}
	if t.Lot != nil {
		m.lots[t.Lot.ID] = *t.Lot
	}
	return nil
}

func (m *Memory) BidsByLot(_ context.Context, lotID uuid.UUID) ([]domain.Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Bid
	for _, id := range m.bidOrder {
		if b := m.bids[id]; b.LotID == lotID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Memory) ProxiesByLot(_ context.Context, lotID uuid.UUID) ([]domain.ProxyRegistration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ProxyRegistration
	for _, p := range m.proxies[lotID] {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.ProxyRegistration) int { return a.Seq - b.Seq })
	return out, nil
}
