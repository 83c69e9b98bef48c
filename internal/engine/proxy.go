package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// resolveProxies re-asserts the correct leader after a competing bid.
// Each pass selects one challenger and synthesizes the single minimal
// bid that puts it in front: min(ceiling, currentPrice + increment).
// The synthesized bid may itself be challenged on the next pass, so
// two registrations ratchet the price up increment by increment until
// one runs out of ceiling. Every pass strictly raises the current
// price and ceilings are finite, so the loop terminates.
//
// Selection rules:
//   - a challenger needs a ceiling strictly above the current price;
//   - a registration never challenges its own standing bid;
//   - equal ceilings never displace a proxy leader, which is what
//     makes the earliest registration win ties;
//   - the lowest eligible ceiling goes first (ties by registration
//     order), so the weaker registration exhausts itself and the final
//     price stays minimal.
func resolveProxies(s State, evs []Event) (State, []Event) {
	for {
		leader, hasLeader := s.Ledger.LeaderBid()
		if !hasLeader {
			// Nothing to defend against; proxies respond to bids,
			// they do not open the bidding.
			return s, evs
		}
		price := s.CurrentPrice()

		var leaderCeiling decimal.Decimal
		leaderIsProxy := false
		if leader.Kind == KindProxy {
			if reg, ok := s.ProxyFor(leader.Bidder); ok {
				leaderIsProxy = true
				leaderCeiling = reg.Ceiling
			}
		}

		challenger := -1
		for i, reg := range s.Proxies {
			if reg.Bidder == leader.Bidder {
				continue
			}
			if !reg.Ceiling.GreaterThan(price) {
				continue
			}
			if leaderIsProxy && reg.Ceiling.Equal(leaderCeiling) {
				continue
			}
			if challenger < 0 ||
				reg.Ceiling.LessThan(s.Proxies[challenger].Ceiling) ||
				(reg.Ceiling.Equal(s.Proxies[challenger].Ceiling) && reg.Seq < s.Proxies[challenger].Seq) {
				challenger = i
			}
		}
		if challenger < 0 {
			return s, evs
		}

		reg := s.Proxies[challenger]
		amount := decimal.Min(reg.Ceiling, price.Add(s.Rules.MinIncrement))
		bid := Bid{ID: uuid.New(), Bidder: reg.Bidder, Amount: amount, Kind: KindProxy, Status: BidPlaced, PlacedAt: time.Now().UTC()}
		s, evs = acceptBid(s, evs, bid)
	}
}
