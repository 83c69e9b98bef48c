package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/ws"
)

func SetupRoutes(api *API) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(api.Hub, api.Log))

	r.Route("/auctions", func(r chi.Router) {
		r.Post("/", api.CreateAuction)
		r.Get("/", api.ListAuctions)

		r.Route("/{auctionID}", func(r chi.Router) {
			r.Get("/", api.GetAuction)
			r.Post("/start", api.StartAuction)
			r.Post("/stop", api.StopAuction)
			r.Post("/cancel", api.CancelAuction)
			r.Post("/extend", api.ExtendAuction)
			r.Post("/settle", api.SettleAuction)
			r.Post("/advance", api.Advance)
			r.Post("/jump", api.Jump)

			r.Route("/lots", func(r chi.Router) {
				r.Post("/", api.CreateLot)
				r.Get("/", api.ListLots)

				r.Route("/{lotNumber}", func(r chi.Router) {
					r.Get("/bids", api.ListBids)
					r.Post("/prepare", api.PrepareLot)
					r.Post("/activate", api.ActivateLot)
					r.Post("/force-end", api.ForceEndLot)
					r.Post("/mark-unsold", api.MarkLotUnsold)
					r.Post("/remove", api.RemoveLot)
					r.Post("/reserve", api.SetReserve)
					r.Post("/hammer", api.SetHammerPrice)
					r.Post("/bids/{bidID}/retract", api.RetractBid)
					r.Post("/bids/{bidID}/invalidate", api.InvalidateBid)
				})
			})
		})
	})

	return r
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
