package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/auction"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/domain"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/engine"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/hub"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/lot"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/store"
)

// API bundles the handler dependencies. Vehicles may be nil, in which
// case lot creation skips the catalogue check.
type API struct {
	Hub      *hub.Hub
	Store    store.Store
	Vehicles domain.VehicleDirectory
	Log      *zap.Logger
}

type createAuctionRequest struct {
	Name         string          `json:"name"`
	LocationID   uuid.UUID       `json:"location_id"`
	StartsAt     time.Time       `json:"starts_at"`
	EndsAt       time.Time       `json:"ends_at"`
	MinIncrement decimal.Decimal `json:"min_increment"`
	LotTimerSec  int             `json:"lot_timer_sec"`
	Currency     string          `json:"currency"`
}

type createLotRequest struct {
	VehicleID    uuid.UUID       `json:"vehicle_id"`
	LotNumber    int             `json:"lot_number"`
	Sequence     int             `json:"sequence"`
	OpeningPrice decimal.Decimal `json:"opening_price"`
	ReservePrice decimal.Decimal `json:"reserve_price"`
	HasReserve   bool            `json:"has_reserve"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type extendRequest struct {
	Minutes int    `json:"minutes"`
	Reason  string `json:"reason"`
}

type jumpRequest struct {
	LotNumber int `json:"lot_number"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (api *API) CreateAuction(w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	rec := domain.Auction{
		ID:           uuid.New(),
		Name:         req.Name,
		LocationID:   req.LocationID,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		Status:       domain.AuctionScheduled,
		MinIncrement: req.MinIncrement,
		LotTimerSec:  req.LotTimerSec,
		Currency:     req.Currency,
	}
	if err := rec.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if err := api.Store.SaveAuction(r.Context(), &rec); err != nil {
		api.writeErr(w, err)
		return
	}

	reply := make(chan *auction.Orchestrator, 1)
	api.Hub.Inbox() <- hub.CreateAuction{Record: rec, Reply: reply}
	if <-reply == nil {
		http.Error(w, "failed to create auction", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (api *API) ListAuctions(w http.ResponseWriter, r *http.Request) {
	recs, err := api.Store.ListAuctions(r.Context())
	if err != nil {
		api.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (api *API) GetAuction(w http.ResponseWriter, r *http.Request) {
	orch := api.orchestrator(w, r)
	if orch == nil {
		return
	}
	reply := make(chan auction.View, 1)
	orch.Inbox() <- auction.GetState{Reply: reply}
	view := <-reply
	writeJSON(w, http.StatusOK, struct {
		domain.Auction
		ActiveLot  int `json:"active_lot"`
		NumLots    int `json:"num_lots"`
		NumClients int `json:"num_clients"`
	}{view.Record, view.ActiveLot, view.NumLots, view.NumClients})
}

func (api *API) StartAuction(w http.ResponseWriter, r *http.Request) {
	api.auctionOp(w, r, func(reply chan error) auction.Msg { return auction.Start{Reply: reply} })
}

func (api *API) StopAuction(w http.ResponseWriter, r *http.Request) {
	api.auctionOp(w, r, func(reply chan error) auction.Msg { return auction.Stop{Reply: reply} })
}

func (api *API) SettleAuction(w http.ResponseWriter, r *http.Request) {
	api.auctionOp(w, r, func(reply chan error) auction.Msg { return auction.Settle{Reply: reply} })
}

func (api *API) Advance(w http.ResponseWriter, r *http.Request) {
	api.auctionOp(w, r, func(reply chan error) auction.Msg { return auction.Advance{Reply: reply} })
}

func (api *API) CancelAuction(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	api.auctionOp(w, r, func(reply chan error) auction.Msg {
		return auction.Cancel{Reason: req.Reason, Reply: reply}
	})
}

func (api *API) ExtendAuction(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	api.auctionOp(w, r, func(reply chan error) auction.Msg {
		return auction.Extend{Minutes: req.Minutes, Reason: req.Reason, Reply: reply}
	})
}

func (api *API) Jump(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	api.auctionOp(w, r, func(reply chan error) auction.Msg {
		return auction.Jump{LotNumber: req.LotNumber, Reply: reply}
	})
}

func (api *API) CreateLot(w http.ResponseWriter, r *http.Request) {
	orch := api.orchestrator(w, r)
	if orch == nil {
		return
	}
	var req createLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	if api.Vehicles != nil {
		if _, err := api.Vehicles.Vehicle(r.Context(), req.VehicleID); err != nil {
			api.writeErr(w, err)
			return
		}
	}

	lotID := uuid.New()
	reply := make(chan error, 1)
	orch.Inbox() <- auction.CreateLot{
		Config: auction.LotConfig{
			LotID:        lotID,
			VehicleID:    req.VehicleID,
			LotNumber:    req.LotNumber,
			Sequence:     req.Sequence,
			OpeningPrice: req.OpeningPrice,
		},
		Reply: reply,
	}
	if err := <-reply; err != nil {
		api.writeErr(w, err)
		return
	}

	if req.HasReserve {
		res := api.lotOp(orch, req.LotNumber, engine.Command{Type: engine.CmdSetReserve, Amount: req.ReservePrice})
		if res.Err != nil {
			api.writeErr(w, res.Err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, struct {
		ID        uuid.UUID `json:"id"`
		LotNumber int       `json:"lot_number"`
	}{lotID, req.LotNumber})
}

func (api *API) ListLots(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(chi.URLParam(r, "auctionID"))
	if err != nil {
		http.Error(w, "invalid auction id", http.StatusBadRequest)
		return
	}
	lots, err := api.Store.LotsByAuction(r.Context(), auctionID)
	if err != nil {
		api.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lots)
}

func (api *API) ListBids(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(chi.URLParam(r, "auctionID"))
	if err != nil {
		http.Error(w, "invalid auction id", http.StatusBadRequest)
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "lotNumber"))
	if err != nil {
		http.Error(w, "invalid lot number", http.StatusBadRequest)
		return
	}
	lots, err := api.Store.LotsByAuction(r.Context(), auctionID)
	if err != nil {
		api.writeErr(w, err)
		return
	}
	for _, l := range lots {
		if l.LotNumber != n {
			continue
		}
		bids, err := api.Store.BidsByLot(r.Context(), l.ID)
		if err != nil {
			api.writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bids)
		return
	}
	http.Error(w, auction.ErrLotNotFound.Error(), http.StatusNotFound)
}

func (api *API) PrepareLot(w http.ResponseWriter, r *http.Request) {
	api.lotCommand(w, r, engine.Command{Type: engine.CmdPrepare})
}

func (api *API) ActivateLot(w http.ResponseWriter, r *http.Request) {
	api.lotCommand(w, r, engine.Command{Type: engine.CmdActivate})
}

func (api *API) RemoveLot(w http.ResponseWriter, r *http.Request) {
	api.lotCommand(w, r, engine.Command{Type: engine.CmdRemove})
}

func (api *API) ForceEndLot(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	api.lotCommand(w, r, engine.Command{Type: engine.CmdForceEnd, Reason: req.Reason})
}

func (api *API) MarkLotUnsold(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	api.lotCommand(w, r, engine.Command{Type: engine.CmdMarkUnsold, Reason: req.Reason})
}

func (api *API) SetReserve(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	api.lotCommand(w, r, engine.Command{Type: engine.CmdSetReserve, Amount: req.Amount})
}

func (api *API) SetHammerPrice(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	api.lotCommand(w, r, engine.Command{Type: engine.CmdSetHammerPrice, Amount: req.Amount})
}

func (api *API) RetractBid(w http.ResponseWriter, r *http.Request) {
	api.bidStatusCommand(w, r, engine.CmdRetractBid)
}

func (api *API) InvalidateBid(w http.ResponseWriter, r *http.Request) {
	api.bidStatusCommand(w, r, engine.CmdInvalidateBid)
}

func (api *API) bidStatusCommand(w http.ResponseWriter, r *http.Request, t engine.CommandType) {
	bidID, err := uuid.Parse(chi.URLParam(r, "bidID"))
	if err != nil {
		http.Error(w, "invalid bid id", http.StatusBadRequest)
		return
	}
	api.lotCommand(w, r, engine.Command{Type: t, BidID: bidID})
}

// orchestrator resolves the auction from the URL, reviving it from the
// store if the process restarted since it was created. Writes the
// error response itself and returns nil on failure.
func (api *API) orchestrator(w http.ResponseWriter, r *http.Request) *auction.Orchestrator {
	id, err := uuid.Parse(chi.URLParam(r, "auctionID"))
	if err != nil {
		http.Error(w, "invalid auction id", http.StatusBadRequest)
		return nil
	}

	reply := make(chan *auction.Orchestrator, 1)
	api.Hub.Inbox() <- hub.GetAuction{ID: id, Reply: reply}
	if orch := <-reply; orch != nil {
		return orch
	}

	rec, err := api.Store.Auction(r.Context(), id)
	if err != nil {
		api.writeErr(w, err)
		return nil
	}
	api.Hub.Inbox() <- hub.EnsureAuction{Record: *rec, Reply: reply}
	orch := <-reply
	if orch == nil {
		http.Error(w, "failed to load auction", http.StatusInternalServerError)
	}
	return orch
}

func (api *API) auctionOp(w http.ResponseWriter, r *http.Request, build func(chan error) auction.Msg) {
	orch := api.orchestrator(w, r)
	if orch == nil {
		return
	}
	reply := make(chan error, 1)
	orch.Inbox() <- build(reply)
	if err := <-reply; err != nil {
		api.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (api *API) lotCommand(w http.ResponseWriter, r *http.Request, cmd engine.Command) {
	orch := api.orchestrator(w, r)
	if orch == nil {
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "lotNumber"))
	if err != nil {
		http.Error(w, "invalid lot number", http.StatusBadRequest)
		return
	}
	res := api.lotOp(orch, n, cmd)
	if res.Err != nil {
		api.writeErr(w, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
	}{string(res.Status)})
}

func (api *API) lotOp(orch *auction.Orchestrator, n int, cmd engine.Command) lot.Result {
	reply := make(chan lot.Result, 1)
	orch.Inbox() <- auction.LotOp{LotNumber: n, Cmd: cmd, Reply: reply}
	return <-reply
}

func (api *API) writeErr(w http.ResponseWriter, err error) {
	var tooLow *engine.BidTooLowError

	switch {
	case errors.As(err, &tooLow):
		writeJSON(w, http.StatusConflict, struct {
			Error         string          `json:"error"`
			MinAcceptable decimal.Decimal `json:"min_acceptable"`
		}{err.Error(), tooLow.MinAcceptable})
		return

	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, auction.ErrLotNotFound),
		errors.Is(err, domain.ErrVehicleNotFound),
		errors.Is(err, engine.ErrBidNotFound),
		errors.Is(err, engine.ErrProxyNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)

	case errors.Is(err, engine.ErrReasonRequired),
		errors.Is(err, engine.ErrInvalidLotConfig),
		errors.Is(err, auction.ErrInvalidExtension),
		errors.Is(err, domain.ErrInvalidSchedule):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)

	case errors.Is(err, engine.ErrLotNotActive),
		errors.Is(err, engine.ErrInvalidTransition),
		errors.Is(err, engine.ErrHammerAlreadySet),
		errors.Is(err, engine.ErrReserveLocked),
		errors.Is(err, engine.ErrProxyCeilingTooLow),
		errors.Is(err, engine.ErrProxyStartAboveCeiling),
		errors.Is(err, engine.ErrBidNotRetractable),
		errors.Is(err, auction.ErrNotReadyToStart),
		errors.Is(err, auction.ErrNotRunning),
		errors.Is(err, auction.ErrNotEnded),
		errors.Is(err, auction.ErrAlreadyTerminal),
		errors.Is(err, auction.ErrLotUnavailable),
		errors.Is(err, auction.ErrDuplicateLotNumber),
		errors.Is(err, auction.ErrAnotherLotActive):
		http.Error(w, err.Error(), http.StatusConflict)

	case errors.Is(err, store.ErrPersistenceFailure):
		api.Log.Error("request failed on persistence", zap.Error(err))
		http.Error(w, "persistence failure", http.StatusServiceUnavailable)

	default:
		api.Log.Error("unhandled request error", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
