package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/domain"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/hub"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, domain.StaticDirectory) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st := store.NewMemory()
	dir := domain.StaticDirectory{}
	api := &API{
		Hub:      hub.NewHub(ctx, st, zap.NewNop()),
		Store:    st,
		Vehicles: dir,
		Log:      zap.NewNop(),
	}
	srv := httptest.NewServer(SetupRoutes(api))
	t.Cleanup(srv.Close)
	return srv, dir
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func createAuction(t *testing.T, srv *httptest.Server) uuid.UUID {
	t.Helper()
	resp := post(t, srv.URL+"/auctions", map[string]any{
		"name":          "Friday sale",
		"starts_at":     time.Now().Format(time.RFC3339),
		"ends_at":       time.Now().Add(2 * time.Hour).Format(time.RFC3339),
		"min_increment": "100",
		"lot_timer_sec": 60,
		"currency":      "USD",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domain.Auction
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, domain.AuctionScheduled, created.Status)
	return created.ID
}

func TestCreateAuctionValidatesSchedule(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := post(t, srv.URL+"/auctions", map[string]any{
		"name":          "backwards",
		"starts_at":     time.Now().Add(2 * time.Hour).Format(time.RFC3339),
		"ends_at":       time.Now().Format(time.RFC3339),
		"min_increment": "100",
		"lot_timer_sec": 60,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAuctionLifecycleOverHTTP(t *testing.T) {
	srv, dir := newTestServer(t)
	id := createAuction(t, srv)
	base := fmt.Sprintf("%s/auctions/%s", srv.URL, id)

	vehicleID := uuid.New()
	dir[vehicleID] = &domain.Vehicle{ID: vehicleID, VIN: "1FTRX18W1XNB12345", Make: "Ford", Model: "F-150", Year: 1999}

	// Unknown vehicle is refused, known one creates the lot.
	resp := post(t, base+"/lots", map[string]any{
		"vehicle_id": uuid.New(), "lot_number": 1, "sequence": 1, "opening_price": "1000",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = post(t, base+"/lots", map[string]any{
		"vehicle_id": vehicleID, "lot_number": 1, "sequence": 1, "opening_price": "1000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Starting before any lot is prepared is a conflict.
	resp = post(t, base+"/start", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = post(t, base+"/lots/1/prepare", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, base+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The run is visible through the read side.
	getResp, err := http.Get(base)
	require.NoError(t, err)
	defer getResp.Body.Close()
	var got struct {
		Status    domain.AuctionStatus `json:"status"`
		ActiveLot int                  `json:"active_lot"`
	}
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&got))
	require.Equal(t, domain.AuctionRunning, got.Status)
	require.Equal(t, 1, got.ActiveLot)

	resp = post(t, base+"/cancel", map[string]any{"reason": ""})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = post(t, base+"/cancel", map[string]any{"reason": "consignor withdrew"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDuplicateLotNumberOverHTTP(t *testing.T) {
	srv, dir := newTestServer(t)
	id := createAuction(t, srv)
	base := fmt.Sprintf("%s/auctions/%s", srv.URL, id)

	vehicleID := uuid.New()
	dir[vehicleID] = &domain.Vehicle{ID: vehicleID}

	body := map[string]any{"vehicle_id": vehicleID, "lot_number": 5, "sequence": 1, "opening_price": "1000"}
	require.Equal(t, http.StatusCreated, post(t, base+"/lots", body).StatusCode)
	require.Equal(t, http.StatusConflict, post(t, base+"/lots", body).StatusCode)
}

func TestUnknownAuctionIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := post(t, fmt.Sprintf("%s/auctions/%s/start", srv.URL, uuid.New()), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
