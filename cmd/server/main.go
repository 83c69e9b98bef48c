package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/config"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/domain"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/httpapi"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/hub"
	"github.com/UmudovRavan/Autoria-Final-sub000/internal/store"
)

func main() {
	cfg := config.Load()

	var log *zap.Logger
	var err error
	if cfg.Production() {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var st store.Store
	if cfg.DatabaseURL != "" {
		st, err = store.OpenGorm(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("failed to open database", zap.Error(err))
		}
		log.Info("using postgres store")
	} else {
		st = store.NewMemory()
		log.Warn("DATABASE_URL not set, using in-memory store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, st, log)

	api := &httpapi.API{
		Hub:   h,
		Store: st,
		Log:   log,
	}
	if cfg.VehicleCatalog != "" {
		dir, err := domain.LoadDirectory(cfg.VehicleCatalog)
		if err != nil {
			log.Fatal("failed to load vehicle catalog", zap.Error(err))
		}
		api.Vehicles = dir
		log.Info("vehicle catalog loaded", zap.String("path", cfg.VehicleCatalog), zap.Int("vehicles", len(dir)))
	}
	handler := httpapi.SetupRoutes(api)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server stopped", zap.Error(err))
	}
}
