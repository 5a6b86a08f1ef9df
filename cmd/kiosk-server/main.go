package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hapsayrizal/barangay-booking/internal/api"
	"github.com/hapsayrizal/barangay-booking/internal/booking"
	"github.com/hapsayrizal/barangay-booking/internal/booking/backend"
	"github.com/hapsayrizal/barangay-booking/internal/cache"
	"github.com/hapsayrizal/barangay-booking/internal/config"
	"github.com/hapsayrizal/barangay-booking/internal/gateway"
	"github.com/hapsayrizal/barangay-booking/internal/notify"
	"github.com/hapsayrizal/barangay-booking/internal/store"
	"github.com/hapsayrizal/barangay-booking/internal/syncer"
)

const version = "1.2.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := newLogger(cfg.Env)
	defer log.Sync()
	log.Info("kiosk-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("api_base_url", cfg.APIBaseURL))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local fallback store
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Fatal("store open error", zap.Error(err))
	}
	defer st.Close()
	log.Info("local store opened", zap.String("path", cfg.StorePath))

	// Listing cache, optional
	var c *cache.Cache
	if cfg.RedisAddr != "" {
		c, err = cache.New(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.CacheTTL, log)
		if err != nil {
			log.Warn("redis unavailable, listing cache disabled", zap.Error(err))
			c = nil
		} else {
			defer c.Close()
			log.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
		}
	}

	gw := gateway.New(cfg.APIBaseURL, cfg.APITimeout, log)
	be := cache.WrapBackend(backend.NewRemote(gw, st, log), c)

	notifier := notify.New(notify.Config{
		SendgridAPIKey:   cfg.SendgridAPIKey,
		SendgridFrom:     cfg.SendgridFrom,
		SendgridFromName: cfg.SendgridFromName,
		TwilioSID:        cfg.TwilioSID,
		TwilioToken:      cfg.TwilioToken,
		TwilioFrom:       cfg.TwilioFrom,
	}, log)

	sessions := api.NewSessions(cfg.SessionTTL, func() *booking.Workflow {
		return booking.NewWorkflow(be, booking.Options{
			SlotFirst: cfg.SlotFirst,
			Logger:    log,
		})
	})
	sessions.StartJanitor(rootCtx, time.Minute)

	// Push locally saved bookings in the background so a kiosk that lost the
	// API during the day catches up without a separate worker deployment.
	sync := syncer.New(st, gw, cfg.SyncBatchSize, log)
	if _, err := sync.Schedule(rootCtx, cfg.SyncSchedule); err != nil {
		log.Warn("sync schedule invalid, background sync disabled",
			zap.String("schedule", cfg.SyncSchedule), zap.Error(err))
	}

	router := api.NewRouter(api.RouterConfig{
		Sessions: sessions,
		Gateway:  gw,
		Store:    st,
		Cache:    c,
		Notifier: notifier,
		Logger:   log,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down kiosk-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}

func newLogger(env string) *zap.Logger {
	if env == "prod" {
		log, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return log
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return log
}
