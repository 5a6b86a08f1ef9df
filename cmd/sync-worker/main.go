package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/hapsayrizal/barangay-booking/internal/config"
	"github.com/hapsayrizal/barangay-booking/internal/gateway"
	"github.com/hapsayrizal/barangay-booking/internal/store"
	"github.com/hapsayrizal/barangay-booking/internal/syncer"
)

// sync-worker pushes bookings that were saved on the kiosk while the remote
// API was unreachable. It can run beside the kiosk-server against the same
// store file, or on its own for kiosks that only sync overnight.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := newLogger(cfg.Env)
	defer log.Sync()

	log.Info("sync-worker starting up",
		zap.String("env", cfg.Env),
		zap.String("schedule", cfg.SyncSchedule),
		zap.Int("batch_size", cfg.SyncBatchSize))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Fatal("store open error", zap.Error(err))
	}
	defer st.Close()

	gw := gateway.New(cfg.APIBaseURL, cfg.APITimeout, log)

	sync := syncer.New(st, gw, cfg.SyncBatchSize, log)
	cr, err := sync.Schedule(rootCtx, cfg.SyncSchedule)
	if err != nil {
		log.Fatal("invalid sync schedule",
			zap.String("schedule", cfg.SyncSchedule), zap.Error(err))
	}

	<-rootCtx.Done()
	log.Info("shutting down sync-worker")

	// Let an in-flight push finish before exiting.
	<-cr.Stop().Done()
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
