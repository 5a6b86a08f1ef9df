// Package syncer pushes bookings that were saved on the kiosk (API
// unreachable at submission time) back to the office system. Bookings stay
// "saved locally pending sync" until a push succeeds.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hapsayrizal/barangay-booking/internal/gateway"
	"github.com/hapsayrizal/barangay-booking/internal/store"
)

type Syncer struct {
	store store.AppointmentStore
	gw    *gateway.Client
	batch int
	log   *zap.Logger
}

func New(st store.AppointmentStore, gw *gateway.Client, batch int, log *zap.Logger) *Syncer {
	if batch <= 0 {
		batch = 50
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{store: st, gw: gw, batch: batch, log: log.Named("syncer")}
}

// RunOnce pushes one batch of pending bookings. Per-item failures are logged
// and left pending for the next run; the returned count is successful pushes.
func (s *Syncer) RunOnce(ctx context.Context) (int, error) {
	pending, err := s.store.PendingSync(ctx, s.batch)
	if err != nil {
		return 0, fmt.Errorf("load pending bookings: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	synced := 0
	for _, appt := range pending {
		conf, err := s.gw.CreateAppointment(ctx, appt.Draft)
		if err != nil {
			s.log.Warn("push failed, will retry next run",
				zap.String("local_reference", appt.ReferenceNo),
				zap.Error(err))
			continue
		}

		if err := s.store.MarkSynced(ctx, appt.LocalID.String(), conf.ReferenceNo); err != nil {
			// The booking reached the server but the local mark failed; the
			// next run would submit it again. Loud log so operators can
			// reconcile duplicates.
			s.log.Error("booking pushed but could not be marked synced",
				zap.String("local_reference", appt.ReferenceNo),
				zap.String("server_reference", conf.ReferenceNo),
				zap.Error(err))
			continue
		}

		s.log.Info("booking synced",
			zap.String("local_reference", appt.ReferenceNo),
			zap.String("server_reference", conf.ReferenceNo))
		synced++
	}

	return synced, nil
}

// Schedule runs the syncer on the given cron spec (e.g. "@every 5m") until
// ctx is done. It runs once immediately at startup.
func (s *Syncer) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	s.runLogged(ctx)

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		s.runLogged(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}

func (s *Syncer) runLogged(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	start := time.Now()
	synced, err := s.RunOnce(runCtx)
	if err != nil {
		s.log.Error("sync run failed", zap.Error(err))
		return
	}
	if synced > 0 {
		s.log.Info("sync run complete",
			zap.Int("synced", synced),
			zap.Duration("took", time.Since(start)))
	}
}
