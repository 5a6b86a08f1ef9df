// Package backend provides the two interchangeable booking.Backend
// implementations: gateway-backed (the normal mode) and local-only (offline
// kiosks and demos).
package backend

import (
	"context"

	"go.uber.org/zap"

	"github.com/hapsayrizal/barangay-booking/internal/booking"
	"github.com/hapsayrizal/barangay-booking/internal/gateway"
	"github.com/hapsayrizal/barangay-booking/internal/store"
)

// Remote serves the wizard from the remote API and keeps the fallback store
// for drafts the API rejected or never received.
type Remote struct {
	gw    *gateway.Client
	store store.AppointmentStore
	log   *zap.Logger
}

func NewRemote(gw *gateway.Client, st store.AppointmentStore, log *zap.Logger) *Remote {
	if log == nil {
		log = zap.NewNop()
	}
	return &Remote{gw: gw, store: st, log: log.Named("backend.remote")}
}

func (r *Remote) ListTimeSlots(ctx context.Context) ([]booking.TimeSlot, error) {
	return r.gw.ListAvailableTimeSlots(ctx)
}

func (r *Remote) ListServices(ctx context.Context) ([]booking.Service, error) {
	return r.gw.ListPublicServices(ctx)
}

func (r *Remote) CreateResident(ctx context.Context, res booking.Resident) (int64, error) {
	return r.gw.CreateResident(ctx, res)
}

func (r *Remote) SubmitAppointment(ctx context.Context, d booking.Draft) (booking.Confirmation, error) {
	return r.gw.CreateAppointment(ctx, d)
}

func (r *Remote) SaveLocal(ctx context.Context, d booking.Draft, referenceNo string) error {
	appt := store.Appointment{
		Draft:       d,
		ReferenceNo: referenceNo,
	}
	if err := r.store.SaveOne(ctx, appt); err != nil {
		r.log.Error("fallback save failed",
			zap.String("reference_no", referenceNo),
			zap.Error(err))
		return err
	}
	r.log.Info("booking saved locally pending sync",
		zap.String("reference_no", referenceNo),
		zap.String("draft_id", d.LocalID.String()))
	return nil
}
