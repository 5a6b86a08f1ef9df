// Package store is the local fallback record of appointments, used when the
// remote API is unreachable. It is a best-effort cache, not a durability
// guarantee: workflow callers log write failures and carry on.
package store

import (
	"context"
	"time"

	"github.com/hapsayrizal/barangay-booking/internal/booking"
)

// Appointment is a locally saved booking plus its sync bookkeeping.
type Appointment struct {
	booking.Draft
	ReferenceNo string // LOCAL-<ms> until synced, then the server reference
	Synced      bool
	UpdatedAt   time.Time
}

// AppointmentStore is the typed repository over the local key space. SaveAll
// replaces the whole set atomically: a failure midway must leave the previous
// data intact.
type AppointmentStore interface {
	GetAll(ctx context.Context) ([]Appointment, error)
	SaveOne(ctx context.Context, appt Appointment) error
	SaveAll(ctx context.Context, appts []Appointment) error
	PendingSync(ctx context.Context, limit int) ([]Appointment, error)
	MarkSynced(ctx context.Context, localID string, serverRef string) error
	Clear(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
