package backend

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hapsayrizal/barangay-booking/internal/booking"
	"github.com/hapsayrizal/barangay-booking/internal/store"
)

// The office's walk-in services, used when no API is configured.
var defaultServices = []booking.Service{
	{ID: 1, Name: "Barangay Clearance"},
	{ID: 2, Name: "Certificate of Indigency"},
	{ID: 3, Name: "Business Permit"},
	{ID: 4, Name: "Blotter / Mediation"},
}

const (
	localSlotDays     = 7
	localSlotCapacity = 5
)

// Local serves the wizard entirely from the kiosk: generated office-hours
// slots, the default service list, and the fallback store as the only
// persistence. Every booking it takes is saved pending sync.
type Local struct {
	store       store.AppointmentStore
	log         *zap.Logger
	now         func() time.Time
	residentSeq atomic.Int64
}

func NewLocal(st store.AppointmentStore, now func() time.Time, log *zap.Logger) *Local {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Local{store: st, now: now, log: log.Named("backend.local")}
}

// ListTimeSlots generates 30-minute office-hours slots (7:00 AM to 5:00 PM)
// for the coming week.
func (l *Local) ListTimeSlots(ctx context.Context) ([]booking.TimeSlot, error) {
	var slots []booking.TimeSlot
	id := int64(1)
	start := l.now()
	for day := 1; day <= localSlotDays; day++ {
		date := start.AddDate(0, 0, day).Format("2006-01-02")
		for hour := 7; hour <= 17; hour++ {
			for _, minute := range []int{0, 30} {
				if hour == 17 && minute > 0 {
					break
				}
				endHour, endMinute := hour, minute+30
				if endMinute == 60 {
					endHour, endMinute = hour+1, 0
				}
				slots = append(slots, booking.TimeSlot{
					ID:          id,
					Date:        date,
					StartTime:   fmt.Sprintf("%02d:%02d", hour, minute),
					EndTime:     fmt.Sprintf("%02d:%02d", endHour, endMinute),
					MaxCapacity: localSlotCapacity,
					Available:   localSlotCapacity,
				})
				id++
			}
		}
	}
	return slots, nil
}

func (l *Local) ListServices(ctx context.Context) ([]booking.Service, error) {
	return defaultServices, nil
}

// CreateResident has no server to talk to; it hands out kiosk-local IDs so
// the rest of the wizard behaves the same in both modes.
func (l *Local) CreateResident(ctx context.Context, r booking.Resident) (int64, error) {
	return l.residentSeq.Add(1), nil
}

// SubmitAppointment always lands in the fallback store: local-only bookings
// are by definition pending sync.
func (l *Local) SubmitAppointment(ctx context.Context, d booking.Draft) (booking.Confirmation, error) {
	ref := fmt.Sprintf("LOCAL-%d", l.now().UnixMilli())
	appt := store.Appointment{Draft: d, ReferenceNo: ref}
	if err := l.store.SaveOne(ctx, appt); err != nil {
		return booking.Confirmation{}, fmt.Errorf("save local booking: %w", err)
	}

	l.log.Info("local-only booking saved",
		zap.String("reference_no", ref),
		zap.String("draft_id", d.LocalID.String()))

	return booking.Confirmation{
		ReferenceNo: ref,
		Date:        d.Date,
		Time:        d.Time,
		Outcome:     booking.OutcomeSavedLocally,
		Message:     "Your booking was saved on this kiosk and will be submitted to the office system; keep your reference number.",
		CreatedAt:   l.now(),
	}, nil
}

func (l *Local) SaveLocal(ctx context.Context, d booking.Draft, referenceNo string) error {
	return l.store.SaveOne(ctx, store.Appointment{Draft: d, ReferenceNo: referenceNo})
}
