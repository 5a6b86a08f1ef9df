package booking

import "context"

// Backend is the pluggable data source behind the wizard. The gateway-backed
// and local-only modes are two implementations of this interface rather than
// two divergent wizards.
type Backend interface {
	ListTimeSlots(ctx context.Context) ([]TimeSlot, error)
	ListServices(ctx context.Context) ([]Service, error)
	CreateResident(ctx context.Context, r Resident) (int64, error)
	SubmitAppointment(ctx context.Context, d Draft) (Confirmation, error)

	// SaveLocal persists a draft that could not be submitted, under the given
	// fallback reference. Best-effort: the workflow logs failures and carries on.
	SaveLocal(ctx context.Context, d Draft, referenceNo string) error
}
