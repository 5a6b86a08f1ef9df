package booking

import (
	"time"

	"github.com/google/uuid"
)

// Status is the single appointment status representation used above the
// gateway. The transport sends statuses as bare strings, nested objects, or
// numeric IDs; the gateway normalizes all of them onto this enumeration.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// DisplayName renders the status the way the staff screens label it.
func (s Status) DisplayName() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusConfirmed:
		return "Confirmed"
	case StatusCompleted:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// Outcome tags a confirmation as a real server booking or a local fallback.
// The two are never presented with the same banner.
type Outcome string

const (
	OutcomeConfirmed    Outcome = "confirmed"
	OutcomeSavedLocally Outcome = "saved_locally_pending_sync"
)

// TimeSlot is a bookable interval with finite capacity, fetched from the
// remote service and treated as immutable by the client.
type TimeSlot struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`       // 2006-01-02
	StartTime   string `json:"start_time"` // HH:MM
	EndTime     string `json:"end_time"`   // HH:MM
	MaxCapacity int    `json:"max_capacity"`
	Available   int    `json:"available_slots"`
}

// Service is a purpose of visit (Barangay Clearance, Business Permit, ...).
type Service struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Resident is the identity captured in step 1. The server assigns the ID; a
// nil ID means resident creation failed and the identity travels inline with
// the appointment draft instead.
type Resident struct {
	ID       *int64 `json:"id,omitempty"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Draft is the appointment assembled client-side across the wizard steps and
// submitted as one request.
type Draft struct {
	LocalID    uuid.UUID
	ResidentID *int64
	FullName   string
	Email      string
	Phone      string
	ServiceID  int64
	TimeSlotID *int64
	Date       string // 2006-01-02
	Time       string // HH:MM
	Notes      string
	Status     Status
	CreatedAt  time.Time
}

// Confirmation is what step 3 displays. A reference number is always present:
// the server-issued one on success, or a LOCAL-<epoch-ms> fallback.
type Confirmation struct {
	ReferenceNo string    `json:"reference_no"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Outcome     Outcome   `json:"outcome"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// AppointmentRecord is a hydrated appointment as the staff screens list it.
type AppointmentRecord struct {
	ID          int64
	ReferenceNo string
	Resident    Resident
	Service     Service
	TimeSlot    TimeSlot
	Date        string
	Time        string
	Notes       string
	Status      Status
	CreatedAt   time.Time
}
