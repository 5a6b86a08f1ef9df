package gateway

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hapsayrizal/barangay-booking/internal/booking"
)

// The API wraps payloads as { "data": ..., "success": bool }, but older builds
// return the payload bare. unwrap accepts both.
func unwrap(body []byte) json.RawMessage {
	var env struct {
		Data    json.RawMessage `json:"data"`
		Success *bool           `json:"success"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		return env.Data
	}
	return body
}

// wireStatus absorbs the three status shapes the transport has been observed
// to send: a bare name, a nested {"status_name": ...} object, and a numeric
// status ID. Everything above the gateway sees only booking.Status.
type wireStatus booking.Status

func (s *wireStatus) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*s = wireStatus(statusFromName(name))
		return nil
	}

	var obj struct {
		StatusName string `json:"status_name"`
	}
	if err := json.Unmarshal(b, &obj); err == nil && obj.StatusName != "" {
		*s = wireStatus(statusFromName(obj.StatusName))
		return nil
	}

	var id int
	if err := json.Unmarshal(b, &id); err == nil {
		*s = wireStatus(statusFromID(id))
		return nil
	}

	*s = wireStatus(booking.StatusPending)
	return nil
}

func statusFromName(name string) booking.Status {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pending":
		return booking.StatusPending
	case "confirmed":
		return booking.StatusConfirmed
	case "completed":
		return booking.StatusCompleted
	case "cancelled", "canceled":
		return booking.StatusCancelled
	}
	return booking.StatusPending
}

func statusFromID(id int) booking.Status {
	switch id {
	case 2:
		return booking.StatusConfirmed
	case 3:
		return booking.StatusCompleted
	case 4:
		return booking.StatusCancelled
	}
	return booking.StatusPending
}

func statusID(s booking.Status) int {
	switch s {
	case booking.StatusConfirmed:
		return 2
	case booking.StatusCompleted:
		return 3
	case booking.StatusCancelled:
		return 4
	}
	return 1
}

// Slot IDs arrive under either "id" or "timeslot_id" depending on the API build.
type timeSlotWire struct {
	ID          int64  `json:"id"`
	TimeslotID  int64  `json:"timeslot_id"`
	SlotDate    string `json:"slot_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	MaxCapacity int    `json:"max_capacity"`
	Available   int    `json:"available_slots"`
}

func (w timeSlotWire) toDomain() booking.TimeSlot {
	id := w.ID
	if id == 0 {
		id = w.TimeslotID
	}
	return booking.TimeSlot{
		ID:          id,
		Date:        w.SlotDate,
		StartTime:   trimSeconds(w.StartTime),
		EndTime:     trimSeconds(w.EndTime),
		MaxCapacity: w.MaxCapacity,
		Available:   w.Available,
	}
}

// The API sends HH:MM:SS; the screens work with HH:MM.
func trimSeconds(t string) string {
	if len(t) == 8 && strings.Count(t, ":") == 2 {
		return t[:5]
	}
	return t
}

type serviceWire struct {
	ID          int64  `json:"id"`
	ServiceID   int64  `json:"service_id"`
	Name        string `json:"name"`
	ServiceName string `json:"service_name"`
	Description string `json:"description"`
}

func (w serviceWire) toDomain() booking.Service {
	id := w.ID
	if id == 0 {
		id = w.ServiceID
	}
	name := w.Name
	if name == "" {
		name = w.ServiceName
	}
	return booking.Service{ID: id, Name: name, Description: w.Description}
}

type residentWire struct {
	ID         int64  `json:"id"`
	ResidentID int64  `json:"resident_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

func (w residentWire) toDomain() booking.Resident {
	id := w.ID
	if id == 0 {
		id = w.ResidentID
	}
	r := booking.Resident{FullName: w.FullName, Email: w.Email, Phone: w.Phone}
	if id != 0 {
		r.ID = &id
	}
	return r
}

type createResidentRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type createAppointmentRequest struct {
	ResidentID      *int64  `json:"resident_id,omitempty"`
	ResidentName    string  `json:"resident_name"`
	ResidentEmail   string  `json:"resident_email"`
	ResidentPhone   string  `json:"resident_phone"`
	ServiceID       int64   `json:"service_id"`
	TimeSlotID      *int64  `json:"time_slot_id"`
	AppointmentDate string  `json:"appointment_date"`
	AppointmentTime *string `json:"appointment_time"`
	PurposeNotes    string  `json:"purpose_notes"`
	StatusID        int     `json:"status_id"`
}

type appointmentCreatedWire struct {
	ReferenceNo   string `json:"reference_no"`
	AppointmentID int64  `json:"appointment_id"`
	ID            int64  `json:"id"`
	CreatedAt     string `json:"created_at"`
}

type appointmentWire struct {
	ID              int64        `json:"id"`
	AppointmentID   int64        `json:"appointment_id"`
	ReferenceNo     string       `json:"reference_no"`
	Resident        residentWire `json:"resident"`
	Service         serviceWire  `json:"service"`
	TimeSlot        timeSlotWire `json:"time_slot"`
	AppointmentDate string       `json:"appointment_date"`
	AppointmentTime string       `json:"appointment_time"`
	Notes           string       `json:"notes"`
	Status          wireStatus   `json:"status"`
	CreatedAt       string       `json:"created_at"`
}

func (w appointmentWire) toDomain() booking.AppointmentRecord {
	id := w.ID
	if id == 0 {
		id = w.AppointmentID
	}
	slot := w.TimeSlot.toDomain()
	date := w.AppointmentDate
	if date == "" {
		date = slot.Date
	}
	at := trimSeconds(w.AppointmentTime)
	if at == "" {
		at = slot.StartTime
	}
	return booking.AppointmentRecord{
		ID:          id,
		ReferenceNo: w.ReferenceNo,
		Resident:    w.Resident.toDomain(),
		Service:     w.Service.toDomain(),
		TimeSlot:    slot,
		Date:        date,
		Time:        at,
		Notes:       w.Notes,
		Status:      booking.Status(w.Status),
		CreatedAt:   parseCreatedAt(w.CreatedAt),
	}
}

func parseCreatedAt(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

type createTimeSlotRequest struct {
	SlotDate    string `json:"slot_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	MaxCapacity int    `json:"max_capacity"`
	Available   int    `json:"available_slots"`
}

type updateStatusRequest struct {
	Status   string `json:"status"`
	StatusID int    `json:"status_id"`
}
