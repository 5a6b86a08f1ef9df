package api

import (
	"github.com/hapsayrizal/barangay-booking/internal/booking"
)

type CreateSessionResponse struct {
	SessionID string        `json:"session_id"`
	State     booking.State `json:"state"`
}

type SelectSlotRequest struct {
	SlotID int64 `json:"slot_id"`
}

type IdentityRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type ScheduleRequest struct {
	SlotID    *int64 `json:"slot_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	ServiceID int64  `json:"service_id"`
	Notes     string `json:"notes"`
}

type ConfirmationResponse struct {
	Confirmation booking.Confirmation `json:"confirmation"`
	State        booking.State        `json:"state"`
}

type ValidationErrorResponse struct {
	Error       string            `json:"error"`
	FieldErrors map[string]string `json:"field_errors"`
}

type TimeSlotResponse struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	MaxCapacity int    `json:"max_capacity"`
	Available   int    `json:"available_slots"`
	Display     string `json:"display"` // "9:00 AM - 9:30 AM"
}

type ServiceResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type AppointmentResponse struct {
	ID           int64  `json:"id"`
	ReferenceNo  string `json:"reference_no"`
	ResidentName string `json:"resident_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Service      string `json:"service"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Notes        string `json:"notes,omitempty"`
	Status       string `json:"status"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type CreateTimeSlotRequest struct {
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	MaxCapacity int    `json:"max_capacity"`
}

type LocalAppointmentResponse struct {
	LocalID     string `json:"local_id"`
	ReferenceNo string `json:"reference_no"`
	FullName    string `json:"full_name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	ServiceID   int64  `json:"service_id"`
	Status      string `json:"status"`
	Synced      bool   `json:"synced"`
}
