// Package gateway is the boundary between the booking screens and the remote
// appointment API. It speaks JSON over HTTP, unwraps the API's response
// envelope, and normalizes statuses. No retries and no timeouts beyond the
// client's own; callers decide whether to retry.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hapsayrizal/barangay-booking/internal/booking"
)

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func New(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.Named("gateway"),
	}
}

// ListAvailableTimeSlots fetches the public bookable slots. Failures are
// returned to the caller; display-only callers may degrade to an empty list,
// the booking workflow surfaces a notice instead of swallowing them.
func (c *Client) ListAvailableTimeSlots(ctx context.Context) ([]booking.TimeSlot, error) {
	body, err := c.get(ctx, "/public/time-slots/available")
	if err != nil {
		return nil, err
	}

	var wires []timeSlotWire
	if err := json.Unmarshal(unwrap(body), &wires); err != nil {
		return nil, fmt.Errorf("decode time slots: %w", err)
	}

	slots := make([]booking.TimeSlot, 0, len(wires))
	for _, w := range wires {
		slots = append(slots, w.toDomain())
	}
	return slots, nil
}

func (c *Client) ListPublicServices(ctx context.Context) ([]booking.Service, error) {
	body, err := c.get(ctx, "/public/services")
	if err != nil {
		return nil, err
	}

	var wires []serviceWire
	if err := json.Unmarshal(unwrap(body), &wires); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}

	services := make([]booking.Service, 0, len(wires))
	for _, w := range wires {
		services = append(services, w.toDomain())
	}
	return services, nil
}

// CreateResident registers the step-1 identity and returns the server-assigned
// resident ID.
func (c *Client) CreateResident(ctx context.Context, r booking.Resident) (int64, error) {
	req := createResidentRequest{FullName: r.FullName, Email: r.Email, Phone: r.Phone}

	resp, body, err := c.post(ctx, "/residents", req)
	if err != nil {
		return 0, fmt.Errorf("create resident: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &ResidentCreationError{StatusCode: resp.StatusCode, Body: truncate(string(body))}
	}

	var w residentWire
	if err := json.Unmarshal(unwrap(body), &w); err != nil {
		return 0, fmt.Errorf("decode resident: %w", err)
	}
	created := w.toDomain()
	if created.ID == nil {
		return 0, fmt.Errorf("resident response missing id")
	}
	return *created.ID, nil
}

// CreateAppointment submits the assembled draft. On success the returned
// confirmation carries the server reference number; the rare case of a 2xx
// response without one gets a synthesized APP-<epoch-ms> reference, matching
// what the office has always printed for those.
func (c *Client) CreateAppointment(ctx context.Context, d booking.Draft) (booking.Confirmation, error) {
	req := createAppointmentRequest{
		ResidentID:      d.ResidentID,
		ResidentName:    d.FullName,
		ResidentEmail:   d.Email,
		ResidentPhone:   d.Phone,
		ServiceID:       d.ServiceID,
		TimeSlotID:      d.TimeSlotID,
		AppointmentDate: d.Date,
		PurposeNotes:    d.Notes,
		StatusID:        statusID(booking.StatusPending),
	}
	if d.TimeSlotID == nil {
		t := d.Time
		req.AppointmentTime = &t
	}

	resp, body, err := c.post(ctx, "/appointments", req)
	if err != nil {
		return booking.Confirmation{}, &AppointmentSubmissionError{
			Message: "could not reach the appointment service",
			Err:     err,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("appointment submission rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body))))
		return booking.Confirmation{}, &AppointmentSubmissionError{
			StatusCode: resp.StatusCode,
			Message:    submissionMessage(resp.StatusCode, body),
		}
	}

	var w appointmentCreatedWire
	if err := json.Unmarshal(unwrap(body), &w); err != nil {
		return booking.Confirmation{}, &AppointmentSubmissionError{
			Message: "appointment service returned an unreadable response",
			Err:     err,
		}
	}

	ref := w.ReferenceNo
	if ref == "" {
		ref = fmt.Sprintf("APP-%d", time.Now().UnixMilli())
	}
	createdAt := parseCreatedAt(w.CreatedAt)
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return booking.Confirmation{
		ReferenceNo: ref,
		Date:        d.Date,
		Time:        d.Time,
		Outcome:     booking.OutcomeConfirmed,
		CreatedAt:   createdAt,
	}, nil
}

// ListAppointments fetches the staff view of all appointments.
func (c *Client) ListAppointments(ctx context.Context) ([]booking.AppointmentRecord, error) {
	body, err := c.get(ctx, "/appointments")
	if err != nil {
		return nil, err
	}

	var wires []appointmentWire
	if err := json.Unmarshal(unwrap(body), &wires); err != nil {
		return nil, fmt.Errorf("decode appointments: %w", err)
	}

	records := make([]booking.AppointmentRecord, 0, len(wires))
	for _, w := range wires {
		records = append(records, w.toDomain())
	}
	return records, nil
}

func (c *Client) UpdateAppointmentStatus(ctx context.Context, id int64, st booking.Status) error {
	req := updateStatusRequest{Status: st.DisplayName(), StatusID: statusID(st)}

	resp, body, err := c.put(ctx, fmt.Sprintf("/appointments/%d/status", id), req)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body))}
	}
	return nil
}

// ListTimeSlots fetches the admin view of all slots, available or not.
func (c *Client) ListTimeSlots(ctx context.Context) ([]booking.TimeSlot, error) {
	body, err := c.get(ctx, "/time-slots")
	if err != nil {
		return nil, err
	}

	var wires []timeSlotWire
	if err := json.Unmarshal(unwrap(body), &wires); err != nil {
		return nil, fmt.Errorf("decode time slots: %w", err)
	}

	slots := make([]booking.TimeSlot, 0, len(wires))
	for _, w := range wires {
		slots = append(slots, w.toDomain())
	}
	return slots, nil
}

func (c *Client) CreateTimeSlot(ctx context.Context, slot booking.TimeSlot) (booking.TimeSlot, error) {
	req := createTimeSlotRequest{
		SlotDate:    slot.Date,
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		MaxCapacity: slot.MaxCapacity,
		Available:   slot.Available,
	}

	resp, body, err := c.post(ctx, "/time-slots", req)
	if err != nil {
		return booking.TimeSlot{}, fmt.Errorf("create time slot: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return booking.TimeSlot{}, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body))}
	}

	var w timeSlotWire
	if err := json.Unmarshal(unwrap(body), &w); err != nil {
		return booking.TimeSlot{}, fmt.Errorf("decode time slot: %w", err)
	}
	return w.toDomain(), nil
}

// Ping checks the remote API is reachable. Used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "/public/services")
	return err
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body))}
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, path string, in any) (*http.Response, []byte, error) {
	return c.send(ctx, http.MethodPost, path, in)
}

func (c *Client) put(ctx context.Context, path string, in any) (*http.Response, []byte, error) {
	return c.send(ctx, http.MethodPut, path, in)
}

func (c *Client) send(ctx context.Context, method, path string, in any) (*http.Response, []byte, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

// submissionMessage extracts a displayable message from an error body without
// ever leaking a raw stack trace or HTML error page to the resident.
func submissionMessage(status int, body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return fmt.Sprintf("the appointment service rejected the booking (HTTP %d)", status)
}

func truncate(s string) string {
	const max = 512
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
