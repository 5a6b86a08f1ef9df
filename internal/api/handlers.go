package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hapsayrizal/barangay-booking/internal/booking"
	"github.com/hapsayrizal/barangay-booking/internal/gateway"
	"github.com/hapsayrizal/barangay-booking/internal/notify"
	"github.com/hapsayrizal/barangay-booking/internal/store"
	"github.com/hapsayrizal/barangay-booking/internal/timefmt"
)

// sessionWorkflow resolves the {sessionID} path parameter to a live workflow,
// writing the error response itself when it can't.
func sessionWorkflow(w http.ResponseWriter, r *http.Request, sessions *Sessions) (*booking.Workflow, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session_id", "session ID must be a UUID")
		return nil, false
	}
	wf, ok := sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session_not_found", "no active session with that ID; it may have expired")
		return nil, false
	}
	return wf, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return false
	}
	return true
}

// writeWorkflowError maps the workflow sentinels onto HTTP statuses. Field
// validation failures carry the per-field messages so the kiosk screen can
// highlight inputs.
func writeWorkflowError(w http.ResponseWriter, wf *booking.Workflow, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:       "validation failed",
			FieldErrors: wf.State().FieldErrors,
		})
	case errors.Is(err, booking.ErrWrongStep):
		writeError(w, http.StatusConflict, "wrong_step", err.Error())
	case errors.Is(err, booking.ErrBusy):
		writeError(w, http.StatusConflict, "busy", err.Error())
	case errors.Is(err, booking.ErrNoSuchSlot):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_full", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func createSessionHandler(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, wf := sessions.Create()
		writeJSON(w, http.StatusCreated, CreateSessionResponse{
			SessionID: id.String(),
			State:     wf.State(),
		})
	}
}

func sessionStateHandler(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, ok := sessionWorkflow(w, r, sessions)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, wf.State())
	}
}

func deleteSessionHandler(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "session ID must be a UUID")
			return
		}
		sessions.Delete(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// sessionTimeSlotsHandler loads the slots through the workflow so a fetch
// failure degrades to an empty list plus a visible notice rather than an
// error page.
func sessionTimeSlotsHandler(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, ok := sessionWorkflow(w, r, sessions)
		if !ok {
			return
		}
		slots, err := wf.LoadSlots(r.Context())
		if errors.Is(err, booking.ErrBusy) {
			writeError(w, http.StatusConflict, "busy", err.Error())
			return
		}
		out := make([]TimeSlotResponse, 0, len(slots))
		for _, s := range slots {
			out = append(out, timeSlotResponse(s))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"time_slots": out,
			"state":      wf.State(),
		})
	}
}

func sessionServicesHandler(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, ok := sessionWorkflow(w, r, sessions)
		if !ok {
			return
		}
		services, err := wf.LoadServices(r.Context())
		if errors.Is(err, booking.ErrBusy) {
			writeError(w, http.StatusConflict, "busy", err.Error())
			return
		}
		out := make([]ServiceResponse, 0, len(services))
		for _, s := range services {
			out = append(out, ServiceResponse{ID: s.ID, Name: s.Name, Description: s.Description})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"services": out,
			"state":    wf.State(),
		})
	}
}

func selectSlotHandler(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, ok := sessionWorkflow(w, r, sessions)
		if !ok {
			return
		}
		var req SelectSlotRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := wf.SelectSlot(req.SlotID); err != nil {
			writeWorkflowError(w, wf, err)
			return
		}
		writeJSON(w, http.StatusOK, wf.State())
	}
}

func submitIdentityHandler(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, ok := sessionWorkflow(w, r, sessions)
		if !ok {
			return
		}
		var req IdentityRequest
		if !decodeBody(w, r, &req) {
			return
		}
		err := wf.SubmitIdentity(r.Context(), booking.IdentityInput{
			FullName: req.FullName,
			Email:    req.Email,
			Phone:    req.Phone,
		})
		if err != nil {
			writeWorkflowError(w, wf, err)
			return
		}
		writeJSON(w, http.StatusOK, wf.State())
	}
}

func submitScheduleHandler(sessions *Sessions, notifier *notify.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, ok := sessionWorkflow(w, r, sessions)
		if !ok {
			return
		}
		var req ScheduleRequest
		if !decodeBody(w, r, &req) {
			return
		}
		conf, err := wf.SubmitSchedule(r.Context(), booking.ScheduleInput{
			SlotID:    req.SlotID,
			Date:      req.Date,
			Time:      req.Time,
			ServiceID: req.ServiceID,
			Notes:     req.Notes,
		})
		if err != nil {
			writeWorkflowError(w, wf, err)
			return
		}

		st := wf.State()
		if notifier != nil && conf.Outcome == booking.OutcomeConfirmed {
			notifier.BookingConfirmed(booking.Resident{
				ID:       st.ResidentID,
				FullName: st.Form.FullName,
				Email:    st.Form.Email,
				Phone:    st.Form.Phone,
			}, conf)
		}
		writeJSON(w, http.StatusOK, ConfirmationResponse{Confirmation: conf, State: st})
	}
}

func backHandler(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, ok := sessionWorkflow(w, r, sessions)
		if !ok {
			return
		}
		if err := wf.Back(); err != nil {
			writeWorkflowError(w, wf, err)
			return
		}
		writeJSON(w, http.StatusOK, wf.State())
	}
}

func resetHandler(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, ok := sessionWorkflow(w, r, sessions)
		if !ok {
			return
		}
		wf.Reset()
		writeJSON(w, http.StatusOK, wf.State())
	}
}

func dismissNoticeHandler(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, ok := sessionWorkflow(w, r, sessions)
		if !ok {
			return
		}
		if !wf.DismissNotice(chi.URLParam(r, "noticeID")) {
			writeError(w, http.StatusNotFound, "notice_not_found", "no notice with that ID")
			return
		}
		writeJSON(w, http.StatusOK, wf.State())
	}
}

// Staff endpoints proxy straight to the remote service; the kiosk never owns
// this data.

func listAppointmentsHandler(gw *gateway.Client, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := gw.ListAppointments(r.Context())
		if err != nil {
			log.Error("appointment list fetch failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "upstream_error", "could not reach the appointment service")
			return
		}
		out := make([]AppointmentResponse, 0, len(records))
		for _, rec := range records {
			out = append(out, appointmentResponse(rec))
		}
		writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
	}
}

func updateStatusHandler(gw *gateway.Client, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "appointmentID"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_id", "appointment ID must be an integer")
			return
		}
		var req UpdateStatusRequest
		if !decodeBody(w, r, &req) {
			return
		}
		st := booking.Status(strings.ToLower(strings.TrimSpace(req.Status)))
		switch st {
		case booking.StatusPending, booking.StatusConfirmed, booking.StatusCompleted, booking.StatusCancelled:
		default:
			writeError(w, http.StatusBadRequest, "invalid_status",
				"status must be one of pending, confirmed, completed, cancelled")
			return
		}
		if err := gw.UpdateAppointmentStatus(r.Context(), id, st); err != nil {
			log.Error("status update failed", zap.Int64("appointment_id", id), zap.Error(err))
			writeError(w, http.StatusBadGateway, "upstream_error", "could not update the appointment status")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": string(st)})
	}
}

func listTimeSlotsHandler(gw *gateway.Client, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := gw.ListTimeSlots(r.Context())
		if err != nil {
			log.Error("time slot list fetch failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "upstream_error", "could not reach the appointment service")
			return
		}
		out := make([]TimeSlotResponse, 0, len(slots))
		for _, s := range slots {
			out = append(out, timeSlotResponse(s))
		}
		writeJSON(w, http.StatusOK, map[string]any{"time_slots": out})
	}
}

func createTimeSlotHandler(gw *gateway.Client, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTimeSlotRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Date == "" || req.StartTime == "" || req.EndTime == "" || req.MaxCapacity < 1 {
			writeError(w, http.StatusBadRequest, "invalid_slot",
				"date, start_time, end_time and a positive max_capacity are required")
			return
		}
		created, err := gw.CreateTimeSlot(r.Context(), booking.TimeSlot{
			Date:        req.Date,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			MaxCapacity: req.MaxCapacity,
		})
		if err != nil {
			log.Error("time slot creation failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "upstream_error", "could not create the time slot")
			return
		}
		writeJSON(w, http.StatusCreated, timeSlotResponse(created))
	}
}

// listLocalAppointmentsHandler exposes the kiosk's fallback store, mostly for
// staff checking what is still waiting to be pushed.
func listLocalAppointmentsHandler(st store.AppointmentStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := st.GetAll(r.Context())
		if err != nil {
			log.Error("local appointment read failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "store_error", "could not read the local store")
			return
		}
		out := make([]LocalAppointmentResponse, 0, len(appts))
		for _, a := range appts {
			out = append(out, LocalAppointmentResponse{
				LocalID:     a.LocalID.String(),
				ReferenceNo: a.ReferenceNo,
				FullName:    a.FullName,
				Date:        a.Date,
				Time:        a.Time,
				ServiceID:   a.ServiceID,
				Status:      string(a.Status),
				Synced:      a.Synced,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
	}
}

func timeSlotResponse(s booking.TimeSlot) TimeSlotResponse {
	return TimeSlotResponse{
		ID:          s.ID,
		Date:        s.Date,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		MaxCapacity: s.MaxCapacity,
		Available:   s.Available,
		Display:     slotDisplay(s),
	}
}

// slotDisplay renders "9:00 AM - 9:30 AM"; unparseable times fall back to the
// raw values rather than hiding the slot.
func slotDisplay(s booking.TimeSlot) string {
	start, err := timefmt.Time12h(s.StartTime)
	if err != nil {
		start = s.StartTime
	}
	end, err := timefmt.Time12h(s.EndTime)
	if err != nil {
		end = s.EndTime
	}
	return fmt.Sprintf("%s - %s", start, end)
}

func appointmentResponse(rec booking.AppointmentRecord) AppointmentResponse {
	date, err := timefmt.ReadableDate(rec.Date)
	if err != nil {
		date = rec.Date
	}
	t, err := timefmt.Time12h(rec.Time)
	if err != nil {
		t = rec.Time
	}
	return AppointmentResponse{
		ID:           rec.ID,
		ReferenceNo:  rec.ReferenceNo,
		ResidentName: rec.Resident.FullName,
		Email:        rec.Resident.Email,
		Phone:        rec.Resident.Phone,
		Service:      rec.Service.Name,
		Date:         date,
		Time:         t,
		Notes:        rec.Notes,
		Status:       rec.Status.DisplayName(),
	}
}
