package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hapsayrizal/barangay-booking/internal/validation"
)

// Step identifies the wizard screen the resident is on.
type Step int

const (
	StepSelectSlot Step = iota // only in slot-first deployments
	StepIdentity
	StepSchedule
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepSelectSlot:
		return "select_slot"
	case StepIdentity:
		return "identity"
	case StepSchedule:
		return "schedule"
	case StepConfirmation:
		return "confirmation"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

var (
	ErrWrongStep       = errors.New("action not allowed at this step")
	ErrBusy            = errors.New("a previous request is still in progress")
	ErrNoSuchSlot      = errors.New("selected slot is not in the available list")
	ErrSlotUnavailable = errors.New("selected slot has no remaining capacity")
	ErrValidation      = errors.New("validation failed")
)

// Form holds the field values entered so far. Values survive Back/Next.
type Form struct {
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	ServiceID int64  `json:"service_id"`
	Notes     string `json:"notes"`
}

// Notice is a non-blocking, dismissible message recorded whenever the wizard
// degrades (empty listings, failed resident registration, local fallback).
type Notice struct {
	ID      string `json:"id"`
	Level   string `json:"level"` // "warning" or "error"
	Message string `json:"message"`
}

// IdentityInput is what step 1 collects.
type IdentityInput struct {
	FullName string
	Email    string
	Phone    string
}

// ScheduleInput is what step 2 collects. Either SlotID or Date+Time must be
// set; SlotID wins and fills Date/Time from the chosen slot.
type ScheduleInput struct {
	SlotID    *int64
	Date      string
	Time      string
	ServiceID int64
	Notes     string
}

// Options tune a workflow instance.
type Options struct {
	SlotFirst bool
	Now       func() time.Time
	Logger    *zap.Logger
}

// Workflow is the booking wizard state machine. All state is mutated only
// here; the only side effects of a transition are the backend calls the
// transition names. Safe for concurrent use; in-flight flags reject duplicate
// submissions instead of queueing them.
type Workflow struct {
	mu      sync.Mutex
	backend Backend
	log     *zap.Logger
	now     func() time.Time

	slotFirst bool

	step         Step
	form         Form
	fieldErrs    validation.FieldErrors
	notices      []Notice
	residentID   *int64
	selectedSlot *TimeSlot
	slots        []TimeSlot
	services     []Service
	confirmation *Confirmation
	draftID      uuid.UUID

	fetchingSlots    bool
	fetchingServices bool
	submitting       bool
}

func NewWorkflow(backend Backend, opts Options) *Workflow {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	w := &Workflow{
		backend:   backend,
		log:       opts.Logger.Named("workflow"),
		now:       opts.Now,
		slotFirst: opts.SlotFirst,
		fieldErrs: validation.FieldErrors{},
		draftID:   uuid.New(),
	}
	w.step = w.initialStep()
	return w
}

func (w *Workflow) initialStep() Step {
	if w.slotFirst {
		return StepSelectSlot
	}
	return StepIdentity
}

// LoadSlots fetches the available time slots. On failure the wizard degrades
// to an empty list plus a visible notice; the error is also returned so
// callers can distinguish "no slots" from "could not fetch".
func (w *Workflow) LoadSlots(ctx context.Context) ([]TimeSlot, error) {
	w.mu.Lock()
	if w.fetchingSlots {
		w.mu.Unlock()
		return nil, ErrBusy
	}
	w.fetchingSlots = true
	w.mu.Unlock()

	slots, err := w.backend.ListTimeSlots(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.fetchingSlots = false
	if err != nil {
		w.log.Error("time slot fetch failed", zap.Error(err))
		w.addNotice("warning", "Available time slots could not be loaded right now. Please try again shortly.")
		w.slots = nil
		return nil, err
	}
	w.slots = slots
	return slots, nil
}

// LoadServices fetches the purposes of visit, degrading the same way LoadSlots does.
func (w *Workflow) LoadServices(ctx context.Context) ([]Service, error) {
	w.mu.Lock()
	if w.fetchingServices {
		w.mu.Unlock()
		return nil, ErrBusy
	}
	w.fetchingServices = true
	w.mu.Unlock()

	services, err := w.backend.ListServices(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.fetchingServices = false
	if err != nil {
		w.log.Error("service fetch failed", zap.Error(err))
		w.addNotice("warning", "The list of services could not be loaded right now. Please try again shortly.")
		w.services = nil
		return nil, err
	}
	w.services = services
	return services, nil
}

// SelectSlot picks one of the loaded slots. In slot-first mode this advances
// to the identity step; on the schedule step it fills date and time.
func (w *Workflow) SelectSlot(slotID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepSelectSlot && w.step != StepSchedule {
		return ErrWrongStep
	}

	var found *TimeSlot
	for i := range w.slots {
		if w.slots[i].ID == slotID {
			found = &w.slots[i]
			break
		}
	}
	if found == nil {
		return ErrNoSuchSlot
	}
	if found.Available < 1 {
		return ErrSlotUnavailable
	}

	slot := *found
	w.selectedSlot = &slot
	w.form.Date = slot.Date
	w.form.Time = slot.StartTime

	if w.step == StepSelectSlot {
		w.step = StepIdentity
	}
	return nil
}

// SubmitIdentity validates step 1 and, on success, registers the resident and
// advances to the schedule step. A failed resident registration is logged and
// surfaced as a notice but does not block the wizard; the identity then
// travels inline with the appointment draft instead.
func (w *Workflow) SubmitIdentity(ctx context.Context, in IdentityInput) error {
	w.mu.Lock()
	if w.step != StepIdentity {
		w.mu.Unlock()
		return ErrWrongStep
	}
	if w.submitting {
		w.mu.Unlock()
		return ErrBusy
	}

	w.form.FullName = in.FullName
	w.form.Email = in.Email
	w.form.Phone = in.Phone

	errs := validation.FieldErrors{}
	if in.FullName == "" {
		errs["fullName"] = "Full name is required"
	}
	if !validation.Email(in.Email) {
		errs["email"] = "Enter a valid Gmail address"
	}
	if !validation.Phone(in.Phone) {
		errs["phone"] = "Enter a valid Philippine mobile number"
	}
	w.fieldErrs = errs
	if !errs.Empty() {
		w.mu.Unlock()
		return ErrValidation
	}

	w.submitting = true
	resident := Resident{FullName: in.FullName, Email: in.Email, Phone: in.Phone}
	w.mu.Unlock()

	id, err := w.backend.CreateResident(ctx, resident)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		w.log.Error("resident registration failed",
			zap.String("draft_id", w.draftID.String()),
			zap.Error(err))
		w.addNotice("warning", "We could not register your details with the office system. Your booking will still be taken.")
	} else {
		w.residentID = &id
	}
	w.step = StepSchedule
	return nil
}

// SubmitSchedule validates step 2 and submits the appointment. Both outcomes
// land on the confirmation step: a server-confirmed booking, or a local
// fallback with a LOCAL-<epoch-ms> reference and a clearly distinct message.
func (w *Workflow) SubmitSchedule(ctx context.Context, in ScheduleInput) (Confirmation, error) {
	w.mu.Lock()
	if w.step != StepSchedule {
		w.mu.Unlock()
		return Confirmation{}, ErrWrongStep
	}
	if w.submitting {
		w.mu.Unlock()
		return Confirmation{}, ErrBusy
	}

	// A slot chosen earlier (slot-first, or on this step) carries through
	// when the submit names no other schedule.
	if in.SlotID == nil && in.Date == "" && in.Time == "" && w.selectedSlot != nil {
		id := w.selectedSlot.ID
		in.SlotID = &id
	}

	if in.SlotID != nil {
		var found *TimeSlot
		for i := range w.slots {
			if w.slots[i].ID == *in.SlotID {
				found = &w.slots[i]
				break
			}
		}
		if found == nil {
			w.mu.Unlock()
			return Confirmation{}, ErrNoSuchSlot
		}
		if found.Available < 1 {
			w.mu.Unlock()
			return Confirmation{}, ErrSlotUnavailable
		}
		slot := *found
		w.selectedSlot = &slot
		in.Date = slot.Date
		in.Time = slot.StartTime
	}

	// Values already entered survive an empty field in the resubmit.
	if in.Date == "" {
		in.Date = w.form.Date
	}
	if in.Time == "" {
		in.Time = w.form.Time
	}

	w.form.Date = in.Date
	w.form.Time = in.Time
	w.form.ServiceID = in.ServiceID
	w.form.Notes = in.Notes

	errs := validation.FieldErrors{}
	if in.Date == "" {
		errs["date"] = "Pick a date"
	}
	if in.Time == "" && in.SlotID == nil {
		errs["time"] = "Pick a time"
	}
	if in.ServiceID == 0 {
		errs["purpose"] = "Pick a purpose of visit"
	}
	w.fieldErrs = errs
	if !errs.Empty() {
		w.mu.Unlock()
		return Confirmation{}, ErrValidation
	}

	w.submitting = true
	draft := Draft{
		LocalID:    w.draftID,
		ResidentID: w.residentID,
		FullName:   w.form.FullName,
		Email:      w.form.Email,
		Phone:      w.form.Phone,
		ServiceID:  in.ServiceID,
		TimeSlotID: in.SlotID,
		Date:       in.Date,
		Time:       in.Time,
		Notes:      in.Notes,
		Status:     StatusPending,
		CreatedAt:  w.now(),
	}
	w.mu.Unlock()

	conf, err := w.backend.SubmitAppointment(ctx, draft)
	if err != nil {
		w.log.Error("appointment submission failed",
			zap.String("draft_id", draft.LocalID.String()),
			zap.Error(err))

		conf = Confirmation{
			ReferenceNo: fmt.Sprintf("LOCAL-%d", w.now().UnixMilli()),
			Date:        draft.Date,
			Time:        draft.Time,
			Outcome:     OutcomeSavedLocally,
			Message:     "The office system could not be reached. Your booking was saved on this kiosk and will be submitted automatically; keep your reference number.",
			CreatedAt:   w.now(),
		}
		if saveErr := w.backend.SaveLocal(ctx, draft, conf.ReferenceNo); saveErr != nil {
			w.log.Error("local fallback save failed",
				zap.String("draft_id", draft.LocalID.String()),
				zap.Error(saveErr))
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		w.addNotice("error", conf.Message)
	}
	if conf.Message == "" {
		conf.Message = "Your appointment is booked. A confirmation will be sent to your email."
	}
	w.confirmation = &conf
	w.step = StepConfirmation
	return conf, nil
}

// Back returns from the schedule step to the identity step. Entered values
// are preserved in both directions.
func (w *Workflow) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepSchedule {
		return ErrWrongStep
	}
	if w.submitting {
		return ErrBusy
	}
	w.step = StepIdentity
	return nil
}

// Reset clears all workflow state for another booking.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.step = w.initialStep()
	w.form = Form{}
	w.fieldErrs = validation.FieldErrors{}
	w.notices = nil
	w.residentID = nil
	w.selectedSlot = nil
	w.confirmation = nil
	w.draftID = uuid.New()
}

// DismissNotice removes a notice by ID, reporting whether it existed.
func (w *Workflow) DismissNotice(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, n := range w.notices {
		if n.ID == id {
			w.notices = append(w.notices[:i], w.notices[i+1:]...)
			return true
		}
	}
	return false
}

func (w *Workflow) addNotice(level, message string) {
	w.notices = append(w.notices, Notice{
		ID:      uuid.NewString(),
		Level:   level,
		Message: message,
	})
}

// State is a point-in-time snapshot of the wizard, safe to serialize.
type State struct {
	Step         string                 `json:"step"`
	SlotFirst    bool                   `json:"slot_first"`
	Form         Form                   `json:"form"`
	FieldErrors  validation.FieldErrors `json:"field_errors"`
	Notices      []Notice               `json:"notices"`
	ResidentID   *int64                 `json:"resident_id,omitempty"`
	SelectedSlot *TimeSlot              `json:"selected_slot,omitempty"`
	Confirmation *Confirmation          `json:"confirmation,omitempty"`
	Submitting   bool                   `json:"submitting"`
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := State{
		Step:        w.step.String(),
		SlotFirst:   w.slotFirst,
		Form:        w.form,
		FieldErrors: validation.FieldErrors{},
		Notices:     append([]Notice(nil), w.notices...),
		Submitting:  w.submitting,
	}
	for k, v := range w.fieldErrs {
		st.FieldErrors[k] = v
	}
	if w.residentID != nil {
		id := *w.residentID
		st.ResidentID = &id
	}
	if w.selectedSlot != nil {
		slot := *w.selectedSlot
		st.SelectedSlot = &slot
	}
	if w.confirmation != nil {
		conf := *w.confirmation
		st.Confirmation = &conf
	}
	return st
}

// Step reports the current wizard step.
func (w *Workflow) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}
