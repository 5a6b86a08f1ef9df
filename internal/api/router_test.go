package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hapsayrizal/barangay-booking/internal/booking"
	"github.com/hapsayrizal/barangay-booking/internal/booking/backend"
	"github.com/hapsayrizal/barangay-booking/internal/gateway"
	"github.com/hapsayrizal/barangay-booking/internal/store"
)

// upstream is a fake of the remote appointment service. failSubmit flips the
// appointment endpoint into returning 500 so the tests can force the local
// fallback path.
type upstream struct {
	failSubmit  atomic.Bool
	submitCalls atomic.Int64
}

func (u *upstream) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /public/time-slots/available", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":[
			{"id":11,"slot_date":"2025-09-02","start_time":"09:00:00","end_time":"09:30:00","max_capacity":5,"available_slots":3},
			{"id":12,"slot_date":"2025-09-02","start_time":"09:30:00","end_time":"10:00:00","max_capacity":5,"available_slots":0}
		]}`)
	})
	mux.HandleFunc("GET /public/services", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":[
			{"id":1,"name":"Barangay Clearance"},
			{"id":3,"name":"Business Permit"}
		]}`)
	})
	mux.HandleFunc("POST /residents", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"success":true,"data":{"id":42}}`)
	})
	mux.HandleFunc("POST /appointments", func(w http.ResponseWriter, r *http.Request) {
		u.submitCalls.Add(1)
		if u.failSubmit.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message":"database unavailable"}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"success":true,"data":{"reference_no":"APP-9001","id":77}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, u *upstream) (*httptest.Server, store.AppointmentStore) {
	t.Helper()

	remote := u.server(t)
	gw := gateway.New(remote.URL, 5*time.Second, zap.NewNop())

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	be := backend.NewRemote(gw, st, zap.NewNop())
	sessions := NewSessions(30*time.Minute, func() *booking.Workflow {
		return booking.NewWorkflow(be, booking.Options{Logger: zap.NewNop()})
	})

	router := NewRouter(RouterConfig{
		Sessions: sessions,
		Gateway:  gw,
		Store:    st,
		Logger:   zap.NewNop(),
		Env:      "test",
		Version:  "test",
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, st
}

func doJSON(t *testing.T, method, url string, body string) (*http.Response, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body == "" {
		rd = bytes.NewReader(nil)
	} else {
		rd = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && resp.StatusCode != http.StatusNoContent {
		t.Fatalf("decode %s %s: %v", method, url, err)
	}
	return resp, out
}

func createSession(t *testing.T, base string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, base+"/booking/sessions", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: status %d", resp.StatusCode)
	}
	id, _ := body["session_id"].(string)
	if id == "" {
		t.Fatal("create session: no session_id in response")
	}
	return id
}

func TestWizardHappyPath(t *testing.T) {
	u := &upstream{}
	srv, st := newTestServer(t, u)
	base := srv.URL
	sid := createSession(t, base)

	resp, body := doJSON(t, http.MethodGet, base+"/booking/sessions/"+sid+"/time-slots", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("time-slots: status %d", resp.StatusCode)
	}
	slots, _ := body["time_slots"].([]any)
	if len(slots) != 2 {
		t.Fatalf("time-slots: got %d slots, want 2", len(slots))
	}
	first := slots[0].(map[string]any)
	if got := first["display"]; got != "9:00 AM - 9:30 AM" {
		t.Errorf("slot display = %v, want 9:00 AM - 9:30 AM", got)
	}

	resp, _ = doJSON(t, http.MethodGet, base+"/booking/sessions/"+sid+"/services", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("services: status %d", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodPost, base+"/booking/sessions/"+sid+"/identity",
		`{"full_name":"Maria Santos","email":"maria.santos@gmail.com","phone":"09171234567"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("identity: status %d body %v", resp.StatusCode, body)
	}
	if got := body["step"]; got != "schedule" {
		t.Fatalf("after identity step = %v, want schedule", got)
	}
	if body["resident_id"] == nil {
		t.Error("after identity: resident_id not set")
	}

	resp, body = doJSON(t, http.MethodPost, base+"/booking/sessions/"+sid+"/schedule",
		`{"slot_id":11,"service_id":1,"notes":"renewal"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("schedule: status %d body %v", resp.StatusCode, body)
	}
	conf := body["confirmation"].(map[string]any)
	if got := conf["reference_no"]; got != "APP-9001" {
		t.Errorf("reference_no = %v, want APP-9001", got)
	}
	if got := conf["outcome"]; got != string(booking.OutcomeConfirmed) {
		t.Errorf("outcome = %v, want %s", got, booking.OutcomeConfirmed)
	}
	if got := conf["date"]; got != "2025-09-02" {
		t.Errorf("confirmation date = %v, want 2025-09-02", got)
	}

	// Nothing should be parked in the fallback store after a server booking.
	appts, err := st.GetAll(context.Background())
	if err != nil {
		t.Fatalf("store GetAll: %v", err)
	}
	if len(appts) != 0 {
		t.Errorf("fallback store has %d rows after a confirmed booking, want 0", len(appts))
	}
}

func TestWizardFallbackOnSubmitFailure(t *testing.T) {
	u := &upstream{}
	u.failSubmit.Store(true)
	srv, _ := newTestServer(t, u)
	base := srv.URL
	sid := createSession(t, base)

	doJSON(t, http.MethodPost, base+"/booking/sessions/"+sid+"/identity",
		`{"full_name":"Jose Ramos","email":"jose.ramos@gmail.com","phone":"+639181234567"}`)

	resp, body := doJSON(t, http.MethodPost, base+"/booking/sessions/"+sid+"/schedule",
		`{"date":"2025-09-03","time":"10:30","service_id":3,"notes":""}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("schedule: status %d body %v", resp.StatusCode, body)
	}
	conf := body["confirmation"].(map[string]any)
	ref, _ := conf["reference_no"].(string)
	if !regexp.MustCompile(`^LOCAL-\d+$`).MatchString(ref) {
		t.Errorf("reference_no = %q, want LOCAL-<epoch-ms>", ref)
	}
	if got := conf["outcome"]; got != string(booking.OutcomeSavedLocally) {
		t.Errorf("outcome = %v, want %s", got, booking.OutcomeSavedLocally)
	}

	resp, body = doJSON(t, http.MethodGet, base+"/local/appointments", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("local appointments: status %d", resp.StatusCode)
	}
	appts, _ := body["appointments"].([]any)
	if len(appts) != 1 {
		t.Fatalf("local appointments: got %d, want 1", len(appts))
	}
	row := appts[0].(map[string]any)
	if row["reference_no"] != ref {
		t.Errorf("stored reference_no = %v, want %v", row["reference_no"], ref)
	}
	if row["synced"] != false {
		t.Error("stored appointment already marked synced")
	}
}

func TestIdentityValidationErrors(t *testing.T) {
	u := &upstream{}
	srv, _ := newTestServer(t, u)
	base := srv.URL
	sid := createSession(t, base)

	resp, body := doJSON(t, http.MethodPost, base+"/booking/sessions/"+sid+"/identity",
		`{"full_name":"","email":"maria@yahoo.com","phone":"12345"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("identity: status %d, want 422", resp.StatusCode)
	}
	fieldErrs, _ := body["field_errors"].(map[string]any)
	for _, field := range []string{"fullName", "email", "phone"} {
		if _, ok := fieldErrs[field]; !ok {
			t.Errorf("missing field error for %q: %v", field, fieldErrs)
		}
	}

	// A rejected step 1 submits nothing upstream.
	if got := u.submitCalls.Load(); got != 0 {
		t.Errorf("appointment endpoint called %d times during failed identity", got)
	}
}

func TestScheduleRejectsFullSlot(t *testing.T) {
	u := &upstream{}
	srv, _ := newTestServer(t, u)
	base := srv.URL
	sid := createSession(t, base)

	doJSON(t, http.MethodGet, base+"/booking/sessions/"+sid+"/time-slots", "")
	doJSON(t, http.MethodPost, base+"/booking/sessions/"+sid+"/identity",
		`{"full_name":"Ana Cruz","email":"ana.cruz@gmail.com","phone":"09201234567"}`)

	// Slot 12 has zero availability in the fake upstream.
	resp, body := doJSON(t, http.MethodPost, base+"/booking/sessions/"+sid+"/schedule",
		`{"slot_id":12,"service_id":1}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("full slot: status %d body %v, want 409", resp.StatusCode, body)
	}
	if got, _ := body["error"].(string); got != "slot_full" {
		t.Errorf("error code = %q, want slot_full", got)
	}
}

func TestBackPreservesEnteredValues(t *testing.T) {
	u := &upstream{}
	srv, _ := newTestServer(t, u)
	base := srv.URL
	sid := createSession(t, base)

	doJSON(t, http.MethodPost, base+"/booking/sessions/"+sid+"/identity",
		`{"full_name":"Maria Santos","email":"maria.santos@gmail.com","phone":"09171234567"}`)

	resp, body := doJSON(t, http.MethodPost, base+"/booking/sessions/"+sid+"/back", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("back: status %d", resp.StatusCode)
	}
	if got := body["step"]; got != "identity" {
		t.Fatalf("after back step = %v, want identity", got)
	}
	form := body["form"].(map[string]any)
	if form["full_name"] != "Maria Santos" || form["email"] != "maria.santos@gmail.com" {
		t.Errorf("form lost values on back: %v", form)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	u := &upstream{}
	srv, _ := newTestServer(t, u)

	resp, _ := doJSON(t, http.MethodGet,
		srv.URL+"/booking/sessions/2b6c8d8e-9a1f-4a5e-8e0a-111111111111", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session: status %d, want 404", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/booking/sessions/not-a-uuid", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed session id: status %d, want 400", resp.StatusCode)
	}
}

func TestHealthReadyDegradedWhenUpstreamDown(t *testing.T) {
	u := &upstream{}
	remote := u.server(t)
	gw := gateway.New(remote.URL, 2*time.Second, zap.NewNop())
	remote.Close() // remote service is now unreachable

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	sessions := NewSessions(time.Minute, func() *booking.Workflow {
		return booking.NewWorkflow(backend.NewLocal(st, time.Now, zap.NewNop()), booking.Options{Logger: zap.NewNop()})
	})
	router := NewRouter(RouterConfig{
		Sessions: sessions,
		Gateway:  gw,
		Store:    st,
		Logger:   zap.NewNop(),
		Env:      "test",
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health/ready", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready: status %d, want 200 while degraded", resp.StatusCode)
	}
	if got := body["status"]; got != "degraded" {
		t.Errorf("status = %v, want degraded", got)
	}
	deps := body["dependencies"].(map[string]any)
	if deps["remote_api"] != "down" || deps["store"] != "ok" {
		t.Errorf("dependencies = %v", deps)
	}
}

func TestSessionSweep(t *testing.T) {
	sessions := NewSessions(10*time.Millisecond, func() *booking.Workflow {
		return booking.NewWorkflow(nil, booking.Options{Logger: zap.NewNop()})
	})
	sessions.Create()
	sessions.Create()
	if got := sessions.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
	time.Sleep(20 * time.Millisecond)
	sessions.sweep()
	if got := sessions.Len(); got != 0 {
		t.Errorf("Len after sweep = %d, want 0", got)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	u := &upstream{}
	srv, _ := newTestServer(t, u)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health/live", nil)
	req.Header.Set("X-Request-ID", "kiosk-7")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "kiosk-7" {
		t.Errorf("X-Request-ID = %q, want kiosk-7", got)
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/health/live", nil)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if got := resp2.Header.Get("X-Request-ID"); got == "" || strings.Contains(got, " ") {
		t.Errorf("generated X-Request-ID = %q", got)
	}
}
