package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// simulate drives complete kiosk wizard sessions against a running
// kiosk-server: create session, load listings, submit identity, submit
// schedule. Identities are generated the way residents actually type them,
// Gmail addresses and 09-prefixed mobile numbers included.

type SimConfig struct {
	KioskBaseURL string
	Duration     time.Duration
	Workers      int
	InvalidRatio float64 // share of sessions that submit a bad identity first
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Rejected  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success, rejected bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if rejected {
		atomic.AddInt64(&om.Rejected, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	CreateSession OperationMetrics
	LoadListings  OperationMetrics
	Identity      OperationMetrics
	Schedule      OperationMetrics

	Confirmed    int64
	SavedLocally int64
}

type Simulator struct {
	config  SimConfig
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if cfg.Workers <= 0 || cfg.Duration <= 0 {
		log.Fatal("SIM_WORKERS and SIM_DURATION must be positive")
	}

	log.Printf("config: base_url=%s duration=%s workers=%d invalid_ratio=%.2f",
		cfg.KioskBaseURL, cfg.Duration, cfg.Workers, cfg.InvalidRatio)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	return SimConfig{
		KioskBaseURL: getEnv("SIM_KIOSK_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 5),
		InvalidRatio: getFloat("SIM_INVALID_RATIO", 0.2),
	}
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("running for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	faker := gofakeit.New(uint64(workerID) + 1)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			s.runSession(ctx, rng, faker)
		}
	}
}

// runSession walks one resident through the whole wizard.
func (s *Simulator) runSession(ctx context.Context, rng *rand.Rand, faker *gofakeit.Faker) {
	sid, ok := s.createSession(ctx)
	if !ok {
		return
	}

	slots := s.loadListings(ctx, sid)

	// Some residents mistype first. The kiosk must reject without advancing.
	if rng.Float64() < s.config.InvalidRatio {
		s.submitIdentity(ctx, sid, identityPayload(faker, false), true)
	}
	if !s.submitIdentity(ctx, sid, identityPayload(faker, true), false) {
		return
	}

	s.submitSchedule(ctx, sid, rng, slots)
}

func identityPayload(faker *gofakeit.Faker, valid bool) map[string]string {
	first := faker.FirstName()
	last := faker.LastName()
	if !valid {
		// Wrong domain plus a short phone, both must be flagged.
		return map[string]string{
			"full_name": first + " " + last,
			"email":     strings.ToLower(first) + "@" + faker.DomainName(),
			"phone":     "0917123",
		}
	}
	return map[string]string{
		"full_name": first + " " + last,
		"email":     strings.ToLower(first+"."+last) + strconv.Itoa(faker.Number(1, 999)) + "@gmail.com",
		"phone":     "09" + faker.DigitN(9),
	}
}

func (s *Simulator) createSession(ctx context.Context) (string, bool) {
	start := time.Now()
	resp, body, err := s.post(ctx, "/booking/sessions", nil)
	latency := time.Since(start)

	if err != nil || resp.StatusCode != http.StatusCreated {
		s.metrics.CreateSession.Record(latency, false, false)
		return "", false
	}
	var out struct {
		SessionID string `json:"session_id"`
	}
	if json.Unmarshal(body, &out) != nil || out.SessionID == "" {
		s.metrics.CreateSession.Record(latency, false, false)
		return "", false
	}
	s.metrics.CreateSession.Record(latency, true, false)
	return out.SessionID, true
}

type simSlot struct {
	ID        int64  `json:"id"`
	Available int    `json:"available_slots"`
	Date      string `json:"date"`
}

func (s *Simulator) loadListings(ctx context.Context, sid string) []simSlot {
	start := time.Now()
	resp, body, err := s.get(ctx, "/booking/sessions/"+sid+"/time-slots")
	if err == nil {
		_, _, err2 := s.get(ctx, "/booking/sessions/"+sid+"/services")
		err = err2
	}
	latency := time.Since(start)

	if err != nil || resp.StatusCode != http.StatusOK {
		s.metrics.LoadListings.Record(latency, false, false)
		return nil
	}
	var out struct {
		TimeSlots []simSlot `json:"time_slots"`
	}
	_ = json.Unmarshal(body, &out)
	s.metrics.LoadListings.Record(latency, true, false)
	return out.TimeSlots
}

func (s *Simulator) submitIdentity(ctx context.Context, sid string, payload map[string]string, expectReject bool) bool {
	start := time.Now()
	resp, _, err := s.post(ctx, "/booking/sessions/"+sid+"/identity", payload)
	latency := time.Since(start)

	if err != nil {
		s.metrics.Identity.Record(latency, false, false)
		return false
	}
	switch {
	case resp.StatusCode == http.StatusOK && !expectReject:
		s.metrics.Identity.Record(latency, true, false)
		return true
	case resp.StatusCode == http.StatusUnprocessableEntity:
		s.metrics.Identity.Record(latency, false, true)
		return false
	default:
		s.metrics.Identity.Record(latency, false, false)
		return false
	}
}

func (s *Simulator) submitSchedule(ctx context.Context, sid string, rng *rand.Rand, slots []simSlot) {
	payload := map[string]any{
		"service_id": int64(rng.Intn(4) + 1),
		"notes":      "",
	}
	picked := false
	for _, slot := range slots {
		if slot.Available > 0 && rng.Float64() < 0.5 {
			payload["slot_id"] = slot.ID
			picked = true
			break
		}
	}
	if !picked {
		day := time.Now().AddDate(0, 0, rng.Intn(7)+1)
		payload["date"] = day.Format("2006-01-02")
		payload["time"] = fmt.Sprintf("%02d:%02d", 8+rng.Intn(8), 30*rng.Intn(2))
	}

	start := time.Now()
	resp, body, err := s.post(ctx, "/booking/sessions/"+sid+"/schedule", payload)
	latency := time.Since(start)

	if err != nil || resp.StatusCode != http.StatusOK {
		rejected := err == nil && (resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusConflict)
		s.metrics.Schedule.Record(latency, false, rejected)
		return
	}

	var out struct {
		Confirmation struct {
			ReferenceNo string `json:"reference_no"`
			Outcome     string `json:"outcome"`
		} `json:"confirmation"`
	}
	_ = json.Unmarshal(body, &out)
	s.metrics.Schedule.Record(latency, true, false)

	if out.Confirmation.Outcome == "confirmed" && !strings.HasPrefix(out.Confirmation.ReferenceNo, "LOCAL-") {
		atomic.AddInt64(&s.metrics.Confirmed, 1)
	} else {
		atomic.AddInt64(&s.metrics.SavedLocally, 1)
	}
}

func (s *Simulator) get(ctx context.Context, path string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.KioskBaseURL+path, nil)
	if err != nil {
		return nil, nil, err
	}
	return s.do(req)
}

func (s *Simulator) post(ctx context.Context, path string, payload any) (*http.Response, []byte, error) {
	var rd *bytes.Reader
	if payload == nil {
		rd = bytes.NewReader(nil)
	} else {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.KioskBaseURL+path, rd)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *Simulator) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes(), nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Bookings confirmed by server: %d\n", atomic.LoadInt64(&s.metrics.Confirmed))
	fmt.Printf("Bookings saved locally:       %d\n", atomic.LoadInt64(&s.metrics.SavedLocally))
	fmt.Println()

	printOperationReport("Create Session", &s.metrics.CreateSession)
	printOperationReport("Load Listings", &s.metrics.LoadListings)
	printOperationReport("Submit Identity", &s.metrics.Identity)
	printOperationReport("Submit Schedule", &s.metrics.Schedule)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	rejected := atomic.LoadInt64(&om.Rejected)
	errors := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if rejected > 0 {
		fmt.Printf("  Rejected: %d (%.1f%%)\n", rejected, float64(rejected)/float64(total)*100)
	}
	if errors > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errors, float64(errors)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
