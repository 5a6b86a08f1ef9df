package api

import (
	"context"
	"net/http"
	"time"

	"github.com/hapsayrizal/barangay-booking/internal/cache"
	"github.com/hapsayrizal/barangay-booking/internal/gateway"
	"github.com/hapsayrizal/barangay-booking/internal/store"
)

type HealthHandler struct {
	store   store.AppointmentStore
	cache   *cache.Cache
	gw      *gateway.Client
	env     string
	version string
}

func NewHealthHandler(st store.AppointmentStore, c *cache.Cache, gw *gateway.Client, env, version string) *HealthHandler {
	return &HealthHandler{
		store:   st,
		cache:   c,
		gw:      gw,
		env:     env,
		version: version,
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	}
	writeJSON(w, http.StatusOK, resp)
}

// Readiness degrades rather than fails when optional dependencies (Redis, the
// remote API) are down: the kiosk can still take bookings into the local
// store. Only a broken store is fatal.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]string)
	status := "ok"

	storeCtx, storeCancel := context.WithTimeout(ctx, 1*time.Second)
	err := h.store.Ping(storeCtx)
	storeCancel()
	if err != nil {
		deps["store"] = "down"
		status = "error"
	} else {
		deps["store"] = "ok"
	}

	if h.cache != nil {
		cacheCtx, cacheCancel := context.WithTimeout(ctx, 1*time.Second)
		err = h.cache.Ping(cacheCtx)
		cacheCancel()
		if err != nil {
			deps["redis"] = "down"
			if status == "ok" {
				status = "degraded"
			}
		} else {
			deps["redis"] = "ok"
		}
	}

	apiCtx, apiCancel := context.WithTimeout(ctx, 2*time.Second)
	err = h.gw.Ping(apiCtx)
	apiCancel()
	if err != nil {
		deps["remote_api"] = "down"
		if status == "ok" {
			status = "degraded"
		}
	} else {
		deps["remote_api"] = "ok"
	}

	resp := ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}
