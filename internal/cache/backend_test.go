package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hapsayrizal/barangay-booking/internal/booking"
)

type countingBackend struct {
	booking.Backend
	slotCalls    int
	serviceCalls int
}

func (b *countingBackend) ListTimeSlots(ctx context.Context) ([]booking.TimeSlot, error) {
	b.slotCalls++
	return []booking.TimeSlot{{ID: 1, Date: "2025-09-02", StartTime: "09:00", EndTime: "09:30", Available: 3}}, nil
}

func (b *countingBackend) ListServices(ctx context.Context) ([]booking.Service, error) {
	b.serviceCalls++
	return []booking.Service{{ID: 1, Name: "Barangay Clearance"}}, nil
}

// deadCache points at a port nothing listens on; every Redis call fails fast.
func deadCache() *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 50 * time.Millisecond,
			ReadTimeout: 50 * time.Millisecond,
			MaxRetries:  -1,
		}),
		ttl: time.Minute,
		log: zap.NewNop(),
	}
}

func TestWrapBackendNilCachePassthrough(t *testing.T) {
	be := &countingBackend{}
	if got := WrapBackend(be, nil); got != booking.Backend(be) {
		t.Error("WrapBackend with nil cache should return the backend unchanged")
	}
}

func TestListingsFallThroughWhenRedisDown(t *testing.T) {
	be := &countingBackend{}
	wrapped := WrapBackend(be, deadCache())
	ctx := context.Background()

	slots, err := wrapped.ListTimeSlots(ctx)
	if err != nil {
		t.Fatalf("ListTimeSlots: %v", err)
	}
	if len(slots) != 1 || slots[0].ID != 1 {
		t.Errorf("slots = %+v", slots)
	}
	if be.slotCalls != 1 {
		t.Errorf("backend slot calls = %d, want 1", be.slotCalls)
	}

	services, err := wrapped.ListServices(ctx)
	if err != nil {
		t.Fatalf("ListServices: %v", err)
	}
	if len(services) != 1 || services[0].Name != "Barangay Clearance" {
		t.Errorf("services = %+v", services)
	}
	if be.serviceCalls != 1 {
		t.Errorf("backend service calls = %d, want 1", be.serviceCalls)
	}

	// A second read cannot be served from the dead cache either.
	if _, err := wrapped.ListTimeSlots(ctx); err != nil {
		t.Fatalf("second ListTimeSlots: %v", err)
	}
	if be.slotCalls != 2 {
		t.Errorf("backend slot calls after second read = %d, want 2", be.slotCalls)
	}
}

func TestNilCachePingAndClose(t *testing.T) {
	var c *Cache
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("nil cache Ping = %v, want nil", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("nil cache Close = %v, want nil", err)
	}
}
