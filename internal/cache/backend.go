package cache

import (
	"context"

	"github.com/hapsayrizal/barangay-booking/internal/booking"
)

// cachedBackend decorates a booking.Backend with cached listings. Writes pass
// straight through.
type cachedBackend struct {
	booking.Backend
	cache *Cache
}

// WrapBackend returns b with its two listing calls served cache-aside. A nil
// cache returns b unchanged.
func WrapBackend(b booking.Backend, c *Cache) booking.Backend {
	if c == nil {
		return b
	}
	return &cachedBackend{Backend: b, cache: c}
}

func (cb *cachedBackend) ListTimeSlots(ctx context.Context) ([]booking.TimeSlot, error) {
	var slots []booking.TimeSlot
	if cb.cache.getJSON(ctx, keySlots, &slots) {
		return slots, nil
	}
	slots, err := cb.Backend.ListTimeSlots(ctx)
	if err != nil {
		return nil, err
	}
	cb.cache.setJSON(ctx, keySlots, slots)
	return slots, nil
}

func (cb *cachedBackend) ListServices(ctx context.Context) ([]booking.Service, error) {
	var services []booking.Service
	if cb.cache.getJSON(ctx, keyServices, &services) {
		return services, nil
	}
	services, err := cb.Backend.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	cb.cache.setJSON(ctx, keyServices, services)
	return services, nil
}
