package zones

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/zonescan/internal/domain"
)

// MemoryStore is an in-memory Repository used in tests and simulations.
type MemoryStore struct {
	mu     sync.RWMutex
	zones  map[string]map[string]*domain.Zone // symbol -> id -> zone
	events map[string][]domain.ZoneEvent      // zone id -> events
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		zones:  make(map[string]map[string]*domain.Zone),
		events: make(map[string][]domain.ZoneEvent),
	}
}

// Upsert implements Repository. Zones are copied on the way in so later
// mutations by the caller do not leak into the store.
func (s *MemoryStore) Upsert(_ context.Context, zone *domain.Zone) error {
	cp, err := cloneZone(zone)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bySymbol, ok := s.zones[zone.Symbol]
	if !ok {
		bySymbol = make(map[string]*domain.Zone)
		s.zones[zone.Symbol] = bySymbol
	}
	bySymbol[zone.ID] = cp
	return nil
}

// Get implements Repository.
func (s *MemoryStore) Get(_ context.Context, symbol, id string) (*domain.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	zone, ok := s.zones[symbol][id]
	if !ok {
		return nil, nil
	}
	return cloneZone(zone)
}

// GetActive implements Repository.
func (s *MemoryStore) GetActive(_ context.Context, symbol string) ([]*domain.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Zone
	for _, zone := range s.zones[symbol] {
		if !zone.IsActive() {
			continue
		}
		cp, err := cloneZone(zone)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	sortZones(out)
	return out, nil
}

// GetNearPrice implements Repository.
func (s *MemoryStore) GetNearPrice(_ context.Context, symbol string, price, tolerancePct decimal.Decimal) ([]*domain.Zone, error) {
	low, high := nearBand(price, tolerancePct)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Zone
	for _, zone := range s.zones[symbol] {
		if !zone.IsActive() || !zone.Overlaps(low, high) {
			continue
		}
		cp, err := cloneZone(zone)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	sortZones(out)
	return out, nil
}

// AppendEvent implements Repository.
func (s *MemoryStore) AppendEvent(_ context.Context, event domain.ZoneEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.events[event.ZoneID] {
		if existing.BarTimestamp.Equal(event.BarTimestamp) {
			return nil
		}
	}
	s.events[event.ZoneID] = append(s.events[event.ZoneID], event)
	return nil
}

// Events implements Repository.
func (s *MemoryStore) Events(_ context.Context, zoneID string) ([]domain.ZoneEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ZoneEvent, len(s.events[zoneID]))
	copy(out, s.events[zoneID])
	sort.Slice(out, func(i, j int) bool { return out[i].BarTimestamp.Before(out[j].BarTimestamp) })
	return out, nil
}

func cloneZone(z *domain.Zone) (*domain.Zone, error) {
	return domain.RestoreZone(z.ID, z.Symbol, z.Kind, z.Bottom, z.Top, z.FormedAt,
		z.VolumeRatio, z.ImpulsePct, z.StrengthScore,
		string(z.Status()), z.TestCount(), z.LastEventAt())
}

func sortZones(zs []*domain.Zone) {
	sort.Slice(zs, func(i, j int) bool {
		if zs[i].FormedAt.Equal(zs[j].FormedAt) {
			return zs[i].ID < zs[j].ID
		}
		return zs[i].FormedAt.Before(zs[j].FormedAt)
	})
}
