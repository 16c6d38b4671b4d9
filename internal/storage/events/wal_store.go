// Package events keeps a crash-safe, append-only journal of zone lifecycle
// events in a write-ahead log, alongside the primary SQLite storage. The
// journal is used for replay and debugging.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/zonescan/internal/domain"
)

const (
	DefaultDir   = "./wal/zoneevents"
	segmentLimit = 1000
	maxSegments  = 100

	zoneEventKeyPrefix = "zone_event_"
)

// WALStore persists zone events in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed event journal.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "event_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init zone event WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes the event to the journal.
func (s *WALStore) Append(event domain.ZoneEvent) error {
	if s == nil || s.wal == nil {
		return errors.New("event journal is not initialized")
	}
	if event.ZoneID == "" {
		return errors.New("zone event requires a zone id")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal zone event")
	}

	key := fmt.Sprintf("%s%s", zoneEventKeyPrefix, event.ZoneID)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// EventsAfter returns all events written after the provided WAL index.
func (s *WALStore) EventsAfter(index uint64) ([]domain.ZoneEvent, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("event journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	events := make([]domain.ZoneEvent, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(key, zoneEventKeyPrefix) {
			continue
		}

		var event domain.ZoneEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, errors.Wrapf(err, "unmarshal zone event at index %d", idx)
		}
		events = append(events, event)
	}
	return events, nil
}

// CurrentIndex exposes the latest WAL index for incremental readers.
func (s *WALStore) CurrentIndex() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return nil
	}
	return s.wal.Close()
}
