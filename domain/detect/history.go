package detect

import (
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry records one accepted detection or meter change for display
// and audit.
type HistoryEntry struct {
	ID          uuid.UUID
	ModuleID    string
	TargetID    string
	Confidence  float64
	Location    *image.Point
	ActionFired bool
	Suppressed  bool // cooldown blocked the action
	At          time.Time
}

// HistorySink receives entries fire-and-forget; implementations must not
// block the detection loop.
type HistorySink interface {
	Record(HistoryEntry)
}

// MemoryHistory is a bounded in-memory HistorySink keeping the most recent
// entries, newest last.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
	max     int
}

// NewMemoryHistory returns a sink retaining up to max entries.
func NewMemoryHistory(max int) *MemoryHistory {
	if max < 1 {
		max = 1
	}
	return &MemoryHistory{max: max}
}

// Record appends an entry, evicting the oldest beyond capacity.
func (h *MemoryHistory) Record(e HistoryEntry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

// Recent returns a copy of the retained entries, newest last.
func (h *MemoryHistory) Recent() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// ByTarget returns the retained entries for one module/target pair.
func (h *MemoryHistory) ByTarget(moduleID, targetID string) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []HistoryEntry
	for _, e := range h.entries {
		if e.ModuleID == moduleID && e.TargetID == targetID {
			out = append(out, e)
		}
	}
	return out
}

var _ HistorySink = (*MemoryHistory)(nil)
