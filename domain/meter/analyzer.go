package meter

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/soval/screen-trigger-go/domain/target"
)

// rebaselineFactor is the multiple of the noise floor an increase must reach
// before a decreases-only meter silently adopts it as the new baseline. Kept
// as a named constant so the tuning can be revisited without code changes.
const rebaselineFactor = 2.0

// ChangeType classifies an accepted meter change.
type ChangeType int

const (
	Changed ChangeType = iota
	DamageTaken
	Healed
)

func (c ChangeType) String() string {
	switch c {
	case DamageTaken:
		return "damage_taken"
	case Healed:
		return "healed"
	default:
		return "changed"
	}
}

// ChangeEvent is emitted once per accepted meter change.
type ChangeEvent struct {
	ModuleID   string
	TargetID   string
	Current    float64 // smoothed percent, one decimal
	Previous   float64 // prior baseline, one decimal
	Delta      float64
	IsDecrease bool
	Type       ChangeType
	At         time.Time
}

type meterState struct {
	samples  []float64 // FIFO, newest last, len <= window
	baseline float64
	baseSet  bool
	lastEmit time.Time
}

// ChangeAnalyzer turns raw fill-percent samples into debounced change
// events. One state record per target key; safe for concurrent use.
type ChangeAnalyzer struct {
	mu     sync.Mutex
	states map[string]*meterState
	logger *slog.Logger
}

// NewChangeAnalyzer returns an analyzer with no per-target state.
func NewChangeAnalyzer(logger *slog.Logger) *ChangeAnalyzer {
	return &ChangeAnalyzer{states: map[string]*meterState{}, logger: logger}
}

// Feed records one raw sample for key at time at and returns a ChangeEvent
// when the smoothed value moved beyond the configured noise floor, or nil.
func (a *ChangeAnalyzer) Feed(moduleID, targetID string, cfg target.MeterConfig, sample float64, at time.Time) *ChangeEvent {
	window := cfg.SmoothingFrames
	if window < 1 {
		window = 1
	}
	minDelta := cfg.MinDeltaPercent
	if minDelta <= 0 {
		minDelta = 1
	}
	key := target.Key(moduleID, targetID)

	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.states[key]
	if !ok {
		st = &meterState{}
		a.states[key] = st
	}

	st.samples = append(st.samples, sample)
	if len(st.samples) > window {
		st.samples = st.samples[len(st.samples)-window:]
	}
	var sum float64
	for _, s := range st.samples {
		sum += s
	}
	smoothed := sum / float64(len(st.samples))

	if !st.baseSet {
		st.baseline = smoothed
		st.baseSet = true
		return nil
	}

	delta := smoothed - st.baseline
	if math.Abs(delta) < minDelta {
		return nil
	}

	if cfg.DecreasesOnly && delta > 0 {
		// A genuine recovery moves the baseline silently; smaller increases
		// are jitter and must not drift it.
		if delta >= rebaselineFactor*minDelta {
			if a.logger != nil {
				a.logger.Debug("meter rebaseline", "key", key, "from", st.baseline, "to", smoothed)
			}
			st.baseline = smoothed
		}
		return nil
	}

	if cfg.EventCooldownMs > 0 && !st.lastEmit.IsZero() {
		if at.Sub(st.lastEmit) < time.Duration(cfg.EventCooldownMs)*time.Millisecond {
			return nil
		}
	}

	prev := st.baseline
	st.baseline = smoothed
	st.lastEmit = at

	ev := &ChangeEvent{
		ModuleID:   moduleID,
		TargetID:   targetID,
		Current:    round1(smoothed),
		Previous:   round1(prev),
		Delta:      round1(smoothed - prev),
		IsDecrease: delta < 0,
		At:         at,
	}
	if delta < 0 {
		ev.Type = DamageTaken
	} else {
		ev.Type = Healed
	}
	return ev
}

// Reset clears the state for one target key, e.g. after a configuration
// change invalidates the baseline.
func (a *ChangeAnalyzer) Reset(moduleID, targetID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.states, target.Key(moduleID, targetID))
}

// ResetAll clears all per-target state.
func (a *ChangeAnalyzer) ResetAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states = map[string]*meterState{}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
