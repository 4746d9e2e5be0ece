package trigger

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event type roots. A semantic event fires at three granularities:
// root, root.<module>, root.<module>.<target>.
const (
	EventDetected     = "detected"
	EventMeterChanged = "meter"
	EventStarted      = "lifecycle.started"
	EventStopped      = "lifecycle.stopped"
	EventError        = "lifecycle.error"
)

// Payload is the key/value body delivered to subscribers. Documented keys:
// moduleId, targetId, imageId, confidence, matchX, matchY, currentPercent,
// previousPercent, deltaPercent, isDecrease, changeType, timestamp.
type Payload map[string]any

// Callback receives one event delivery.
type Callback func(eventType string, payload Payload)

// Filter is evaluated per subscriber before its callback is invoked. Zero
// values disable the corresponding check.
type Filter struct {
	MinConfidence float64
	Module        string
	Target        string
	MinDelta      float64
	DecreasesOnly bool
}

func (f Filter) accepts(p Payload) bool {
	if f.MinConfidence > 0 {
		c, ok := p["confidence"].(float64)
		if !ok || c < f.MinConfidence {
			return false
		}
	}
	if f.Module != "" {
		if m, _ := p["moduleId"].(string); m != f.Module {
			return false
		}
	}
	if f.Target != "" {
		if t, _ := p["targetId"].(string); t != f.Target {
			return false
		}
	}
	if f.MinDelta > 0 {
		d, ok := p["deltaPercent"].(float64)
		if !ok {
			return false
		}
		if d < 0 {
			d = -d
		}
		if d < f.MinDelta {
			return false
		}
	}
	if f.DecreasesOnly {
		dec, _ := p["isDecrease"].(bool)
		if !dec {
			return false
		}
	}
	return true
}

type registration struct {
	id         uuid.UUID
	subscriber string
	filter     Filter
	cb         Callback
}

// Router fans detection, meter, and lifecycle events out to registered
// subscribers. At most one registration per (eventType, subscriber); a
// re-registration replaces the previous one. Fan-out is sequential over a
// snapshot so callbacks may re-enter Register/Unregister, and a panicking
// subscriber never blocks delivery to the rest.
type Router struct {
	mu     sync.Mutex
	subs   map[string][]registration // eventType -> registrations
	logger *slog.Logger
}

// NewRouter returns an empty router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{subs: map[string][]registration{}, logger: logger}
}

// Register subscribes cb to eventType under subscriber, replacing any prior
// registration for the same pair. The returned id identifies the
// registration in logs.
func (r *Router) Register(eventType, subscriber string, filter Filter, cb Callback) uuid.UUID {
	reg := registration{id: uuid.New(), subscriber: subscriber, filter: filter, cb: cb}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.subs[eventType]
	for i := range list {
		if list[i].subscriber == subscriber {
			list[i] = reg
			return reg.id
		}
	}
	r.subs[eventType] = append(list, reg)
	return reg.id
}

// Unregister removes subscriber's registration for eventType, if any.
func (r *Router) Unregister(eventType, subscriber string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.subs[eventType]
	for i := range list {
		if list[i].subscriber == subscriber {
			r.subs[eventType] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(r.subs[eventType]) == 0 {
		delete(r.subs, eventType)
	}
}

// Fire delivers payload to every current registration for the exact
// eventType key. No lock is held while callbacks run.
func (r *Router) Fire(eventType string, payload Payload) {
	r.mu.Lock()
	snapshot := make([]registration, len(r.subs[eventType]))
	copy(snapshot, r.subs[eventType])
	r.mu.Unlock()

	for _, reg := range snapshot {
		if !reg.filter.accepts(payload) {
			continue
		}
		r.invoke(eventType, reg, payload)
	}
}

func (r *Router) invoke(eventType string, reg registration, payload Payload) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.logger != nil {
				r.logger.Error("subscriber callback panic",
					"event", eventType,
					"subscriber", reg.subscriber,
					"id", reg.id.String(),
					"error", fmt.Sprint(rec),
					"stack", string(debug.Stack()))
			}
		}
	}()
	reg.cb(eventType, payload)
}

// FireScoped fires one semantic event at the global, per-module, and
// per-module-per-target granularities.
func (r *Router) FireScoped(root, moduleID, targetID string, payload Payload) {
	r.Fire(root, payload)
	if moduleID != "" {
		r.Fire(root+"."+moduleID, payload)
		if targetID != "" {
			r.Fire(root+"."+moduleID+"."+targetID, payload)
		}
	}
}

// Stamp adds the timestamp field routers attach to every payload.
func Stamp(p Payload, at time.Time) Payload {
	p["timestamp"] = at.UnixMilli()
	return p
}
