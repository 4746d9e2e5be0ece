package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	events   []string
	payloads []Payload
}

func (r *recorder) callback(eventType string, payload Payload) {
	r.events = append(r.events, eventType)
	r.payloads = append(r.payloads, payload)
}

func TestRouterFireDeliversToSubscribers(t *testing.T) {
	r := NewRouter(nil)
	var a, b recorder
	r.Register(EventDetected, "overlay", Filter{}, a.callback)
	r.Register(EventDetected, "sound", Filter{}, b.callback)

	r.Fire(EventDetected, Payload{"moduleId": "combat"})
	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	require.Equal(t, "combat", a.payloads[0]["moduleId"])
}

func TestRouterReplaceOnReregister(t *testing.T) {
	r := NewRouter(nil)
	var old, replacement recorder
	first := r.Register(EventDetected, "overlay", Filter{}, old.callback)
	second := r.Register(EventDetected, "overlay", Filter{}, replacement.callback)
	require.NotEqual(t, first, second)

	r.Fire(EventDetected, Payload{})
	require.Empty(t, old.events)
	require.Len(t, replacement.events, 1)
}

func TestRouterUnregister(t *testing.T) {
	r := NewRouter(nil)
	var rec recorder
	r.Register(EventDetected, "overlay", Filter{}, rec.callback)
	r.Unregister(EventDetected, "overlay")

	r.Fire(EventDetected, Payload{})
	require.Empty(t, rec.events)
}

func TestRouterConfidenceFilter(t *testing.T) {
	r := NewRouter(nil)
	var rec recorder
	r.Register(EventDetected, "overlay", Filter{MinConfidence: 0.9}, rec.callback)

	r.Fire(EventDetected, Payload{"confidence": 0.5})
	require.Empty(t, rec.events)

	r.Fire(EventDetected, Payload{"confidence": 0.95})
	require.Len(t, rec.events, 1)
}

func TestRouterDeltaFilters(t *testing.T) {
	r := NewRouter(nil)
	var rec recorder
	r.Register(EventMeterChanged, "haptics", Filter{MinDelta: 10, DecreasesOnly: true}, rec.callback)

	r.Fire(EventMeterChanged, Payload{"deltaPercent": -5.0, "isDecrease": true})
	r.Fire(EventMeterChanged, Payload{"deltaPercent": 15.0, "isDecrease": false})
	require.Empty(t, rec.events)

	r.Fire(EventMeterChanged, Payload{"deltaPercent": -15.0, "isDecrease": true})
	require.Len(t, rec.events, 1)
}

func TestRouterScopedGranularities(t *testing.T) {
	r := NewRouter(nil)
	var global, module, exact, other recorder
	r.Register(EventDetected, "g", Filter{}, global.callback)
	r.Register(EventDetected+".combat", "m", Filter{}, module.callback)
	r.Register(EventDetected+".combat.boss", "t", Filter{}, exact.callback)
	r.Register(EventDetected+".combat.minion", "o", Filter{}, other.callback)

	r.FireScoped(EventDetected, "combat", "boss", Payload{})
	require.Len(t, global.events, 1)
	require.Len(t, module.events, 1)
	require.Len(t, exact.events, 1)
	require.Empty(t, other.events)
	require.Equal(t, EventDetected+".combat.boss", exact.events[0])
}

func TestRouterPanicIsolation(t *testing.T) {
	r := NewRouter(nil)
	var rec recorder
	r.Register(EventDetected, "bad", Filter{}, func(string, Payload) { panic("boom") })
	r.Register(EventDetected, "good", Filter{}, rec.callback)

	require.NotPanics(t, func() { r.Fire(EventDetected, Payload{}) })
	require.Len(t, rec.events, 1)
}

func TestRouterCallbackMayReenter(t *testing.T) {
	r := NewRouter(nil)
	r.Register(EventDetected, "self", Filter{}, func(string, Payload) {
		r.Unregister(EventDetected, "self")
	})
	require.NotPanics(t, func() { r.Fire(EventDetected, Payload{}) })
	r.Fire(EventDetected, Payload{})
}

func TestStamp(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := Stamp(Payload{"moduleId": "combat"}, at)
	require.Equal(t, at.UnixMilli(), p["timestamp"])
}
