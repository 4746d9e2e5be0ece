package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/soval/screen-trigger-go/domain/target"
)

// fakeClock drives the manager's time source without sleeping.
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestManager() (*CooldownManager, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewCooldownManager(nil)
	m.now = clk.now
	return m, clk
}

func TestStandardCooldownGates(t *testing.T) {
	m, clk := newTestManager()
	cfg := target.CooldownConfig{Policy: target.CooldownStandard, Duration: 5000}
	key := target.Key("combat", "boss")

	require.True(t, m.CanTrigger(key, cfg))
	m.RecordDetection(key, cfg)
	m.RecordTrigger(key, cfg, "combat")
	require.True(t, m.OnCooldown(key))

	clk.advance(4999 * time.Millisecond)
	require.False(t, m.CanTrigger(key, cfg))

	clk.advance(2 * time.Millisecond)
	require.True(t, m.CanTrigger(key, cfg))
}

func TestContinuousCooldownExtendsOnDetection(t *testing.T) {
	m, clk := newTestManager()
	cfg := target.CooldownConfig{Policy: target.CooldownContinuous, Duration: 3000}
	key := target.Key("combat", "stunned")

	m.RecordDetection(key, cfg)
	m.RecordTrigger(key, cfg, "combat")

	// Repeated detections keep pushing the gate out.
	for i := 0; i < 3; i++ {
		clk.advance(2 * time.Second)
		require.False(t, m.CanTrigger(key, cfg))
		m.RecordDetection(key, cfg)
	}

	// Once the image stays gone for the full duration the gate re-opens.
	clk.advance(3100 * time.Millisecond)
	require.True(t, m.CanTrigger(key, cfg))
}

func TestImageResetClearsLinkedCooldown(t *testing.T) {
	m, clk := newTestManager()
	cfg := target.CooldownConfig{Policy: target.CooldownImageReset, Duration: 60000, ResetID: "respawn"}
	key := target.Key("combat", "death")
	resetKey := target.Key("combat", "respawn")

	m.RecordDetection(key, cfg)
	m.RecordTrigger(key, cfg, "combat")
	clk.advance(time.Second)
	require.False(t, m.CanTrigger(key, cfg))

	// Detecting the reset target clears the gate well before the duration.
	m.RecordDetection(resetKey, target.CooldownConfig{})
	require.True(t, m.CanTrigger(key, cfg))
	require.False(t, m.OnCooldown(key))
}

func TestRegisterResetTrigger(t *testing.T) {
	m, _ := newTestManager()
	cfg := target.CooldownConfig{Policy: target.CooldownStandard, Duration: 60000}
	key := target.Key("ui", "alert")
	resetKey := target.Key("ui", "dismissed")

	m.RegisterResetTrigger(resetKey, key)
	m.RecordTrigger(key, cfg, "ui")
	require.False(t, m.CanTrigger(key, cfg))

	m.RecordDetection(resetKey, target.CooldownConfig{})
	require.True(t, m.CanTrigger(key, cfg))
}

func TestResetCooldownAndResetAll(t *testing.T) {
	m, _ := newTestManager()
	cfg := target.CooldownConfig{Policy: target.CooldownStandard, Duration: 60000}
	a := target.Key("m", "a")
	b := target.Key("m", "b")

	m.RecordTrigger(a, cfg, "m")
	m.RecordTrigger(b, cfg, "m")

	m.ResetCooldown(a)
	require.True(t, m.CanTrigger(a, cfg))
	require.False(t, m.CanTrigger(b, cfg))

	m.ResetAll()
	require.True(t, m.CanTrigger(b, cfg))
}

func TestRemovePurgesStateAndLinks(t *testing.T) {
	m, _ := newTestManager()
	cfg := target.CooldownConfig{Policy: target.CooldownImageReset, Duration: 60000, ResetID: "respawn"}
	key := target.Key("combat", "death")
	resetKey := target.Key("combat", "respawn")

	m.RecordTrigger(key, cfg, "combat")
	m.Remove(key)
	require.False(t, m.OnCooldown(key))

	// The forward link died with the target: re-arming without the reset
	// policy must stay armed across reset-target detections.
	m.RecordTrigger(key, target.CooldownConfig{Policy: target.CooldownStandard, Duration: 60000}, "combat")
	m.RecordDetection(resetKey, target.CooldownConfig{})
	require.True(t, m.OnCooldown(key))
}
