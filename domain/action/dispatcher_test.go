package action

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soval/screen-trigger-go/domain/target"
)

type call struct {
	intensity int
	duration  float64
	command   target.Command
	devices   []string
	targets   []string
}

type fakeActuator struct {
	calls []call
	err   error
}

func (f *fakeActuator) PerformAction(intensity int, durationSeconds float64, command target.Command, deviceAddresses, targetAddresses []string) error {
	f.calls = append(f.calls, call{intensity, durationSeconds, command, deviceAddresses, targetAddresses})
	return f.err
}

func (f *fakeActuator) IsTargetLoaded(deviceAddress, targetAddress string) bool { return true }

func testTarget(cfg *target.ActionConfig) *target.Target {
	return &target.Target{ModuleID: "combat", ID: "boss", Action: cfg}
}

func TestDispatchDetection(t *testing.T) {
	act := &fakeActuator{}
	d := NewDispatcher(act, []string{"hub-1"}, nil)

	err := d.DispatchDetection(testTarget(&target.ActionConfig{
		Command:         target.CommandVibrate,
		Intensity:       40,
		DurationSeconds: 1.5,
		Addresses:       []string{"addr-a", "addr-b"},
	}))
	require.NoError(t, err)
	require.Len(t, act.calls, 1)
	c := act.calls[0]
	require.Equal(t, 40, c.intensity)
	require.Equal(t, 1.5, c.duration)
	require.Equal(t, target.CommandVibrate, c.command)
	require.Equal(t, []string{"hub-1"}, c.devices)
	require.ElementsMatch(t, []string{"addr-a", "addr-b"}, c.targets)
}

func TestDispatchDetectionWithoutAction(t *testing.T) {
	act := &fakeActuator{}
	d := NewDispatcher(act, nil, nil)
	require.NoError(t, d.DispatchDetection(testTarget(nil)))
	require.Empty(t, act.calls)
}

func TestDispatchNoAddresses(t *testing.T) {
	act := &fakeActuator{}
	d := NewDispatcher(act, nil, nil)

	err := d.DispatchDetection(testTarget(&target.ActionConfig{Command: target.CommandShock, Intensity: 10}))
	require.ErrorIs(t, err, ErrNoAddresses)
	require.Empty(t, act.calls)
}

func TestMeterIntensityModes(t *testing.T) {
	// Scaled: the configured value is the ceiling at a 100-point delta.
	require.Equal(t, 10, MeterIntensity(target.IntensityScaled, 50, -20))
	require.Equal(t, 50, MeterIntensity(target.IntensityScaled, 50, -100))
	require.Equal(t, 1, MeterIntensity(target.IntensityScaled, 50, -0.4))

	// Direct: the delta itself, clamped to the configured ceiling.
	require.Equal(t, 20, MeterIntensity(target.IntensityDirect, 50, -20))
	require.Equal(t, 50, MeterIntensity(target.IntensityDirect, 50, -80))
	require.Equal(t, 1, MeterIntensity(target.IntensityDirect, 50, 0.2))

	// Fixed: the configured value regardless of delta, floor 1.
	require.Equal(t, 35, MeterIntensity(target.IntensityFixed, 35, -3))
	require.Equal(t, 1, MeterIntensity(target.IntensityFixed, 0, -90))
}

func TestDispatchMeterUsesDerivedIntensity(t *testing.T) {
	act := &fakeActuator{}
	d := NewDispatcher(act, nil, nil)

	tg := testTarget(&target.ActionConfig{
		Command:   target.CommandShock,
		Intensity: 60,
		Addresses: []string{"addr-a"},
	})
	tg.Meter = target.MeterConfig{Intensity: target.IntensityScaled}

	require.NoError(t, d.DispatchMeter(tg, -50))
	require.Len(t, act.calls, 1)
	require.Equal(t, 30, act.calls[0].intensity)
}

func TestSelectRandomBounds(t *testing.T) {
	act := &fakeActuator{}
	d := NewDispatcher(act, nil, nil)
	addrs := []string{"a", "b", "c", "d", "e"}

	cfg := &target.ActionConfig{
		Command:   target.CommandBeep,
		Intensity: 1,
		Selection: target.SelectRandom,
		RandomMin: 2,
		RandomMax: 2,
		Addresses: addrs,
	}

	for i := 0; i < 20; i++ {
		picked := d.selectAddresses(cfg)
		require.Len(t, picked, 2)
		require.NotEqual(t, picked[0], picked[1])
		require.Subset(t, addrs, picked)
	}
}

func TestSelectRandomClampsBounds(t *testing.T) {
	act := &fakeActuator{}
	d := NewDispatcher(act, nil, nil)

	// Out-of-range bounds collapse to the address count.
	cfg := &target.ActionConfig{
		Selection: target.SelectRandom,
		RandomMin: 0,
		RandomMax: 99,
		Addresses: []string{"a", "b", "c"},
	}
	for i := 0; i < 20; i++ {
		picked := d.selectAddresses(cfg)
		require.GreaterOrEqual(t, len(picked), 1)
		require.LessOrEqual(t, len(picked), 3)
	}
}

func TestSelectAllCopies(t *testing.T) {
	d := NewDispatcher(&fakeActuator{}, nil, nil)
	cfg := &target.ActionConfig{Selection: target.SelectAll, Addresses: []string{"a", "b"}}

	picked := d.selectAddresses(cfg)
	require.Equal(t, []string{"a", "b"}, picked)
	picked[0] = "mutated"
	require.Equal(t, "a", cfg.Addresses[0])
}
