package action

import (
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/soval/screen-trigger-go/domain/target"
)

// Actuator is the device-command transport. Implementations live outside
// the core; they must be safe for concurrent use.
type Actuator interface {
	PerformAction(intensity int, durationSeconds float64, command target.Command, deviceAddresses, targetAddresses []string) error
	IsTargetLoaded(deviceAddress, targetAddress string) bool
}

// ErrNoAddresses is returned when an action resolves to an empty target
// set. Dispatching to nobody is treated as a configuration error rather
// than a broadcast.
var ErrNoAddresses = errors.New("action: no target addresses")

// Dispatcher converts accepted detection and meter events into device
// commands.
type Dispatcher struct {
	actuator Actuator
	devices  []string
	logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDispatcher wires a dispatcher to its actuator. devices lists the hub
// addresses forwarded on every command.
func NewDispatcher(actuator Actuator, devices []string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		actuator: actuator,
		devices:  devices,
		logger:   logger,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// DispatchDetection fires the configured action for a template detection.
func (d *Dispatcher) DispatchDetection(t *target.Target) error {
	cfg := t.Action
	if cfg == nil {
		return nil
	}
	intensity := cfg.Intensity
	if intensity < 1 {
		intensity = 1
	}
	return d.perform(t, cfg, intensity)
}

// DispatchMeter fires the configured action for a meter change, deriving
// intensity from the absolute percent delta per the target's mode.
func (d *Dispatcher) DispatchMeter(t *target.Target, deltaPercent float64) error {
	cfg := t.Action
	if cfg == nil {
		return nil
	}
	return d.perform(t, cfg, MeterIntensity(t.Meter.Intensity, cfg.Intensity, deltaPercent))
}

// MeterIntensity maps an absolute percent delta onto a command intensity.
func MeterIntensity(mode target.IntensityMode, configured int, deltaPercent float64) int {
	delta := math.Abs(deltaPercent)
	switch mode {
	case target.IntensityScaled:
		return clampIntensity(int(math.Round(float64(configured)*delta/100)), configured)
	case target.IntensityDirect:
		return clampIntensity(int(math.Round(delta)), configured)
	default: // Fixed
		if configured < 1 {
			return 1
		}
		return configured
	}
}

func clampIntensity(v, max int) int {
	if v < 1 {
		return 1
	}
	if max >= 1 && v > max {
		return max
	}
	return v
}

func (d *Dispatcher) perform(t *target.Target, cfg *target.ActionConfig, intensity int) error {
	addrs := d.selectAddresses(cfg)
	if len(addrs) == 0 {
		if d.logger != nil {
			d.logger.Warn("action skipped, no target addresses", "key", t.Key())
		}
		return ErrNoAddresses
	}
	if d.logger != nil {
		d.logger.Info("dispatching action",
			"key", t.Key(),
			"command", cfg.Command.String(),
			"intensity", intensity,
			"duration", cfg.DurationSeconds,
			"targets", len(addrs))
	}
	return d.actuator.PerformAction(intensity, cfg.DurationSeconds, cfg.Command, d.devices, addrs)
}

// selectAddresses resolves the concrete address subset for an action.
func (d *Dispatcher) selectAddresses(cfg *target.ActionConfig) []string {
	n := len(cfg.Addresses)
	if n == 0 {
		return nil
	}
	if cfg.Selection != target.SelectRandom {
		out := make([]string, n)
		copy(out, cfg.Addresses)
		return out
	}
	lo := clampCount(cfg.RandomMin, 1, n)
	hi := clampCount(cfg.RandomMax, lo, n)
	d.mu.Lock()
	count := lo
	if hi > lo {
		count = lo + d.rng.IntN(hi-lo+1)
	}
	perm := d.rng.Perm(n)
	d.mu.Unlock()
	out := make([]string, count)
	for i := 0; i < count; i++ {
		out[i] = cfg.Addresses[perm[i]]
	}
	return out
}

func clampCount(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
