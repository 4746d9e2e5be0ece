package detect

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soval/screen-trigger-go/config"
	"github.com/soval/screen-trigger-go/domain/action"
	"github.com/soval/screen-trigger-go/domain/capture"
	"github.com/soval/screen-trigger-go/domain/match"
	"github.com/soval/screen-trigger-go/domain/meter"
	"github.com/soval/screen-trigger-go/domain/target"
	"github.com/soval/screen-trigger-go/domain/trigger"
)

// ErrUnsupported is returned by Start when the capture provider cannot run
// on this platform.
var ErrUnsupported = errors.New("detect: capture not supported")

// Stats is a snapshot of engine instrumentation counters.
type Stats struct {
	Cycles        uint64
	CaptureErrors uint64
	TargetErrors  uint64
	AvgCycle      time.Duration
	LastCycle     time.Time
}

// Engine owns the background detection loop. Start/Stop/Toggle/DetectOnce/
// ReloadImages may be invoked concurrently from arbitrary goroutines; each
// shared structure carries its own lock and no lock spans components.
type Engine struct {
	cfg       *config.Config
	provider  capture.Provider
	store     target.Store
	algs      *match.Registry
	cooldowns *trigger.CooldownManager
	analyzer  *meter.ChangeAnalyzer
	router    *trigger.Router
	actions   *action.Dispatcher
	history   HistorySink
	templates *TemplateCache
	logger    *slog.Logger

	mu      sync.Mutex // guards running/cancel/done
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	cycles     atomic.Uint64
	capErrors  atomic.Uint64
	tgtErrors  atomic.Uint64
	cycleNanos atomic.Uint64
	lastCycle  atomic.Int64 // unix nanos
}

// NewEngine wires the engine to its collaborators. A store change
// notification invalidates the template cache.
func NewEngine(
	cfg *config.Config,
	provider capture.Provider,
	store target.Store,
	algs *match.Registry,
	cooldowns *trigger.CooldownManager,
	analyzer *meter.ChangeAnalyzer,
	router *trigger.Router,
	actions *action.Dispatcher,
	history HistorySink,
	logger *slog.Logger,
) (*Engine, error) {
	templates, err := NewTemplateCache(cfg.TemplateCacheSize, logger)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:       cfg,
		provider:  provider,
		store:     store,
		algs:      algs,
		cooldowns: cooldowns,
		analyzer:  analyzer,
		router:    router,
		actions:   actions,
		history:   history,
		templates: templates,
		logger:    logger,
	}
	store.OnChange(e.ReloadImages)
	return e, nil
}

// Running reports whether the background loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start spawns the background loop. Calling Start while running is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	if ok, reason := e.provider.Supported(); !ok {
		e.mu.Unlock()
		if e.logger != nil {
			e.logger.Error("capture unsupported", "reason", reason)
		}
		return fmt.Errorf("%w: %s", ErrUnsupported, reason)
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true
	go e.loop(ctx, e.done)
	e.mu.Unlock()

	if e.logger != nil {
		e.logger.Info("detection started", "interval_ms", e.cfg.CaptureIntervalMs)
	}
	e.router.Fire(trigger.EventStarted, trigger.Stamp(trigger.Payload{}, time.Now()))
	return nil
}

// Stop signals cancellation and waits for the loop up to the configured
// timeout. A timeout is logged and Stop proceeds regardless.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel := e.cancel
	done := e.done
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Duration(e.cfg.StopTimeoutMs) * time.Millisecond):
		if e.logger != nil {
			e.logger.Warn("detection loop did not stop in time", "timeout_ms", e.cfg.StopTimeoutMs)
		}
	}
	if e.logger != nil {
		e.logger.Info("detection stopped")
	}
	e.router.Fire(trigger.EventStopped, trigger.Stamp(trigger.Payload{}, time.Now()))
}

// Toggle starts the loop when stopped and stops it when running.
func (e *Engine) Toggle() error {
	if e.Running() {
		e.Stop()
		return nil
	}
	return e.Start()
}

// ReloadImages drains the template cache; the next cycle repopulates it.
func (e *Engine) ReloadImages() {
	e.templates.Purge()
}

// RemoveTarget purges all per-target state after a target is deleted:
// cooldown record (with stale reset links), analyzer baseline, and the
// cached template.
func (e *Engine) RemoveTarget(moduleID, targetID string) {
	key := target.Key(moduleID, targetID)
	e.cooldowns.Remove(key)
	e.analyzer.Reset(moduleID, targetID)
	e.templates.Remove(key)
}

// Stats returns a snapshot of loop instrumentation.
func (e *Engine) Stats() Stats {
	cycles := e.cycles.Load()
	var avg time.Duration
	if total := e.cycleNanos.Load(); cycles > 0 && total > 0 {
		avg = time.Duration(total / cycles)
	}
	var last time.Time
	if n := e.lastCycle.Load(); n > 0 {
		last = time.Unix(0, n)
	}
	return Stats{
		Cycles:        cycles,
		CaptureErrors: e.capErrors.Load(),
		TargetErrors:  e.tgtErrors.Load(),
		AvgCycle:      avg,
		LastCycle:     last,
	}
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil && e.logger != nil {
			e.logger.Error("detection loop panic", "error", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()

	interval := time.Duration(e.cfg.CaptureIntervalMs) * time.Millisecond
	backoff := time.Duration(e.cfg.ErrorBackoffMs) * time.Millisecond

	for {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		frame, err := e.provider.Frame()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			e.capErrors.Add(1)
			if e.logger != nil {
				e.logger.Error("capture failed", "error", err)
			}
			e.router.Fire(trigger.EventError, trigger.Stamp(trigger.Payload{"error": err.Error()}, time.Now()))
			if !sleepCtx(ctx, backoff) {
				return
			}
			continue
		}

		for _, t := range e.store.Enabled() {
			if ctx.Err() != nil {
				return
			}
			e.processTarget(ctx, frame, t)
		}

		elapsed := time.Since(start)
		e.cycleNanos.Add(uint64(elapsed.Nanoseconds()))
		e.cycles.Add(1)
		e.lastCycle.Store(time.Now().UnixNano())

		if !sleepCtx(ctx, interval) {
			return
		}
	}
}

// processTarget evaluates one target, isolating any failure so a broken
// target cannot abort the cycle.
func (e *Engine) processTarget(ctx context.Context, frame *image.RGBA, t *target.Target) {
	defer func() {
		if r := recover(); r != nil {
			e.tgtErrors.Add(1)
			if e.logger != nil {
				e.logger.Error("target processing panic", "key", t.Key(), "error", fmt.Sprint(r), "stack", string(debug.Stack()))
			}
		}
	}()
	switch t.Kind {
	case target.KindTemplate:
		e.processTemplate(ctx, frame, t)
	case target.KindMeter:
		e.processMeter(ctx, frame, t)
	}
}

// processTemplate runs one template evaluation, returning the match result
// for DetectOnce callers, which reuse this same path.
func (e *Engine) processTemplate(ctx context.Context, frame *image.RGBA, t *target.Target) match.Result {
	region, err := e.provider.ApplyRegion(frame, t.Region)
	if err != nil {
		e.tgtErrors.Add(1)
		if e.logger != nil {
			e.logger.Debug("region extraction failed", "key", t.Key(), "error", err)
		}
		return match.Result{Err: err}
	}
	if region != frame {
		defer capture.Recycle(region)
	}

	tmpl, err := e.templates.Get(t.Key(), t.Template.ImagePath)
	if err != nil {
		e.tgtErrors.Add(1)
		if e.logger != nil {
			e.logger.Warn("template unavailable", "key", t.Key(), "error", err)
		}
		return match.Result{Err: err}
	}

	alg := e.algs.Default()
	if t.Template.Algorithm != "" {
		if a, ok := e.algs.Get(t.Template.Algorithm); ok {
			alg = a
		} else if e.logger != nil {
			e.logger.Warn("unknown algorithm, using default", "key", t.Key(), "algorithm", t.Template.Algorithm)
		}
	}
	if ok, reason := alg.Available(); !ok {
		if e.logger != nil {
			e.logger.Warn("algorithm unavailable", "key", t.Key(), "algorithm", alg.Name(), "reason", reason)
		}
		return match.Result{Err: fmt.Errorf("algorithm %s unavailable: %s", alg.Name(), reason)}
	}

	threshold := t.Template.Threshold
	if threshold <= 0 {
		threshold = e.cfg.Threshold
	}

	var res match.Result
	if t.Template.AutoResize {
		res = match.MultiScale(ctx, alg, region, tmpl, threshold, match.ScaleOptions{
			Min:         e.cfg.MinScale,
			Max:         e.cfg.MaxScale,
			Step:        e.cfg.ScaleStep,
			StopOnScore: e.cfg.StopOnScore,
		}).Result
	} else {
		res = alg.Detect(ctx, region, tmpl, threshold)
	}
	if res.Err != nil {
		e.tgtErrors.Add(1)
		if e.logger != nil {
			e.logger.Debug("match failed", "key", t.Key(), "error", res.Err)
		}
		return res
	}
	if !res.Found {
		return res
	}

	now := time.Now()
	key := t.Key()
	// Gate before stamping: Continuous eligibility compares against the
	// previous detection, not this one.
	canTrigger := e.cooldowns.CanTrigger(key, t.Cooldown)
	e.cooldowns.RecordDetection(key, t.Cooldown)

	fired := false
	if canTrigger && t.Action != nil {
		if err := e.actions.DispatchDetection(t); err != nil {
			if e.logger != nil {
				e.logger.Error("action dispatch failed", "key", key, "error", err)
			}
		} else {
			fired = true
			e.cooldowns.RecordTrigger(key, t.Cooldown, t.ModuleID)
		}
	}

	if e.history != nil {
		e.history.Record(HistoryEntry{
			ModuleID:    t.ModuleID,
			TargetID:    t.ID,
			Confidence:  res.Confidence,
			Location:    res.Location,
			ActionFired: fired,
			Suppressed:  !canTrigger,
			At:          now,
		})
	}

	payload := trigger.Payload{
		"moduleId":   t.ModuleID,
		"targetId":   t.ID,
		"imageId":    t.ID,
		"confidence": res.Confidence,
	}
	if res.Location != nil {
		payload["matchX"] = res.Location.X
		payload["matchY"] = res.Location.Y
	}
	e.router.FireScoped(trigger.EventDetected, t.ModuleID, t.ID, trigger.Stamp(payload, now))
	return res
}

// processMeter measures a bar region and feeds the change analyzer.
func (e *Engine) processMeter(ctx context.Context, frame *image.RGBA, t *target.Target) {
	// Meter targets need an explicit rectangle; anything else is a
	// configuration inconsistency and is skipped without escalation.
	if t.Region.Kind != target.RegionRect {
		return
	}
	mc := t.Meter
	if mc.FocusProcess != "" || mc.FocusTitleContains != "" {
		if !e.provider.RequiredWindowFocused(mc.FocusProcess, mc.FocusTitleContains) {
			return
		}
	}

	region, err := e.provider.ApplyRegion(frame, t.Region)
	if err != nil {
		e.tgtErrors.Add(1)
		if e.logger != nil {
			e.logger.Debug("meter region extraction failed", "key", t.Key(), "error", err)
		}
		return
	}
	pct := meter.FillPercent(region, mc)
	if region != frame {
		capture.Recycle(region)
	}
	if pct < 0 {
		e.tgtErrors.Add(1)
		return
	}

	now := time.Now()
	ev := e.analyzer.Feed(t.ModuleID, t.ID, mc, pct, now)
	if ev == nil {
		return
	}
	if e.logger != nil {
		e.logger.Info("meter change",
			"key", t.Key(),
			"type", ev.Type.String(),
			"current", ev.Current,
			"previous", ev.Previous,
			"delta", ev.Delta)
	}

	payload := trigger.Payload{
		"moduleId":        t.ModuleID,
		"targetId":        t.ID,
		"currentPercent":  ev.Current,
		"previousPercent": ev.Previous,
		"deltaPercent":    ev.Delta,
		"isDecrease":      ev.IsDecrease,
		"changeType":      ev.Type.String(),
	}
	e.router.FireScoped(trigger.EventMeterChanged, t.ModuleID, t.ID, trigger.Stamp(payload, now))

	fired := false
	if t.Action != nil {
		if err := e.actions.DispatchMeter(t, ev.Delta); err != nil {
			if e.logger != nil {
				e.logger.Error("meter action dispatch failed", "key", t.Key(), "error", err)
			}
		} else {
			fired = true
		}
	}
	if e.history != nil {
		e.history.Record(HistoryEntry{
			ModuleID:    t.ModuleID,
			TargetID:    t.ID,
			Confidence:  ev.Current,
			ActionFired: fired,
			At:          now,
		})
	}
}

// OnceResult pairs a target key with its one-shot evaluation outcome.
type OnceResult struct {
	Key    string
	Result match.Result
}

// DetectOnce captures a single frame and evaluates every enabled template
// target through the same processing path as the background loop. Meter
// targets need loop state and are skipped.
func (e *Engine) DetectOnce(ctx context.Context) ([]OnceResult, error) {
	if ok, reason := e.provider.Supported(); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, reason)
	}
	frame, err := e.provider.Frame()
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	var out []OnceResult
	for _, t := range e.store.Enabled() {
		if ctx != nil && ctx.Err() != nil {
			return out, ctx.Err()
		}
		if t.Kind != target.KindTemplate {
			continue
		}
		res := e.processTemplate(ctx, frame, t)
		out = append(out, OnceResult{Key: t.Key(), Result: res})
	}
	return out, nil
}

// sleepCtx sleeps for d unless ctx is canceled first; it reports whether the
// full delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
