package trigger

import (
	"log/slog"
	"sync"
	"time"

	"github.com/soval/screen-trigger-go/domain/target"
)

// cooldownState tracks per-target gate timing. Mutated only while the
// manager's lock is held.
type cooldownState struct {
	lastTrigger   time.Time
	lastDetection time.Time
	onCooldown    bool
}

// CooldownManager gates whether a detection may fire an action. One state
// record per target key, created lazily, removed only via Remove. Safe for
// concurrent use.
type CooldownManager struct {
	mu sync.Mutex
	// resetLinks maps a reset target key to the keys whose cooldown it
	// clears when detected (ImageReset policy).
	states     map[string]*cooldownState
	resetLinks map[string][]string
	logger     *slog.Logger
	now        func() time.Time
}

// NewCooldownManager returns an empty manager.
func NewCooldownManager(logger *slog.Logger) *CooldownManager {
	return &CooldownManager{
		states:     map[string]*cooldownState{},
		resetLinks: map[string][]string{},
		logger:     logger,
		now:        time.Now,
	}
}

func (c *CooldownManager) state(key string) *cooldownState {
	st, ok := c.states[key]
	if !ok {
		st = &cooldownState{}
		c.states[key] = st
	}
	return st
}

// CanTrigger reports whether a detection on key may fire an action under
// the given policy.
func (c *CooldownManager) CanTrigger(key string, cfg target.CooldownConfig) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state(key)
	if !st.onCooldown {
		return true
	}
	d := time.Duration(cfg.Duration) * time.Millisecond
	now := c.now()
	switch cfg.Policy {
	case target.CooldownContinuous:
		// The gate re-opens only after detections have stopped for the full
		// duration; each repeated detection extends it.
		return now.Sub(st.lastDetection) >= d
	default: // Standard, ImageReset
		return now.Sub(st.lastTrigger) >= d
	}
}

// RecordDetection stamps the detection time for key and applies any pending
// reset links registered against it.
func (c *CooldownManager) RecordDetection(key string, cfg target.CooldownConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state(key)
	now := c.now()
	st.lastDetection = now
	if cfg.Policy == target.CooldownContinuous && st.onCooldown {
		// Slide the trigger clock so Standard-style inspection also reflects
		// the extension.
		st.lastTrigger = now
	}
	for _, linked := range c.resetLinks[key] {
		if ls, ok := c.states[linked]; ok && ls.onCooldown {
			ls.onCooldown = false
			ls.lastTrigger = time.Time{}
			if c.logger != nil {
				c.logger.Debug("cooldown cleared by reset target", "key", linked, "reset", key)
			}
		}
	}
}

// RecordTrigger arms the cooldown for key. For the ImageReset policy it also
// registers the forward link from the configured reset target.
func (c *CooldownManager) RecordTrigger(key string, cfg target.CooldownConfig, moduleID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state(key)
	st.onCooldown = true
	st.lastTrigger = c.now()
	if cfg.Policy == target.CooldownImageReset && cfg.ResetID != "" {
		c.registerResetLocked(target.Key(moduleID, cfg.ResetID), key)
	}
}

// RegisterResetTrigger links resetKey detections to clearing key's cooldown.
func (c *CooldownManager) RegisterResetTrigger(resetKey, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registerResetLocked(resetKey, key)
}

func (c *CooldownManager) registerResetLocked(resetKey, key string) {
	for _, existing := range c.resetLinks[resetKey] {
		if existing == key {
			return
		}
	}
	c.resetLinks[resetKey] = append(c.resetLinks[resetKey], key)
}

// ResetCooldown clears the gate for one key.
func (c *CooldownManager) ResetCooldown(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[key]; ok {
		st.onCooldown = false
		st.lastTrigger = time.Time{}
	}
}

// ResetAll clears every gate but keeps reset links.
func (c *CooldownManager) ResetAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, st := range c.states {
		st.onCooldown = false
		st.lastTrigger = time.Time{}
	}
}

// Remove purges the state for a deleted target, including any reset links
// pointing at or registered by it.
func (c *CooldownManager) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, key)
	delete(c.resetLinks, key)
	for reset, linked := range c.resetLinks {
		kept := linked[:0]
		for _, k := range linked {
			if k != key {
				kept = append(kept, k)
			}
		}
		if len(kept) == 0 {
			delete(c.resetLinks, reset)
		} else {
			c.resetLinks[reset] = kept
		}
	}
}

// OnCooldown reports whether key is currently gated, for history display.
func (c *CooldownManager) OnCooldown(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[key]
	return ok && st.onCooldown
}
