package match

import (
	"context"
	"image"
	"sort"
	"strings"
	"sync"
	"time"
)

// Result is the outcome of one template evaluation. Err is set instead of
// panicking for malformed input; Found is then always false.
type Result struct {
	Found      bool
	Confidence float64
	Threshold  float64
	Location   *image.Point // top-left of best match, nil when no scan ran
	Size       *image.Point // matched template size, nil when no scan ran
	Elapsed    time.Duration
	Err        error
}

// Algorithm scores how well a template appears inside a frame. Implementations
// must never panic across this boundary; malformed input yields Result.Err.
type Algorithm interface {
	Name() string
	Detect(ctx context.Context, frame *image.RGBA, tmpl image.Image, threshold float64) Result
	// Available reports whether the algorithm can run on this build, with a
	// human-readable reason when it cannot.
	Available() (bool, string)
}

// Registry is a case-insensitive name -> Algorithm map.
type Registry struct {
	mu   sync.RWMutex
	algs map[string]Algorithm
	def  string
}

// NewRegistry returns a registry pre-populated with the built-in matchers.
// The unmasked NCC matcher is the default.
func NewRegistry() *Registry {
	r := &Registry{algs: map[string]Algorithm{}}
	r.Register(NCC{})
	r.Register(MaskedNCC{})
	r.def = NCC{}.Name()
	return r
}

// Register adds or replaces an algorithm under its (lowercased) name.
func (r *Registry) Register(a Algorithm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.algs[strings.ToLower(a.Name())] = a
}

// Get looks an algorithm up by name, case-insensitively.
func (r *Registry) Get(name string) (Algorithm, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.algs[strings.ToLower(name)]
	return a, ok
}

// Default returns the unmasked matcher.
func (r *Registry) Default() Algorithm {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.algs[r.def]
}

// Names returns the registered algorithm names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.algs))
	for n := range r.algs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
