package detect

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
)

// TemplateCache holds decoded reference images keyed by target key. Reads
// and the Purge used by ReloadImages are mutually exclusive so a reload
// never races a cycle that is resolving templates.
type TemplateCache struct {
	mu     sync.Mutex
	cache  *lru.Cache[string, image.Image]
	logger *slog.Logger
}

// NewTemplateCache returns a cache bounded to size entries.
func NewTemplateCache(size int, logger *slog.Logger) (*TemplateCache, error) {
	c, err := lru.New[string, image.Image](size)
	if err != nil {
		return nil, fmt.Errorf("template cache: %w", err)
	}
	return &TemplateCache{cache: c, logger: logger}, nil
}

// Get returns the decoded template for key, loading it from path on a miss.
func (t *TemplateCache) Get(key, path string) (image.Image, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if img, ok := t.cache.Get(key); ok {
		return img, nil
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load template %q: %w", path, err)
	}
	t.cache.Add(key, img)
	if t.logger != nil {
		b := img.Bounds()
		t.logger.Debug("template loaded", "key", key, "path", path, "w", b.Dx(), "h", b.Dy())
	}
	return img, nil
}

// Purge drains every cached template. Subsequent Gets repopulate lazily.
func (t *TemplateCache) Purge() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Purge()
	if t.logger != nil {
		t.logger.Info("template cache purged")
	}
}

// Remove evicts a single key, e.g. when its target was deleted.
func (t *TemplateCache) Remove(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Remove(key)
}

// Len reports the number of cached templates.
func (t *TemplateCache) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache.Len()
}
