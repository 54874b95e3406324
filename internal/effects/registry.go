package effects

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrFrozen is returned when registering into a frozen registry.
var ErrFrozen = errors.New("effect registry is frozen")

// Registry maps slugs to effects and remembers registration order.
type Registry struct {
	mu      sync.RWMutex
	effects map[string]Effect
	order   []string
	frozen  bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{effects: make(map[string]Effect)}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry holding the built-in effects. It
// is frozen, so it can be shared by concurrent renders without locking
// concerns.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg := NewRegistry()
		for _, e := range Builtins() {
			if err := reg.Register(e); err != nil {
				panic(fmt.Sprintf("register built-in effect: %v", err))
			}
		}
		reg.Freeze()
		defaultRegistry = reg
	})
	return defaultRegistry
}

// Register adds e under its descriptor slug.
func (r *Registry) Register(e Effect) error {
	if e == nil {
		return errors.New("effect is nil")
	}
	desc := e.Descriptor()
	slug := normalizeSlug(desc.Slug)
	if slug == "" {
		return errors.New("effect slug is empty")
	}
	if slug != desc.Slug {
		return fmt.Errorf("effect slug %q must be lowercase without surrounding spaces", desc.Slug)
	}
	if desc.DefaultIntensity < 0 || desc.DefaultIntensity > 100 {
		return fmt.Errorf("effect %s: default intensity %d outside [0,100]", slug, desc.DefaultIntensity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrFrozen
	}
	if _, exists := r.effects[slug]; exists {
		return &DuplicateSlugError{Slug: slug}
	}
	r.effects[slug] = e
	r.order = append(r.order, slug)
	return nil
}

// Lookup returns the effect registered under slug.
func (r *Registry) Lookup(slug string) (Effect, error) {
	key := normalizeSlug(slug)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.effects[key]; ok {
		return e, nil
	}
	return nil, &UnknownEffectError{Slug: slug, Known: append([]string(nil), r.order...)}
}

// List returns descriptors in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, slug := range r.order {
		out = append(out, r.effects[slug].Descriptor())
	}
	return out
}

// Slugs returns registered slugs in registration order.
func (r *Registry) Slugs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Freeze rejects any further registration.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
