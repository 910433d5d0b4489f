package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/marcelsud/shipment-relay/delivery"
)

var (
	ErrNotFound       = errors.New("webhook not found")
	ErrDefaultRemoval = errors.New("the default webhook cannot be removed")
)

/* Registry is the process-wide set of named delivery targets
 * Changes apply to every delivery that starts after them
 */
type Registry struct {
	mu      sync.RWMutex
	configs map[string]delivery.WebhookConfig
}

// New creates a registry holding def as the default entry
func New(def delivery.WebhookConfig) *Registry {
	def.Name = delivery.DefaultWebhook
	return &Registry{
		configs: map[string]delivery.WebhookConfig{delivery.DefaultWebhook: def},
	}
}

// Add inserts or replaces the config stored under name
func (r *Registry) Add(name string, cfg delivery.WebhookConfig) error {
	cfg.Name = name
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating webhook: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[name] = cfg
	return nil
}

// Get retrieves a config by name
func (r *Registry) Get(name string) (delivery.WebhookConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[name]
	return cfg, ok
}

// List returns every config sorted by name
func (r *Registry) List() []delivery.WebhookConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]delivery.WebhookConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Toggle sets the enabled flag; false if name is unknown
func (r *Registry) Toggle(name string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[name]
	if !ok {
		return false
	}
	cfg.Enabled = enabled
	r.configs[name] = cfg
	return true
}

// Remove deletes a config; the default entry can only be disabled
func (r *Registry) Remove(name string) bool {
	return r.RemoveErr(name) == nil
}

// RemoveErr is Remove with the reason for a refusal
func (r *Registry) RemoveErr(name string) error {
	if name == delivery.DefaultWebhook {
		return ErrDefaultRemoval
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configs[name]; !ok {
		return ErrNotFound
	}
	delete(r.configs, name)
	return nil
}
