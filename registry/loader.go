package registry

import (
	"fmt"
	"os"
	"time"

	"github.com/marcelsud/shipment-relay/delivery"
	"gopkg.in/yaml.v3"
)

/* Seed file support: webhooks.yaml describes the targets a process starts
 * with; the admin API can change them afterwards
 */

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultTimeout    = 10 * time.Second
)

// File represents the structure of webhooks.yaml
type File struct {
	Webhooks []WebhookFile `yaml:"webhooks"`
}

// WebhookFile is a single webhook in the YAML file
type WebhookFile struct {
	Name          string `yaml:"name"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	MaxRetries    int    `yaml:"max_retries"`
	RetryDelay    string `yaml:"retry_delay"` // Go duration, default 1s
	Timeout       string `yaml:"timeout"`     // Go duration, default 10s
	Enabled       *bool  `yaml:"enabled"`     // Default: true
	SigningSecret string `yaml:"signing_secret"`
}

// Config converts a file entry, applying defaults
func (w WebhookFile) Config() (delivery.WebhookConfig, error) {
	cfg := delivery.WebhookConfig{
		Name:          w.Name,
		URL:           w.URL,
		Token:         os.ExpandEnv(w.Token),
		MaxRetries:    w.MaxRetries,
		RetryDelay:    DefaultRetryDelay,
		Timeout:       DefaultTimeout,
		Enabled:       true,
		SigningSecret: os.ExpandEnv(w.SigningSecret),
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if w.Enabled != nil {
		cfg.Enabled = *w.Enabled
	}

	var err error
	if w.RetryDelay != "" {
		if cfg.RetryDelay, err = time.ParseDuration(w.RetryDelay); err != nil {
			return cfg, fmt.Errorf("parsing retry_delay for webhook %s: %w", w.Name, err)
		}
	}
	if w.Timeout != "" {
		if cfg.Timeout, err = time.ParseDuration(w.Timeout); err != nil {
			return cfg, fmt.Errorf("parsing timeout for webhook %s: %w", w.Name, err)
		}
	}

	return cfg, cfg.Validate()
}

// LoadFile reads and validates a webhooks YAML file
func LoadFile(filePath string) ([]delivery.WebhookConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading webhooks file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing webhooks YAML: %w", err)
	}

	seen := make(map[string]bool, len(file.Webhooks))
	configs := make([]delivery.WebhookConfig, 0, len(file.Webhooks))
	for _, w := range file.Webhooks {
		cfg, err := w.Config()
		if err != nil {
			return nil, fmt.Errorf("validating webhook: %w", err)
		}
		if seen[cfg.Name] {
			return nil, fmt.Errorf("duplicate webhook name: %s", cfg.Name)
		}
		seen[cfg.Name] = true
		configs = append(configs, cfg)
	}

	return configs, nil
}

// Load adds every webhook from a YAML file to the registry
// An entry named default replaces the default config
func (r *Registry) Load(filePath string) error {
	configs, err := LoadFile(filePath)
	if err != nil {
		return err
	}
	for _, cfg := range configs {
		if err := r.Add(cfg.Name, cfg); err != nil {
			return err
		}
	}
	return nil
}
