package delivery

import (
	"fmt"
	"net/url"
	"time"

	"github.com/marcelsud/shipment-relay/delivery/signature"
)

// DefaultWebhook is the registry entry that always exists
const DefaultWebhook = "default"

/* WebhookConfig is a named destination plus its retry, timeout and
 * credential policy
 */
type WebhookConfig struct {
	Name          string
	URL           string
	Token         string
	MaxRetries    int
	RetryDelay    time.Duration
	Timeout       time.Duration
	Enabled       bool
	SigningSecret string // Optional Standard Webhooks secret (whsec_ prefix)
}

// Validate checks if the webhook configuration is usable
func (c WebhookConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("webhook name cannot be empty")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL for webhook %s", c.Name)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1 for webhook %s (got %d)", c.Name, c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay cannot be negative for webhook %s", c.Name)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive for webhook %s", c.Name)
	}
	if c.SigningSecret != "" {
		if _, err := signature.ParseSecret(c.SigningSecret); err != nil {
			return fmt.Errorf("invalid signing_secret for webhook %s: %w", c.Name, err)
		}
	}
	return nil
}
