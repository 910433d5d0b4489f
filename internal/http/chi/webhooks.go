package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marcelsud/shipment-relay/delivery"
	"github.com/marcelsud/shipment-relay/registry"
)

/* HTTP layer DTOs for the webhook registry
 * Tokens and signing secrets are accepted but never echoed back
 */

type webhookRequest struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	Token         string `json:"token"`
	MaxRetries    int    `json:"max_retries"`
	RetryDelay    string `json:"retry_delay"`
	Timeout       string `json:"timeout"`
	Enabled       *bool  `json:"enabled"`
	SigningSecret string `json:"signing_secret"`
}

type webhookResponse struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	HasToken   bool   `json:"has_token"`
	Signed     bool   `json:"signed"`
	MaxRetries int    `json:"max_retries"`
	RetryDelay string `json:"retry_delay"`
	Timeout    string `json:"timeout"`
	Enabled    bool   `json:"enabled"`
}

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

func toWebhookResponse(cfg delivery.WebhookConfig) webhookResponse {
	return webhookResponse{
		Name:       cfg.Name,
		URL:        cfg.URL,
		HasToken:   cfg.Token != "",
		Signed:     cfg.SigningSecret != "",
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay.String(),
		Timeout:    cfg.Timeout.String(),
		Enabled:    cfg.Enabled,
	}
}

// getWebhooks handles GET /v1/webhooks
func getWebhooks(reg WebhookRegistry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		all := reg.List()
		result := make([]webhookResponse, 0, len(all))
		for _, cfg := range all {
			result = append(result, toWebhookResponse(cfg))
		}
		writeJSON(w, http.StatusOK, result)
	})
}

// postWebhook handles POST /v1/webhooks; an existing name is replaced
func postWebhook(reg WebhookRegistry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req webhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}

		// same defaults as webhooks.yaml
		cfg, err := registry.WebhookFile{
			Name:          req.Name,
			URL:           req.URL,
			Token:         req.Token,
			MaxRetries:    req.MaxRetries,
			RetryDelay:    req.RetryDelay,
			Timeout:       req.Timeout,
			Enabled:       req.Enabled,
			SigningSecret: req.SigningSecret,
		}.Config()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := reg.Add(cfg.Name, cfg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, toWebhookResponse(cfg))
	})
}

// patchWebhook handles PATCH /v1/webhooks/{name}
func patchWebhook(reg WebhookRegistry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		var req toggleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			http.Error(w, `body must be {"enabled": true|false}`, http.StatusBadRequest)
			return
		}

		if !reg.Toggle(name, *req.Enabled) {
			http.Error(w, fmt.Sprintf("webhook not found: %s", name), http.StatusNotFound)
			return
		}

		cfg, _ := reg.Get(name)
		writeJSON(w, http.StatusOK, toWebhookResponse(cfg))
	})
}

// deleteWebhook handles DELETE /v1/webhooks/{name}
func deleteWebhook(reg WebhookRegistry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		err := reg.RemoveErr(name)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, registry.ErrDefaultRemoval):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, registry.ErrNotFound):
			http.Error(w, fmt.Sprintf("webhook not found: %s", name), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
