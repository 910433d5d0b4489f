package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/shipment-relay/delivery"
	"github.com/marcelsud/shipment-relay/dispatch"
	"github.com/marcelsud/shipment-relay/shipment"
)

type acknowledgmentRequest struct {
	CapturedAt   time.Time `json:"capturedAt"`
	SignatureURL string    `json:"signatureUrl"`
	PhotoURL     string    `json:"photoUrl"`
}

// shipmentRequest is one shipment state as posted by the fleet backend
type shipmentRequest struct {
	ShipmentID      string                 `json:"shipmentId"`
	TrackingNumber  string                 `json:"trackingNumber"`
	Status          string                 `json:"status"`
	UpdatedAt       time.Time              `json:"updatedAt"`
	Acknowledgement *acknowledgmentRequest `json:"acknowledgement"`
}

type batchRequest struct {
	Shipments []shipmentRequest `json:"shipments"`
	Limit     int               `json:"limit"` // 0 picks the default chunk size
}

type resultResponse struct {
	DeliveryID  string     `json:"delivery_id,omitempty"`
	Success     bool       `json:"success"`
	Attempts    int        `json:"attempts"`
	Encoding    string     `json:"encoding,omitempty"`
	Error       string     `json:"error,omitempty"`
	ErrorKind   string     `json:"error_kind,omitempty"`
	StatusCode  int        `json:"status_code,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	WebhookURL  string     `json:"webhook_url,omitempty"`
}

type batchResponse struct {
	Success int              `json:"success"`
	Failed  int              `json:"failed"`
	Chunks  int              `json:"chunks"`
	Results []resultResponse `json:"results"`
}

func (s shipmentRequest) validate() error {
	if s.ShipmentID == "" {
		return errors.New("shipmentId is required")
	}
	if s.Status == "" {
		return errors.New("status is required")
	}
	return nil
}

func (s shipmentRequest) payload() delivery.Payload {
	var ack *shipment.Acknowledgment
	if s.Acknowledgement != nil {
		ack = &shipment.Acknowledgment{
			ShipmentID:   s.ShipmentID,
			SignatureURL: s.Acknowledgement.SignatureURL,
			PhotoURL:     s.Acknowledgement.PhotoURL,
			CapturedAt:   s.Acknowledgement.CapturedAt,
		}
	}
	return delivery.BuildPayload(shipment.Shipment{
		ID:             s.ShipmentID,
		TrackingNumber: s.TrackingNumber,
		Status:         s.Status,
		UpdatedAt:      s.UpdatedAt,
	}, ack)
}

func toResultResponse(res delivery.Result) resultResponse {
	out := resultResponse{
		DeliveryID:  res.DeliveryID,
		Success:     res.Success,
		Attempts:    res.Attempts,
		DeliveredAt: res.DeliveredAt,
		WebhookURL:  res.WebhookURL,
	}
	if res.Encoding != 0 {
		out.Encoding = res.Encoding.String()
	}
	if res.LastError != nil {
		out.Error = res.LastError.Error()
		out.ErrorKind = delivery.CauseKind(res.LastError).String()
		out.StatusCode = delivery.StatusCode(res.LastError)
	}
	return out
}

// postDelivery handles POST /v1/webhooks/{name}/deliveries, waiting for the outcome
func postDelivery(service delivery.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		var req shipmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		if err := req.validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		res, err := service.Deliver(r.Context(), name, req.payload())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if errors.Is(res.LastError, delivery.ErrWebhookNotFound) {
			http.Error(w, fmt.Sprintf("webhook not found: %s", name), http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, toResultResponse(res))
	})
}

// postBatch handles POST /v1/webhooks/{name}/batches
func postBatch(service delivery.UseCase, reg WebhookRegistry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if _, ok := reg.Get(name); !ok {
			http.Error(w, fmt.Sprintf("webhook not found: %s", name), http.StatusNotFound)
			return
		}

		var req batchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		if req.Limit < 0 {
			http.Error(w, "limit cannot be negative", http.StatusBadRequest)
			return
		}

		payloads := make([]delivery.Payload, 0, len(req.Shipments))
		for i, s := range req.Shipments {
			if err := s.validate(); err != nil {
				http.Error(w, fmt.Sprintf("shipments[%d]: %v", i, err), http.StatusBadRequest)
				return
			}
			payloads = append(payloads, s.payload())
		}

		var (
			res delivery.BatchResult
			err error
		)
		if req.Limit > 0 {
			res, err = service.DeliverBatchWithLimit(r.Context(), name, payloads, req.Limit)
		} else {
			res, err = service.DeliverBatch(r.Context(), name, payloads)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		out := batchResponse{
			Success: res.Success,
			Failed:  res.Failed,
			Chunks:  res.Chunks,
			Results: make([]resultResponse, 0, len(res.Results)),
		}
		for _, item := range res.Results {
			out.Results = append(out.Results, toResultResponse(item))
		}
		writeJSON(w, http.StatusOK, out)
	})
}

// postSync handles POST /v1/webhooks/{name}/sync; the delivery runs in the background
func postSync(dispatcher Dispatcher, reg WebhookRegistry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if _, ok := reg.Get(name); !ok {
			http.Error(w, fmt.Sprintf("webhook not found: %s", name), http.StatusNotFound)
			return
		}

		var req shipmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		if err := req.validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := dispatcher.Submit(dispatch.Job{Webhook: name, Payload: req.payload()}); err != nil {
			oplog := httplog.LogEntry(r.Context())
			oplog.Warn().Err(err).Str("webhook", name).Str("shipment_id", req.ShipmentID).Msg("sync not queued")
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":     "queued",
			"shipmentId": req.ShipmentID,
		})
	})
}
