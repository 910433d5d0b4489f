package chi

import (
	"net/http"
	"time"

	"github.com/marcelsud/shipment-relay/delivery"
)

type failedDeliveryResponse struct {
	ID            string    `json:"id"`
	Webhook       string    `json:"webhook"`
	ShipmentID    string    `json:"shipment_id"`
	Status        string    `json:"status"`
	LastError     string    `json:"last_error,omitempty"`
	FirstFailedAt time.Time `json:"first_failed_at"`
	RetryCount    int       `json:"retry_count"`
}

type replayResponse struct {
	Processed   int `json:"processed"`
	Successful  int `json:"successful"`
	StillFailed int `json:"still_failed"`
	Dropped     int `json:"dropped"`
}

type statsResponse struct {
	TotalRequests         int64          `json:"total_requests"`
	SuccessfulRequests    int64          `json:"successful_requests"`
	FailedRequests        int64          `json:"failed_requests"`
	PlainRequests         int64          `json:"plain_requests"`
	MultipartRequests     int64          `json:"multipart_requests"`
	DegradedRequests      int64          `json:"degraded_requests"`
	TotalBytes            int64          `json:"total_bytes"`
	SuccessRate           float64        `json:"success_rate"`
	AverageResponseTimeMs float64        `json:"average_response_time_ms"`
	AverageFileSize       int64          `json:"average_file_size"`
	RequestsPerMinute     float64        `json:"requests_per_minute"`
	UptimeSeconds         float64        `json:"uptime_seconds"`
	StartedAt             time.Time      `json:"started_at"`
	FailedQueue           map[string]int `json:"failed_queue"`
}

// getFailedDeliveries handles GET /v1/failed-deliveries[?webhook=name]
func getFailedDeliveries(failed FailedDeliveries) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		names := failed.Names()
		if name := r.URL.Query().Get("webhook"); name != "" {
			names = []string{name}
		}

		result := make([]failedDeliveryResponse, 0)
		for _, name := range names {
			for _, fd := range failed.List(name) {
				result = append(result, toFailedDeliveryResponse(name, fd))
			}
		}
		writeJSON(w, http.StatusOK, result)
	})
}

func toFailedDeliveryResponse(name string, fd delivery.FailedDelivery) failedDeliveryResponse {
	out := failedDeliveryResponse{
		ID:            fd.ID,
		Webhook:       name,
		ShipmentID:    fd.Payload.ShipmentID,
		Status:        fd.Payload.Status,
		FirstFailedAt: fd.FirstFailedAt,
		RetryCount:    fd.RetryCount,
	}
	if fd.LastError != nil {
		out.LastError = fd.LastError.Error()
	}
	return out
}

// postReplay handles POST /v1/failed-deliveries/replay, running one replay cycle
func postReplay(service delivery.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := service.Replay(r.Context())
		writeJSON(w, http.StatusOK, replayResponse{
			Processed:   res.Processed,
			Successful:  res.Successful,
			StillFailed: res.StillFailed,
			Dropped:     res.Dropped,
		})
	})
}

// getStats handles GET /v1/stats
func getStats(stats StatsStore, failed FailedDeliveries) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := stats.Snapshot()
		writeJSON(w, http.StatusOK, statsResponse{
			TotalRequests:         st.TotalRequests,
			SuccessfulRequests:    st.SuccessfulRequests,
			FailedRequests:        st.FailedRequests,
			PlainRequests:         st.PlainRequests,
			MultipartRequests:     st.MultipartRequests,
			DegradedRequests:      st.DegradedRequests,
			TotalBytes:            st.TotalBytes,
			SuccessRate:           st.SuccessRate,
			AverageResponseTimeMs: float64(st.AverageResponseTime.Microseconds()) / 1000,
			AverageFileSize:       st.AverageFileSize,
			RequestsPerMinute:     st.RequestsPerMinute,
			UptimeSeconds:         st.Uptime.Seconds(),
			StartedAt:             st.StartedAt,
			FailedQueue:           failed.Lengths(),
		})
	})
}

// postStatsReset handles POST /v1/stats/reset
func postStatsReset(stats StatsStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats.Reset()
		w.WriteHeader(http.StatusNoContent)
	})
}
