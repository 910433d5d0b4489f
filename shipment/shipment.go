package shipment

import "time"

/* Shipment is the slice of the shipment record the relay forwards
 * Persistence and CRUD live in the upstream service
 */
type Shipment struct {
	ID             string    `json:"id"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	Status         string    `json:"status"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Acknowledgment is the proof of delivery captured by the driver
type Acknowledgment struct {
	ShipmentID   string    `json:"shipment_id"`
	SignatureURL string    `json:"signature_url,omitempty"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	CapturedAt   time.Time `json:"captured_at"`
}

/* Update is one intake message: a shipment write, optionally carrying the
 * acknowledgment that triggered it, addressed to a named webhook
 */
type Update struct {
	ID             string          `json:"id"`
	Webhook        string          `json:"webhook"`
	Shipment       Shipment        `json:"shipment"`
	Acknowledgment *Acknowledgment `json:"acknowledgment,omitempty"`
}
