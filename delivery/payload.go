package delivery

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/marcelsud/shipment-relay/shipment"
)

// AttachmentKind names the binary part an attachment becomes on the wire
type AttachmentKind string

const (
	SignatureAttachment AttachmentKind = "signature"
	PhotoAttachment     AttachmentKind = "photo"
)

// Filename is the multipart filename the receiver expects for this kind
func (k AttachmentKind) Filename() string {
	switch k {
	case SignatureAttachment:
		return "signature.png"
	case PhotoAttachment:
		return "photo.jpg"
	default:
		return string(k)
	}
}

// ContentType is the MIME type sent with the part
func (k AttachmentKind) ContentType() string {
	switch k {
	case SignatureAttachment:
		return "image/png"
	case PhotoAttachment:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// AttachmentReference points at an attachment that is resolved lazily
type AttachmentReference struct {
	Locator string
	Kind    AttachmentKind
}

// IsEmpty reports whether the reference has nothing to resolve
func (r AttachmentReference) IsEmpty() bool {
	return strings.TrimSpace(r.Locator) == ""
}

// Acknowledgment is the attachment block of a payload
type Acknowledgment struct {
	CapturedAt time.Time
	Signature  AttachmentReference
	Photo      AttachmentReference
}

/* Payload is one logical update for the partner system
 * Uses value semantics: built once per business event and never mutated
 */
type Payload struct {
	ShipmentID     string
	Status         string
	SyncedAt       time.Time
	Acknowledgment *Acknowledgment
}

// BuildPayload maps a shipment and its optional acknowledgment into a payload
func BuildPayload(s shipment.Shipment, ack *shipment.Acknowledgment) Payload {
	syncedAt := s.UpdatedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now()
	}

	p := Payload{
		ShipmentID: s.ID,
		Status:     s.Status,
		SyncedAt:   syncedAt.UTC(),
	}

	if ack != nil {
		p.Acknowledgment = &Acknowledgment{
			CapturedAt: ack.CapturedAt.UTC(),
			Signature:  AttachmentReference{Locator: strings.TrimSpace(ack.SignatureURL), Kind: SignatureAttachment},
			Photo:      AttachmentReference{Locator: strings.TrimSpace(ack.PhotoURL), Kind: PhotoAttachment},
		}
	}

	return p
}

// References returns the non-empty attachment references, signature first
func (p Payload) References() []AttachmentReference {
	if p.Acknowledgment == nil {
		return nil
	}

	refs := make([]AttachmentReference, 0, 2)
	for _, ref := range []AttachmentReference{p.Acknowledgment.Signature, p.Acknowledgment.Photo} {
		if !ref.IsEmpty() {
			refs = append(refs, ref)
		}
	}
	return refs
}

type acknowledgmentJSON struct {
	CapturedAt   string `json:"capturedAt"`
	SignatureURL string `json:"signatureUrl,omitempty"`
	PhotoURL     string `json:"photoUrl,omitempty"`
}

type payloadJSON struct {
	ShipmentID     string              `json:"shipmentId"`
	Status         string              `json:"status"`
	SyncedAt       string              `json:"syncedAt"`
	Acknowledgment *acknowledgmentJSON `json:"acknowledgement,omitempty"`
}

// MarshalJSON renders the PLAIN body; attachment locators travel as URLs
func (p Payload) MarshalJSON() ([]byte, error) {
	out := payloadJSON{
		ShipmentID: p.ShipmentID,
		Status:     p.Status,
		SyncedAt:   p.SyncedAt.Format(time.RFC3339Nano),
	}
	if p.Acknowledgment != nil {
		out.Acknowledgment = &acknowledgmentJSON{
			CapturedAt:   p.Acknowledgment.CapturedAt.Format(time.RFC3339Nano),
			SignatureURL: p.Acknowledgment.Signature.Locator,
			PhotoURL:     p.Acknowledgment.Photo.Locator,
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses a PLAIN body back into a payload
func (p *Payload) UnmarshalJSON(data []byte) error {
	var in payloadJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	syncedAt, err := time.Parse(time.RFC3339Nano, in.SyncedAt)
	if err != nil {
		return err
	}

	*p = Payload{
		ShipmentID: in.ShipmentID,
		Status:     in.Status,
		SyncedAt:   syncedAt,
	}

	if in.Acknowledgment != nil {
		capturedAt, err := time.Parse(time.RFC3339Nano, in.Acknowledgment.CapturedAt)
		if err != nil {
			return err
		}
		p.Acknowledgment = &Acknowledgment{
			CapturedAt: capturedAt,
			Signature:  AttachmentReference{Locator: in.Acknowledgment.SignatureURL, Kind: SignatureAttachment},
			Photo:      AttachmentReference{Locator: in.Acknowledgment.PhotoURL, Kind: PhotoAttachment},
		}
	}

	return nil
}
