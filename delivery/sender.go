package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/marcelsud/shipment-relay/delivery/signature"
	"github.com/rs/zerolog"
)

const (
	maxErrorBody = 1024
	userAgent    = "shipment-relay/1.0"

	HeaderDeliveryID      = "X-Delivery-Id"
	HeaderDeliveryAttempt = "X-Delivery-Attempt"
)

// HTTPSender is the delivery executor: one POST per attempt
type HTTPSender struct {
	client   *http.Client
	loader   AttachmentLoader
	recorder Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

type SenderOption func(*HTTPSender)

// WithHTTPClient replaces the default client; per-attempt timeouts still apply
func WithHTTPClient(c *http.Client) SenderOption {
	return func(s *HTTPSender) { s.client = c }
}

// WithRecorder sets where attempt samples go
func WithRecorder(r Recorder) SenderOption {
	return func(s *HTTPSender) { s.recorder = r }
}

func WithSenderLogger(l zerolog.Logger) SenderOption {
	return func(s *HTTPSender) { s.logger = l }
}

// NewHTTPSender creates an executor that loads attachments through loader
func NewHTTPSender(loader AttachmentLoader, opts ...SenderOption) *HTTPSender {
	s := &HTTPSender{
		client:   &http.Client{},
		loader:   loader,
		recorder: nopRecorder{},
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type part struct {
	kind AttachmentKind
	data []byte
}

// Attempt sends the payload once and records a metrics sample either way
func (s *HTTPSender) Attempt(ctx context.Context, req AttemptRequest) (Encoding, error) {
	start := time.Now()
	sent, size, err := s.send(ctx, req)

	s.recorder.Record(Sample{
		Encoding: sent,
		Success:  err == nil,
		Duration: time.Since(start),
		Bytes:    size,
		Degraded: sent == Plain && DecideEncoding(req.Payload) == Multipart,
	})

	return sent, err
}

func (s *HTTPSender) send(ctx context.Context, req AttemptRequest) (Encoding, int64, error) {
	if req.Encoding == Multipart {
		parts, total, err := s.loadAttachments(ctx, req.Payload)
		if err != nil {
			return Multipart, 0, err
		}
		if len(parts) > 0 {
			return Multipart, total, s.sendMultipart(ctx, req, parts, total)
		}
		s.logger.Info().
			Str("delivery_id", req.DeliveryID).
			Str("shipment_id", req.Payload.ShipmentID).
			Msg("no attachments loaded, sending plain")
	}

	n, err := s.sendPlain(ctx, req)
	return Plain, n, err
}

func (s *HTTPSender) loadAttachments(ctx context.Context, p Payload) ([]part, int64, error) {
	var parts []part
	var total int64

	for _, ref := range p.References() {
		data, err := s.loader.Load(ctx, ref)
		if err != nil {
			var tagged *Error
			if errors.As(err, &tagged) {
				return nil, 0, tagged
			}
			return nil, 0, FileError(err)
		}
		if len(data) == 0 {
			continue
		}
		parts = append(parts, part{kind: ref.Kind, data: data})
		total += int64(len(data))
	}

	return parts, total, nil
}

func (s *HTTPSender) sendPlain(ctx context.Context, req AttemptRequest) (int64, error) {
	body, err := json.Marshal(req.Payload)
	if err != nil {
		return 0, &Error{Kind: KindOther, Err: fmt.Errorf("marshaling payload: %w", err)}
	}

	return int64(len(body)), s.post(ctx, req, body, "application/json", req.Config.Timeout)
}

func (s *HTTPSender) sendMultipart(ctx context.Context, req AttemptRequest, parts []part, total int64) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"shipmentId", req.Payload.ShipmentID},
		{"status", req.Payload.Status},
		{"syncedAt", req.Payload.SyncedAt.Format(time.RFC3339Nano)},
	}
	if ack := req.Payload.Acknowledgment; ack != nil && !ack.CapturedAt.IsZero() {
		fields = append(fields, [2]string{"acknowledgementCapturedAt", ack.CapturedAt.Format(time.RFC3339Nano)})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return &Error{Kind: KindOther, Err: fmt.Errorf("writing field %s: %w", f[0], err)}
		}
	}

	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, p.kind, p.kind.Filename()))
		h.Set("Content-Type", p.kind.ContentType())

		pw, err := w.CreatePart(h)
		if err != nil {
			return FileError(fmt.Errorf("creating %s part: %w", p.kind, err))
		}
		if _, err := pw.Write(p.data); err != nil {
			return FileError(fmt.Errorf("writing %s part: %w", p.kind, err))
		}
	}
	if err := w.Close(); err != nil {
		return FileError(fmt.Errorf("closing multipart body: %w", err))
	}

	return s.post(ctx, req, buf.Bytes(), w.FormDataContentType(), MultipartTimeout(total))
}

func (s *HTTPSender) post(ctx context.Context, req AttemptRequest, body []byte, contentType string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Config.URL, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: KindOther, Err: fmt.Errorf("creating request: %w", err)}
	}

	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set(HeaderDeliveryID, req.DeliveryID)
	httpReq.Header.Set(HeaderDeliveryAttempt, strconv.Itoa(req.Attempt))
	if req.Config.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Config.Token)
	}
	if req.Config.SigningSecret != "" {
		secret, err := signature.ParseSecret(req.Config.SigningSecret)
		if err != nil {
			return &Error{Kind: KindOther, Err: fmt.Errorf("parsing signing secret: %w", err)}
		}
		msgID := fmt.Sprintf("%s_%d", req.DeliveryID, req.Attempt)
		if err := signature.SignRequest(httpReq.Header, secret, msgID, s.now(), body); err != nil {
			return &Error{Kind: KindOther, Err: fmt.Errorf("signing request: %w", err)}
		}
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return NetworkError(err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return HTTPError(resp.StatusCode, string(snippet))
	}

	return nil
}
