package signature

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// SecretPrefix is the prefix for Standard Webhooks symmetric secrets
	SecretPrefix = "whsec_"

	// Version is the identifier of symmetric signatures
	Version = "v1"

	MinSecretBytes = 24
	MaxSecretBytes = 64

	HeaderID        = "webhook-id"
	HeaderTimestamp = "webhook-timestamp"
	HeaderSignature = "webhook-signature"
)

// Secret is a parsed signing secret
type Secret struct {
	raw     []byte
	encoded string
}

// GenerateSecret creates a random secret of size bytes
func GenerateSecret(size int) (Secret, error) {
	if size < MinSecretBytes || size > MaxSecretBytes {
		return Secret{}, fmt.Errorf("secret size must be between %d and %d bytes", MinSecretBytes, MaxSecretBytes)
	}

	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return Secret{}, fmt.Errorf("generating random bytes: %w", err)
	}

	return Secret{raw: raw, encoded: SecretPrefix + base64.StdEncoding.EncodeToString(raw)}, nil
}

// ParseSecret parses a whsec_ prefixed base64 secret
func ParseSecret(encoded string) (Secret, error) {
	if !strings.HasPrefix(encoded, SecretPrefix) {
		return Secret{}, fmt.Errorf("secret must start with %s prefix", SecretPrefix)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(encoded, SecretPrefix))
	if err != nil {
		return Secret{}, fmt.Errorf("decoding base64 secret: %w", err)
	}
	if len(raw) < MinSecretBytes || len(raw) > MaxSecretBytes {
		return Secret{}, fmt.Errorf("secret size must be between %d and %d bytes", MinSecretBytes, MaxSecretBytes)
	}

	return Secret{raw: raw, encoded: encoded}, nil
}

func (s Secret) String() string {
	return s.encoded
}

// Sign returns "v1,<base64 hmac>" over {msgID}.{unix timestamp}.{body}
func Sign(secret Secret, msgID string, timestamp time.Time, body []byte) (string, error) {
	if strings.Contains(msgID, ".") {
		return "", fmt.Errorf("message ID must not contain '.'")
	}

	mac := hmac.New(sha256.New, secret.raw)
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(strconv.FormatInt(timestamp.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(body)

	return Version + "," + base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// SignRequest sets the three Standard Webhooks headers on an outbound request
func SignRequest(h http.Header, secret Secret, msgID string, timestamp time.Time, body []byte) error {
	sig, err := Sign(secret, msgID, timestamp, body)
	if err != nil {
		return err
	}

	h.Set(HeaderID, msgID)
	h.Set(HeaderTimestamp, strconv.FormatInt(timestamp.Unix(), 10))
	h.Set(HeaderSignature, sig)
	return nil
}

/* Verify checks the headers of a received request against secret
 * The signature header may hold several space separated signatures
 */
func Verify(secret Secret, h http.Header, body []byte) (bool, error) {
	msgID := h.Get(HeaderID)
	ts, err := strconv.ParseInt(h.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return false, fmt.Errorf("parsing timestamp header: %w", err)
	}

	expected, err := Sign(secret, msgID, time.Unix(ts, 0), body)
	if err != nil {
		return false, fmt.Errorf("calculating signature: %w", err)
	}
	want, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(expected, Version+","))

	for _, candidate := range strings.Fields(h.Get(HeaderSignature)) {
		version, value, ok := strings.Cut(candidate, ",")
		if !ok || version != Version {
			continue
		}
		got, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			continue
		}
		if subtle.ConstantTimeCompare(want, got) == 1 {
			return true, nil
		}
	}

	return false, nil
}
