package delivery

import "fmt"

/* Encoding is the wire format of one delivery attempt
 * Plain is a JSON document, Multipart carries fields plus binary parts
 */
type Encoding int

const (
	Plain Encoding = iota + 1
	Multipart
)

// String returns the string representation of the encoding
func (e Encoding) String() string {
	switch e {
	case Plain:
		return "plain"
	case Multipart:
		return "multipart"
	default:
		return "unknown"
	}
}

// NewEncoding creates an Encoding from a string
func NewEncoding(s string) Encoding {
	switch s {
	case "multipart":
		return Multipart
	default:
		return Plain
	}
}

// Validate checks if the encoding is valid
func (e Encoding) Validate() error {
	if e != Plain && e != Multipart {
		return fmt.Errorf("invalid encoding: %d", e)
	}
	return nil
}

/* DecideEncoding picks the encoding a payload asks for
 * Recomputed on every attempt, never stored on the payload
 */
func DecideEncoding(p Payload) Encoding {
	if len(p.References()) > 0 {
		return Multipart
	}
	return Plain
}
