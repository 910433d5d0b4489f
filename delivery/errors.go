package delivery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Kind classifies why a delivery attempt or lifecycle failed
type Kind int

const (
	KindOther Kind = iota
	KindFile
	KindNetwork
	KindHTTP
	KindConfig
	KindExhausted
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindConfig:
		return "config"
	case KindExhausted:
		return "exhausted"
	default:
		return "other"
	}
}

var (
	ErrWebhookNotFound = errors.New("webhook not found")
	ErrWebhookDisabled = errors.New("webhook disabled")
)

// Error is the tagged error every delivery layer returns
type Error struct {
	Kind       Kind
	StatusCode int // set for KindHTTP
	Attempts   int // set for KindExhausted
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		if e.Err != nil {
			return fmt.Sprintf("http status %d: %v", e.StatusCode, e.Err)
		}
		return fmt.Sprintf("http status %d", e.StatusCode)
	case KindExhausted:
		return fmt.Sprintf("delivery exhausted after %d attempts: %v", e.Attempts, e.Err)
	default:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FileError tags an attachment I/O fault
func FileError(err error) *Error {
	return &Error{Kind: KindFile, Err: err}
}

// NetworkError tags a transport fault
func NetworkError(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

// HTTPError tags a non-2xx response
func HTTPError(status int, body string) *Error {
	e := &Error{Kind: KindHTTP, StatusCode: status}
	if body != "" {
		e.Err = errors.New(body)
	}
	return e
}

// ConfigError tags a disabled or unknown webhook
func ConfigError(name string, err error) *Error {
	return &Error{Kind: KindConfig, Err: fmt.Errorf("%s: %w", name, err)}
}

// ExhaustedError wraps the last attempt error once every attempt is used
func ExhaustedError(attempts int, last error) *Error {
	return &Error{Kind: KindExhausted, Attempts: attempts, Err: last}
}

// KindOf returns the kind of the outermost tagged error
func KindOf(err error) Kind {
	if err == nil {
		return KindOther
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Classify(err).Kind
}

// CauseKind returns the kind of the innermost tagged error
func CauseKind(err error) Kind {
	kind := KindOf(err)
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		kind = e.Kind
		err = e.Err
	}
	return kind
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return 0
		}
		if e.Kind == KindHTTP {
			return e.StatusCode
		}
		err = e.Err
	}
	return 0
}

// Classify tags an arbitrary error by its type
func Classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.As(err, &netErr):
		return NetworkError(err)
	default:
		return &Error{Kind: KindOther, Err: err}
	}
}
