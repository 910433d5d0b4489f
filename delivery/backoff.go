package delivery

import (
	"context"
	"time"
)

const (
	multipartMinTimeout = 15 * time.Second
	multipartMaxTimeout = 60 * time.Second
)

/* Backoff is the wait after a failed attempt
 * Multipart grows exponentially (base * 2^(attempt-1)), plain linearly
 * (base * attempt)
 */
func Backoff(enc Encoding, base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if enc == Multipart {
		return base * time.Duration(1<<uint(attempt-1))
	}
	return base * time.Duration(attempt)
}

// MultipartTimeout scales the request timeout with the attachment volume:
// 15s plus 1ms per KiB, capped at 60s
func MultipartTimeout(totalBytes int64) time.Duration {
	timeout := multipartMinTimeout + time.Duration(totalBytes/1024)*time.Millisecond
	if timeout > multipartMaxTimeout {
		return multipartMaxTimeout
	}
	return timeout
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
