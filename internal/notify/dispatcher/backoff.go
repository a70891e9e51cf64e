// internal/notify/dispatcher/backoff.go
package dispatcher

import "time"

// Backoff returns the retry delay after the given attempt count: exponential
// from base, capped at ceiling. attempts is the value already incremented by
// the claim, so attempt 1 waits base, attempt 2 waits 2*base, and so on.
func Backoff(attempts int, base, ceiling time.Duration) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	// The shift saturates well before the exponent could overflow.
	if attempts > 30 {
		return ceiling
	}
	delay := base << (attempts - 1)
	if delay > ceiling || delay <= 0 {
		return ceiling
	}
	return delay
}

// Truncate caps an error message at max runes for the bounded last_error
// column.
func Truncate(msg string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max])
}
