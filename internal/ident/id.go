// Package ident generates the opaque identifiers used across the
// daemon: job IDs, confirmation tokens, correlation IDs, and session
// scopes. All IDs are prefix + random hex so a reader can tell at a
// glance what kind of object a log line refers to.
package ident

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewJobID generates an identifier for a queued executor job.
func NewJobID() string {
	return prefixedID("job", 16)
}

// NewConfirmToken generates a one-time confirmation token.
func NewConfirmToken() string {
	return prefixedID("cf", 8)
}

// NewCorrelationID generates a correlation ID for request tracing.
func NewCorrelationID() string {
	return prefixedID("c", 12)
}

// NewSessionScope generates a scope identifier for a caller session.
func NewSessionScope() string {
	return prefixedID("sess", 8)
}

// UTCNowISO returns the current UTC time in ISO format with Z suffix.
func UTCNowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

func prefixedID(prefix string, hexLen int) string {
	b := make([]byte, (hexLen+1)/2)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based ID if crypto/rand fails
		return fmt.Sprintf("%s-%x", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(b)[:hexLen])
}
