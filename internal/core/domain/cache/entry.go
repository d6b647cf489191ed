// Package cache holds the response cache domain: cached entries, duration parsing,
// request keying and bypass detection.
package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrStoreNotConfigured is returned when the response cache is built without a store.
	ErrStoreNotConfigured = errors.New("response cache store is not set")

	// ErrStoreUnavailable wraps any failure reported by the backing store.
	ErrStoreUnavailable = errors.New("response cache store unavailable")

	// ErrMalformedRecord indicates a stored envelope that cannot be decoded.
	ErrMalformedRecord = errors.New("malformed cache record")

	// ErrGlobalClearUnsupported is returned by stores that cannot scope a full clear.
	ErrGlobalClearUnsupported = errors.New("global clear not supported by store")
)

// Hash fields written for every cached response.
const (
	FieldResponse = "response"
	FieldDuration = "duration"
)

// NoStoreCacheControl is sent with every replayed response so that intermediaries
// never reuse it.
const NoStoreCacheControl = "no-cache, no-store, must-revalidate"

// Entry is a captured response as persisted in the store.
type Entry struct {
	Status int `json:"status"`
	Data   any `json:"data"`
}

// NewEntry builds an Entry from a written status and body. JSON bodies are kept in
// structured form, anything else as a raw string.
func NewEntry(status int, body []byte) *Entry {
	return &Entry{Status: status, Data: DecodePayload(body)}
}

// DecodePayload returns the structured form of a JSON payload, or the payload as a string.
func DecodePayload(b []byte) any {
	if v, ok := parseJSON(b); ok {
		return v
	}
	return string(b)
}

// Payload returns the data to emit on replay. String data holding JSON is decoded.
func (e *Entry) Payload() any {
	if s, ok := e.Data.(string); ok {
		if v, ok := parseJSON([]byte(s)); ok {
			return v
		}
	}
	return e.Data
}

// Marshal encodes the entry envelope.
func (e *Entry) Marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}
	return b, nil
}

// UnmarshalEntry decodes a stored envelope.
func UnmarshalEntry(b []byte) (*Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var e Entry
	if err := dec.Decode(&e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if e.Status < 100 || e.Status > 999 {
		return nil, fmt.Errorf("%w: invalid status %d", ErrMalformedRecord, e.Status)
	}
	return &e, nil
}

// parseJSON decodes b keeping numbers as json.Number so integers survive the round trip.
func parseJSON(b []byte) (any, bool) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}
