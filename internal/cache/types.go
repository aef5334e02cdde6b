package cache

import "time"

// Store defines the interface for response payload storage.
// Entries expire ttl after insertion and are never served at or past
// that instant.
type Store interface {
	// Get retrieves a live payload by key
	// Returns the payload and true if found, nil and false otherwise
	Get(key string) ([]byte, bool)

	// Set stores a payload unconditionally, restarting its TTL
	Set(key string, value []byte, ttl time.Duration)

	// Add stores a payload only if no live entry exists for key.
	// Returns true if the payload was stored.
	Add(key string, value []byte, ttl time.Duration) bool

	// Len returns the number of entries held, including expired entries
	// that have not been reclaimed yet
	Len() int

	// Close releases any resources held by the store
	Close()
}

// Observer receives cache events from the middleware
type Observer interface {
	Hit()
	Miss()
	Stored()
	Bypassed()
}

// NoopObserver discards all events
type NoopObserver struct{}

func (NoopObserver) Hit()      {}
func (NoopObserver) Miss()     {}
func (NoopObserver) Stored()   {}
func (NoopObserver) Bypassed() {}
