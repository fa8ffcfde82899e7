// Package db provides the store interface shared by the SQLite and in-memory stores.
package db

// Store is a durable key-value store holding JSON documents.
//
// Failures never surface to callers: a write that cannot be persisted is
// logged and dropped, and a missing or undecodable value reads as absent.
// Callers treat the store as a best-effort cache plus the action queue.
type Store interface {
	// Save serializes value as JSON and writes it under key, replacing any prior value.
	Save(key string, value interface{})

	// Load decodes the value stored under key into out.
	// It returns false when the key is absent or the stored bytes are corrupt.
	Load(key string, out interface{}) bool

	// Has reports whether key holds a value.
	Has(key string) bool

	// Clear removes key.
	Clear(key string)

	// Keys lists stored keys starting with prefix, sorted.
	Keys(prefix string) []string
}

// LoadAs decodes the value under key into a fresh T.
func LoadAs[T any](s Store, key string) (T, bool) {
	var out T
	if !s.Load(key, &out) {
		var zero T
		return zero, false
	}
	return out, true
}
