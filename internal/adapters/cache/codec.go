// Package cache provides the cache backends: memory, sqlite, mysql and
// redis. Every backend stores gob-encoded values under string keys with a
// per-entry TTL.
package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// encodeValue serializes a cacheable value. Callers pass concrete types, so
// no gob type registration is needed.
func encodeValue(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, fmt.Errorf("failed to encode cache value: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeValue deserializes into out, which must be a pointer to the same
// concrete type that was stored.
func decodeValue(data []byte, out any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode cache value: %w", err)
	}
	return nil
}
