package realtime

import (
	"encoding/json"
)

// Handler decodes an inbound payload and returns the work that applies it.
// Decoding runs on the connection's reader goroutine; the returned func is
// posted to the update goroutine.
type Handler func(data json.RawMessage) (func(), error)

// Handle builds a Handler that decodes payloads into T before calling fn on
// the update goroutine.
func Handle[T any](fn func(T)) Handler {
	return func(data json.RawMessage) (func(), error) {
		var v T
		if len(data) > 0 {
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
		}
		return func() { fn(v) }, nil
	}
}
