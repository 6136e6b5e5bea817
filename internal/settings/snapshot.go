package settings

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// snapshot holds the in-memory copy of DB-backed settings.
type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

// current stores the latest snapshot atomically.
var current atomic.Value // stores snapshot

func init() {
	current.Store(snapshot{values: map[string]json.RawMessage{}})
}

// Store replaces the in-memory snapshot of DB-backed settings.
func Store(updatedAt time.Time, values map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		if v == nil {
			next[key] = nil
			continue
		}
		copied := make([]byte, len(v))
		copy(copied, v)
		next[key] = copied
	}
	current.Store(snapshot{updatedAt: updatedAt.UTC(), values: next})
}

// UpdatedAt returns the newest update time across stored settings.
func UpdatedAt() time.Time {
	return load().updatedAt
}

// Value returns a copy of the raw JSON value for a key.
func Value(key string) (json.RawMessage, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	val, ok := load().values[key]
	if !ok {
		return nil, false
	}
	if val == nil {
		return nil, true
	}
	copied := make([]byte, len(val))
	copy(copied, val)
	return copied, true
}

// All returns a copy of every stored setting.
func All() map[string]json.RawMessage {
	snap := load()
	out := make(map[string]json.RawMessage, len(snap.values))
	for k, v := range snap.values {
		copied := make([]byte, len(v))
		copy(copied, v)
		out[k] = copied
	}
	return out
}

// String returns a string setting or fallback when unset or malformed.
func String(key, fallback string) string {
	raw, ok := Value(key)
	if !ok {
		return fallback
	}
	if parsed := parseString(raw); parsed != "" {
		return parsed
	}
	return fallback
}

// Bool returns a boolean setting or fallback. JSON booleans and "true"/"false" strings are accepted.
func Bool(key string, fallback bool) bool {
	raw, ok := Value(key)
	if !ok {
		return fallback
	}
	raw = unwrapValue(bytes.TrimSpace(raw))
	var b bool
	if errUnmarshal := json.Unmarshal(raw, &b); errUnmarshal == nil {
		return b
	}
	if parsed, errParse := strconv.ParseBool(parseString(raw)); errParse == nil {
		return parsed
	}
	return fallback
}

// Int returns an integer setting or fallback. JSON numbers and numeric strings are accepted.
func Int(key string, fallback int) int {
	raw, ok := Value(key)
	if !ok {
		return fallback
	}
	raw = unwrapValue(bytes.TrimSpace(raw))
	var n json.Number
	if errUnmarshal := json.Unmarshal(raw, &n); errUnmarshal == nil {
		if parsed, errParse := n.Int64(); errParse == nil {
			return int(parsed)
		}
	}
	if parsed, errParse := strconv.Atoi(parseString(raw)); errParse == nil {
		return parsed
	}
	return fallback
}

// parseString extracts a string from a JSON string or a {"value": ...} wrapper.
func parseString(raw json.RawMessage) string {
	raw = unwrapValue(bytes.TrimSpace(raw))
	if len(raw) == 0 {
		return ""
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

// unwrapValue strips a {"value": ...} wrapper, which the admin UI may send.
func unwrapValue(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || raw[0] != '{' {
		return raw
	}
	var wrapper struct {
		Value json.RawMessage `json:"value"`
	}
	if errUnmarshal := json.Unmarshal(raw, &wrapper); errUnmarshal == nil && len(wrapper.Value) > 0 {
		return unwrapValue(bytes.TrimSpace(wrapper.Value))
	}
	return raw
}

func load() snapshot {
	snap, ok := current.Load().(snapshot)
	if !ok || snap.values == nil {
		return snapshot{updatedAt: snap.updatedAt, values: map[string]json.RawMessage{}}
	}
	return snap
}
