package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Properties is the free-form attribute bag attached to an event.
// Values are restricted to what JSON can carry: string, float64, bool, nil,
// []any and map[string]any (recursively).
type Properties map[string]any

// ParseProperties decodes a JSON object into Properties.
// An empty input yields an empty bag.
func ParseProperties(raw string) (Properties, error) {
	if raw == "" || raw == "null" {
		return Properties{}, nil
	}

	var props Properties
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		return nil, fmt.Errorf("failed to unmarshal properties: %w", err)
	}
	if props == nil {
		props = Properties{}
	}
	return props, nil
}

// Normalize round-trips the bag through JSON so every value ends up as one of
// the supported JSON types (numbers become float64, structs become maps).
func (p Properties) Normalize() (Properties, error) {
	if len(p) == 0 {
		return Properties{}, nil
	}

	raw, err := json.Marshal(map[string]any(p))
	if err != nil {
		return nil, fmt.Errorf("properties are not JSON encodable: %w", err)
	}
	return ParseProperties(string(raw))
}

// String returns the canonical JSON encoding, "{}" for an empty bag.
// encoding/json sorts map keys, so the output is deterministic.
func (p Properties) String() string {
	if len(p) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(map[string]any(p))
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// Lookup returns the scalar value stored under key in its canonical string
// form. Nested objects and arrays are not addressable and report false.
func (p Properties) Lookup(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	return scalarString(v)
}

// Matches reports whether every filter key is present with an equal scalar value.
func (p Properties) Matches(filters map[string]string) bool {
	for k, want := range filters {
		got, ok := p.Lookup(k)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func scalarString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case json.Number:
		return val.String(), true
	case nil:
		return "null", true
	default:
		return "", false
	}
}
