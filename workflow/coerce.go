package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/beanmesh/reply"
)

// Coerce converts v to T. Values of type T and *T are used directly; anything
// else (maps, raw JSON, structurally compatible structs) is re-shaped through
// JSON.
func Coerce[T any](v any) (T, error) {
	if x, ok := v.(T); ok {
		return x, nil
	}
	if p, ok := v.(*T); ok && p != nil {
		return *p, nil
	}

	var out T

	var raw []byte
	switch x := v.(type) {
	case json.RawMessage:
		raw = x
	case []byte:
		raw = x
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return out, fmt.Errorf("encode %T: %w", v, err)
		}
		raw = b
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode into %T: %w", out, err)
	}

	return out, nil
}

// coerceValid coerces v to T and runs struct tag validation.
func coerceValid[T any](v any) (T, error) {
	out, err := Coerce[T](v)
	if err != nil {
		return out, err
	}
	if err := reply.Validate(&out); err != nil {
		return out, err
	}
	return out, nil
}
