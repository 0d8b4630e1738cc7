package expect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// Canonical returns the RFC 8785 canonical JSON form of v, used for
// diagnostics and stored output. Numbers pass through float64, so integers
// beyond 2^53 lose precision here; Equal does not rely on it.
func Canonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// The canonicalizer only accepts an array or object at the top level,
	// so scalars travel inside a one-element array.
	if err := enc.Encode([]any{v}); err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	out, err := jsoncanonicalizer.Transform(bytes.TrimSpace(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("canonicalize value: %w", err)
	}
	return out[1 : len(out)-1], nil
}

// Equal reports whether two values are deeply equal. Both sides are
// normalized first, then compared structurally: strings exactly, integers as
// exact int64 values, mappings key by key and sequences element by element.
// Canonical JSON is only the fallback for types outside that tree.
func Equal(a, b any) bool {
	return deepEqual(Normalize(a), Normalize(b))
}

func deepEqual(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case int64:
		y, ok := b.(int64)
		return ok && x == y
	case float64:
		// Integral floats in int64 range were normalized to int64, so a
		// remaining float never equals an integer.
		y, ok := b.(float64)
		return ok && x == y
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !deepEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, present := y[k]
			if !present || !deepEqual(xv, yv) {
				return false
			}
		}
		return true
	}

	switch b.(type) {
	case nil, string, bool, int64, float64, []any, map[string]any:
		return false
	}
	ac, err := Canonical(a)
	if err != nil {
		return false
	}
	bc, err := Canonical(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ac, bc)
}

// DecodeStructured parses raw subject output as JSON.
// Malformed or trailing input yields nil, which is then matched like any
// other captured value.
func DecodeStructured(raw []byte) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	// Reject anything after the first value.
	if len(bytes.TrimSpace(raw[dec.InputOffset():])) > 0 {
		return nil
	}
	return Normalize(v)
}

// Normalize converts decoded numbers into int64 when integral and float64
// otherwise, recursing into sequences and mappings. Every suite decoder and
// the stdout decoder route through it so literal and captured values share
// one representation.
func Normalize(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return Normalize(f)
		}
		return val.String()
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint64:
		if val <= 1<<63-1 {
			return int64(val)
		}
		return float64(val)
	case float32:
		return float64(val)
	case float64:
		if val == math.Trunc(val) && val >= math.MinInt64 && val < math.MaxInt64 {
			return int64(val)
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Normalize(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Normalize(elem)
		}
		return out
	default:
		return v
	}
}
