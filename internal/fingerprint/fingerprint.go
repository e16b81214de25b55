// Package fingerprint canonicalises JSON-like payloads and hashes them so that
// structurally equal inputs share a fingerprint regardless of key order.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// #region volatile-keys
// volatileKeys are dropped by NormalizeInputs at every nesting level.
var volatileKeys = map[string]struct{}{
	"timestamp":   {},
	"ts":          {},
	"createdAt":   {},
	"created_at":  {},
	"updatedAt":   {},
	"updated_at":  {},
	"requestId":   {},
	"request_id":  {},
	"traceId":     {},
	"trace_id":    {},
	"generatedAt": {},
}

// IsVolatile reports whether key is stripped during normalisation.
func IsVolatile(key string) bool {
	_, ok := volatileKeys[key]
	return ok
}

// #endregion volatile-keys

// #region normalize
// NormalizeInputs returns a copy of v with volatile keys removed from every
// object. Array order is preserved. Values that are not already generic JSON
// (map[string]any, []any, scalars) are converted through encoding/json first.
func NormalizeInputs(v any) (any, error) {
	g, err := Generic(v)
	if err != nil {
		return nil, err
	}
	return normalize(g), nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if IsVolatile(k) {
				continue
			}
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

// #endregion normalize

// #region stringify
// StableStringify serialises v as JSON with object keys sorted at every level
// and arrays in their original order. Volatile keys are kept.
func StableStringify(v any) (string, error) {
	g, err := Generic(v)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := writeSorted(&buf, g); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeSorted(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeSorted(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, val := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeSorted(buf, val); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return writeScalar(buf, t)
	}
	return nil
}

func writeScalar(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %T: %w", v, err)
	}
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// #endregion stringify

// #region hash
// Fingerprint returns the SHA-256 hex digest of v. A string is hashed
// verbatim; anything else is hashed over its StableStringify form.
func Fingerprint(v any) (string, error) {
	if s, ok := v.(string); ok {
		return String(s), nil
	}
	canonical, err := StableStringify(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return String(canonical), nil
}

// Inputs normalises v and fingerprints the result. This is the inputs
// fingerprint used in cache keys.
func Inputs(v any) (string, error) {
	n, err := NormalizeInputs(v)
	if err != nil {
		return "", fmt.Errorf("normalize inputs: %w", err)
	}
	return Fingerprint(n)
}

// String hashes s verbatim.
func String(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// #endregion hash

// #region generic
// Generic reduces v to map[string]any / []any / scalars.
func Generic(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
		return t, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			g, err := Generic(val)
			if err != nil {
				return nil, err
			}
			out[k] = g
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			g, err := Generic(val)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %T: %w", v, err)
	}
	return out, nil
}

// #endregion generic
