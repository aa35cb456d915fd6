// Package query holds the query parameter mapping bound to an endpoint and
// the helpers that compose, encode and decode it.
package query

import (
	"dario.cat/mergo"
)

// Params is the effective query parameter mapping of an endpoint binding.
// Values are scalars, slices or nested mappings.
type Params map[string]any

// Merge deep-merges src onto dst and returns the result as a new mapping.
// Nested mappings merge recursively, scalars and slices in src overwrite
// those in dst, and nil values in src are skipped. Neither argument is modified.
func Merge(dst, src Params) Params {
	out := Clone(dst)
	if out == nil {
		out = Params{}
	}
	if len(src) == 0 {
		return out
	}

	patch := compact(Clone(src))
	if err := mergo.Merge(&out, patch, mergo.WithOverride); err != nil {
		// mergo only fails on mismatched top-level types; fall back to a
		// shallow overwrite so a patch is never lost.
		for k, v := range patch {
			out[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of p. Nested mappings are copied as
// map[string]any so that merged results never alias caller state.
func Clone(p Params) Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Params:
		return map[string]any(Clone(val))
	case map[string]any:
		return map[string]any(Clone(Params(val)))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// compact drops nil values at every nesting level.
func compact(p Params) Params {
	for k, v := range p {
		switch val := v.(type) {
		case nil:
			delete(p, k)
		case map[string]any:
			compact(Params(val))
		}
	}
	return p
}
