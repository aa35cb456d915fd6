package query

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
)

// Encode flattens p into URL query values. Nested mappings use bracket
// notation (filter[status]=open) and slices become repeated keys.
func Encode(p Params) url.Values {
	values := url.Values{}
	for k, v := range p {
		encodeValue(values, k, v)
	}
	return values
}

func encodeValue(values url.Values, key string, v any) {
	switch val := v.(type) {
	case nil:
		return
	case Params:
		encodeMap(values, key, val)
	case map[string]any:
		encodeMap(values, key, val)
	case string:
		values.Add(key, val)
	case []string:
		for _, s := range val {
			values.Add(key, s)
		}
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				encodeValue(values, key, rv.Index(i).Interface())
			}
			return
		}
		values.Add(key, fmt.Sprint(v))
	}
}

func encodeMap(values url.Values, prefix string, m map[string]any) {
	for k, v := range m {
		encodeValue(values, prefix+"["+k+"]", v)
	}
}

// Key generates a deterministic identity string for an endpoint binding.
// Format: listsync:endpoint:param1=val1:param2=val2
//
// Example:
//
//	listsync:v1/orders:filter[status]=open:limit=10:page=2
func Key(endpoint string, p Params) string {
	parts := []string{"listsync"}

	endpoint = strings.Trim(endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	values := Encode(p)
	if len(values) > 0 {
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, strings.Join(values[k], ",")))
		}
	}

	return strings.Join(parts, ":")
}
