package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Filter selects grid messages by key, e.g. {"stepType": "instant", "numberOfPoints": "65160"}.
// Values are compared in their rendered string form.
type Filter map[string]string

// ParseFilter parses "key=value,key=value". An empty string yields an empty filter.
func ParseFilter(s string) (Filter, error) {
	f := Filter{}
	s = strings.TrimSpace(s)
	if s == "" {
		return f, nil
	}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("%w: filter entry %q must be key=value", ErrValidation, pair)
		}
		f[k] = v
	}
	return f, nil
}

// Matches reports whether every filter key is present in keys with an equal rendered value.
func (f Filter) Matches(keys map[string]any) bool {
	for k, want := range f {
		got, ok := keys[k]
		if !ok || RenderValue(got) != want {
			return false
		}
	}
	return true
}

// String renders the filter with sorted keys, in the form ParseFilter accepts.
func (f Filter) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + f[k]
	}
	return strings.Join(parts, ",")
}

// RenderValue formats a decoded key value for comparison. Integral floats render
// without a fraction or exponent, so 65160.0 matches "65160".
func RenderValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
