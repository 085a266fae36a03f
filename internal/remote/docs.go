package remote

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// NormalizeDocument round-trips a write payload through JSON into the
// canonical map representation stores operate on.
func NormalizeDocument(doc any) (map[string]any, error) {
	v, err := NormalizeValue(doc)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document must encode to a JSON object, got %T", doc)
	}
	return m, nil
}

// NormalizeValue round-trips any value through JSON.
func NormalizeValue(val any) (any, error) {
	raw, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveTimestamps replaces ServerTimestamp sentinels in the document
// with the commit instant, in Unix milliseconds, recursively.
func ResolveTimestamps(doc map[string]any, now time.Time) {
	for k := range doc {
		v := doc[k]
		resolveTimestampValue(&v, now)
		doc[k] = v
	}
}

func resolveTimestampValue(v *any, now time.Time) {
	switch val := (*v).(type) {
	case string:
		if val == ServerTimestamp {
			*v = float64(now.UnixMilli())
		}
	case map[string]any:
		ResolveTimestamps(val, now)
	case []any:
		for i := range val {
			resolveTimestampValue(&val[i], now)
		}
	}
}

// CompareValues orders JSON scalar values: numbers numerically, strings
// lexicographically, missing values first.
func CompareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if na, ok := a.(float64); ok {
		if nb, ok := b.(float64); ok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			default:
				return 0
			}
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// ContainsElement reports whether arr already holds elem: by matchKey
// value when elem is an object and matchKey is set, by deep equality
// otherwise.
func ContainsElement(arr []any, elem any, matchKey string) bool {
	elemMap, isMap := elem.(map[string]any)
	for _, v := range arr {
		if matchKey != "" && isMap {
			if existing, ok := v.(map[string]any); ok {
				if reflect.DeepEqual(existing[matchKey], elemMap[matchKey]) {
					return true
				}
				continue
			}
		}
		if reflect.DeepEqual(v, elem) {
			return true
		}
	}
	return false
}

// RemoveElement returns arr with every entry matching elem removed,
// and whether anything was removed. Matching follows the same rules as
// ContainsElement.
func RemoveElement(arr []any, elem any, matchKey string) ([]any, bool) {
	elemMap, isMap := elem.(map[string]any)
	kept := make([]any, 0, len(arr))
	for _, v := range arr {
		if matchKey != "" && isMap {
			if existing, ok := v.(map[string]any); ok {
				if !reflect.DeepEqual(existing[matchKey], elemMap[matchKey]) {
					kept = append(kept, v)
				}
				continue
			}
		}
		if !reflect.DeepEqual(v, elem) {
			kept = append(kept, v)
		}
	}
	return kept, len(kept) != len(arr)
}

// MatchesFilters evaluates a filter set against a decoded document.
func MatchesFilters(doc map[string]any, filters []Filter) bool {
	for _, f := range filters {
		want, err := NormalizeValue(f.Value)
		if err != nil {
			return false
		}
		switch f.Op {
		case OpEqual:
			if !reflect.DeepEqual(doc[f.Field], want) {
				return false
			}
		case OpArrayContains:
			arr, ok := doc[f.Field].([]any)
			if !ok {
				return false
			}
			found := false
			for _, v := range arr {
				if reflect.DeepEqual(v, want) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// EncodeDocument packs a decoded document back into wire form.
func EncodeDocument(id string, data map[string]any) Document {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("{}")
	}
	return Document{ID: id, Data: raw}
}
