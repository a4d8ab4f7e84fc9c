package payload

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Lookup walks a dotted path (e.g. "deal.owner.email") through nested maps.
// It returns ok=false when any segment is missing or an intermediate value
// is not an object.
func Lookup(doc map[string]any, path string) (any, bool) {
	if doc == nil || path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")
	current := any(doc)
	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok := node[segment]
		if !ok {
			return nil, false
		}
		current = value
	}
	return current, true
}

// Stringify renders a payload leaf value the way it should appear in a
// document: numbers without an exponent, booleans as true/false, nil as "".
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Missing returns the required paths that do not resolve to a non-empty value
// in doc, preserving the declared order. An empty result means the payload
// satisfies every requirement.
func Missing(required []string, doc map[string]any) []string {
	var missing []string
	for _, path := range required {
		value, ok := Lookup(doc, path)
		if !ok || strings.TrimSpace(Stringify(value)) == "" {
			missing = append(missing, path)
		}
	}
	return missing
}
