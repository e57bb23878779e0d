package triktools

import (
	"fmt"

	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
)

// NormalizeInput repairs the handful of shape mistakes language models
// commonly make when producing tool arguments: null for "omit this",
// a scalar where an array is declared, an array where a string is
// declared. It is a heuristic, not schema validation; everything it
// does not repair is left for the remote server to reject.
//
// The input map is not mutated. Schemas that are not object schemas
// pass the input through unchanged.
func NormalizeInput(input map[string]any, s *jsonschema.Schema) map[string]any {
	if s == nil || s.Type != "object" {
		return input
	}

	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}

	result := make(map[string]any, len(input))
	for k, v := range input {
		result[k] = v
	}

	// null for an optional field means "omit this"
	for key, value := range result {
		if value == nil && !required[key] {
			delete(result, key)
			logger.KV(xlog.DEBUG, "normalize", "removed_null_optional", "key", key)
		}
	}

	if s.Properties == nil {
		return result
	}

	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		key := pair.Key
		value, ok := result[key]
		if !ok || value == nil {
			// remaining nulls belong to required fields, the server
			// validates those
			continue
		}

		switch pair.Value.Type {
		case "array":
			if _, isList := value.([]any); !isList {
				logger.KV(xlog.DEBUG, "normalize", "coerced_to_array", "key", key)
				result[key] = []any{value}
			}
		case "string":
			switch v := value.(type) {
			case string:
				// already correct
			case []any:
				if len(v) == 0 {
					delete(result, key)
					logger.KV(xlog.DEBUG, "normalize", "removed_empty_array", "key", key)
				} else {
					result[key] = stringify(v[0])
					logger.KV(xlog.DEBUG, "normalize", "coerced_array_to_string", "key", key)
				}
			default:
				result[key] = stringify(value)
				logger.KV(xlog.DEBUG, "normalize", "coerced_to_string", "key", key)
			}
		}
	}

	return result
}

func stringify(val any) string {
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprint(val)
}
