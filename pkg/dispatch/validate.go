package dispatch

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mpopa/slackgate/pkg/envelope"
	"github.com/mpopa/slackgate/pkg/registry"
)

// validateArguments checks args against the tool schema and returns a
// coerced copy containing only schema-declared fields. It is a pure, total
// function. All offending fields are reported in one error.
//
// The identity field of a user-class tool is exempt from the required check:
// its absence is an identity problem, not an arguments problem, and it gets
// its own error kind downstream.
func validateArguments(def registry.ToolDefinition, args map[string]any) (map[string]any, error) {
	var bad []string
	validated := make(map[string]any, len(def.Schema))

	for _, field := range def.Schema {
		raw, present := args[field.Name]
		if !present || raw == nil {
			identityExempt := def.Credential == registry.CredentialUser && field.Name == identityField
			if field.Required && !identityExempt {
				bad = append(bad, field.Name)
			}
			continue
		}

		coerced, ok := coerce(raw, field.Type)
		if !ok {
			bad = append(bad, field.Name)
			continue
		}
		validated[field.Name] = coerced
	}

	if len(bad) > 0 {
		return nil, envelope.ErrInvalidArguments(bad,
			fmt.Sprintf("invalid or missing arguments: %s", strings.Join(bad, ", ")))
	}
	return validated, nil
}

// coerce converts a decoded JSON value to the schema type. JSON numbers
// arrive as float64; integral ones and digit strings coerce to int,
// fractional values do not.
func coerce(raw any, t registry.FieldType) (any, bool) {
	switch t {
	case registry.TypeString:
		s, ok := raw.(string)
		return s, ok

	case registry.TypeInt:
		switch v := raw.(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			if v != math.Trunc(v) {
				return nil, false
			}
			return int(v), true
		case string:
			n, err := strconv.Atoi(v)
			return n, err == nil
		default:
			return nil, false
		}

	case registry.TypeBool:
		b, ok := raw.(bool)
		return b, ok

	default:
		return nil, false
	}
}
