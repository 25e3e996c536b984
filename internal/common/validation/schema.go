package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationResult is the outcome of validating one document.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Summary joins the field errors into one line for error details.
func (r ValidationResult) Summary() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}

// Schema is a compiled JSON schema.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// MustCompile panics on an invalid schema; schemas are package constants.
func MustCompile(name, source string) *Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return &Schema{name: name, schema: s}
}

// Validate checks a raw JSON document.
func (s *Schema) Validate(document []byte) (ValidationResult, error) {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return ValidationResult{}, fmt.Errorf("validate %s: %w", s.name, err)
	}

	out := ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
		})
	}
	return out, nil
}

var categoryEnum = `["food", "product", "ride", "hotel"]`

// SearchRequest validates POST /api/search/ bodies.
var SearchRequest = MustCompile("search-request", `{
  "type": "object",
  "required": ["query"],
  "properties": {
    "query":       {"type": "string", "minLength": 1, "maxLength": 500},
    "category":    {"type": "string", "enum": `+categoryEnum+`},
    "user_id":     {"type": "string", "maxLength": 128},
    "max_price":   {"type": "number", "exclusiveMinimum": 0},
    "max_time":    {"type": "integer", "minimum": 1},
    "location":    {"type": "string", "maxLength": 200},
    "max_results": {"type": "integer", "minimum": 1, "maximum": 100},
    "platforms":   {"type": "array", "items": {"type": "string"}, "uniqueItems": true}
  }
}`)

// ProfileUpdate validates PUT /api/profile/{id} bodies.
var ProfileUpdate = MustCompile("profile-update", `{
  "type": "object",
  "properties": {
    "weights": {
      "type": "object",
      "required": ["price", "time", "rating", "fee", "preference"],
      "properties": {
        "price":      {"type": "number", "minimum": 0, "maximum": 1},
        "time":       {"type": "number", "minimum": 0, "maximum": 1},
        "rating":     {"type": "number", "minimum": 0, "maximum": 1},
        "fee":        {"type": "number", "minimum": 0, "maximum": 1},
        "preference": {"type": "number", "minimum": 0, "maximum": 1}
      }
    },
    "preferred_platforms": {
      "type": "object",
      "additionalProperties": {"type": "number", "minimum": 0, "maximum": 1}
    },
    "budget_max":       {"type": ["number", "null"], "minimum": 0},
    "default_location": {"type": "string", "maxLength": 200}
  }
}`)
