// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// MaxQueryLength is the longest accepted question, in characters.
const MaxQueryLength = 2000

// QuerySchema describes the body of POST /query.
var QuerySchema = fmt.Sprintf(`{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "query": {
      "type": "string",
      "minLength": 1,
      "maxLength": %d,
      "pattern": "\\S"
    },
    "propertyId": {
      "type": ["string", "null"],
      "maxLength": 64
    }
  },
  "required": ["query"]
}`, MaxQueryLength)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Summary joins the error messages into one line.
func (r *ValidationResult) Summary() string {
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.Field + ": " + e.Message
	}
	return strings.Join(parts, "; ")
}

// Validator checks JSON documents against a compiled schema.
type Validator struct {
	schema *gojsonschema.Schema
}

func NewValidator(schema string) (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// NewQueryValidator compiles QuerySchema.
func NewQueryValidator() *Validator {
	v, err := NewValidator(QuerySchema)
	if err != nil {
		panic(err)
	}
	return v
}

// ValidateJSON validates a raw request body.
func (v *Validator) ValidateJSON(body []byte) *ValidationResult {
	return v.validate(gojsonschema.NewBytesLoader(body))
}

// ValidateInput validates an already decoded document.
func (v *Validator) ValidateInput(input interface{}) *ValidationResult {
	return v.validate(gojsonschema.NewGoLoader(input))
}

func (v *Validator) validate(doc gojsonschema.JSONLoader) *ValidationResult {
	result, err := v.schema.Validate(doc)
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: "body is not valid JSON",
			Code:    "INVALID_JSON",
		}}}
	}
	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if p, ok := desc.Details()["property"].(string); ok && field == "(root)" {
			field = p
		}
		errs = append(errs, ValidationError{
			Field:   field,
			Message: describe(desc),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return &ValidationResult{Errors: errs}
}

func describe(desc gojsonschema.ResultError) string {
	if desc.Type() == "pattern" && desc.Field() == "query" {
		return "must not be blank"
	}
	return desc.Description()
}
