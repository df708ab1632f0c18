// Package schemas checks configuration documents against the JSON Schemas
// embedded in the root schemas package.
package schemas

import (
	"fmt"
	"strings"

	rootschemas "github.com/jonathan/autoleech/schemas"
	"github.com/xeipuuv/gojsonschema"
)

const rootField = "(root)"

// FieldError is one schema violation.
type FieldError struct {
	Field string
	// Keyword is the failing schema keyword, e.g. "maximum" or "pattern".
	Keyword string
	Message string
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Schema string
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "validation failed against %s:\n", ve.Schema)
	for i, fe := range ve.Errors {
		fmt.Fprintf(&sb, "  %d. %s: %s\n", i+1, fe.Field, fe.Message)
	}
	return sb.String()
}

// Fields returns the distinct offending fields in report order.
func (ve *ValidationError) Fields() []string {
	seen := make(map[string]bool, len(ve.Errors))
	var fields []string
	for _, fe := range ve.Errors {
		if !seen[fe.Field] {
			seen[fe.Field] = true
			fields = append(fields, fe.Field)
		}
	}
	return fields
}

// SchemaLoadError means the schema or the document could not be parsed.
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// ValidateConfig checks a JSON configuration file against config.schema.json.
func ValidateConfig(doc []byte) error {
	return check("config.schema.json",
		gojsonschema.NewBytesLoader(rootschemas.Config),
		gojsonschema.NewBytesLoader(doc))
}

// ValidateJSONString checks jsonContent against an inline schema.
func ValidateJSONString(schemaContent, jsonContent string) error {
	return check("inline schema",
		gojsonschema.NewStringLoader(schemaContent),
		gojsonschema.NewStringLoader(jsonContent))
}

func check(name string, schema, doc gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schema, doc)
	if err != nil {
		return &SchemaLoadError{Path: name, Message: "could not parse input", Cause: err}
	}
	if result.Valid() {
		return nil
	}

	ve := &ValidationError{Schema: name}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = rootField
		}
		ve.Errors = append(ve.Errors, FieldError{
			Field:   field,
			Keyword: desc.Type(),
			Message: desc.Description(),
		})
	}
	return ve
}
