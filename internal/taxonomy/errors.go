package taxonomy

import (
	"errors"
	"fmt"
)

// SchemaLoadError reports reference data that is missing or malformed.
// A codec cannot be built without a schema, so callers treat it as fatal.
type SchemaLoadError struct {
	Source string
	Err    error
}

func (e *SchemaLoadError) Error() string {
	if e.Source == "" {
		return "taxonomy: load schema: " + e.Err.Error()
	}
	return fmt.Sprintf("taxonomy: load schema %s: %s", e.Source, e.Err.Error())
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Err
}

func schemaErr(source string, err error) *SchemaLoadError {
	return &SchemaLoadError{Source: source, Err: err}
}

// IsSchemaLoad reports whether err (or any error in its chain) is a SchemaLoadError.
func IsSchemaLoad(err error) bool {
	var se *SchemaLoadError
	return errors.As(err, &se)
}

// ParseError rejects one classification string, naming the offending token.
type ParseError struct {
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("taxonomy: %s: %q", e.Reason, e.Token)
}

// IsParse reports whether err (or any error in its chain) is a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
