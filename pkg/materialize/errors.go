package materialize

import "fmt"

// Kind classifies a validation failure. Each kind is a distinct user-facing
// error; any of them aborts materialization of the whole document.
type Kind string

const (
	KindInvalidType     Kind = "invalid-type"
	KindTooLong         Kind = "too-long"
	KindEnum            Kind = "enum-violation"
	KindMissingRequired Kind = "missing-required"
	KindForeignKey      Kind = "foreign-key"
	KindPrimaryKey      Kind = "primary-key"
	KindUnknownField    Kind = "unknown-field"
)

// ValidationError reports one rejected field. Schema and Field locate the
// offending key in the wire document.
type ValidationError struct {
	Kind   Kind
	Schema string
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Schema, e.Detail)
	}
	return fmt.Sprintf("%s: %s.%s: %s", e.Kind, e.Schema, e.Field, e.Detail)
}

func errf(kind Kind, schema, field, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Schema: schema, Field: field, Detail: fmt.Sprintf(format, args...)}
}
