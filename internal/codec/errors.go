package codec

import "fmt"

// SchemaError is a fatal codec-layer violation: an unknown-null on a
// required field, an out-of-range 64-bit encoding, or an invalid byte
// length for a packed array. Per spec.md §7 this is never retried or
// swallowed; it is surfaced to the caller and the enclosing request is
// rejected.
type SchemaError struct {
	Kind  Kind
	Path  string
	Field string
	Msg   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("codec: %s: field %q at %q: %s", e.Kind, e.Field, e.Path, e.Msg)
}

func schemaErrf(kind Kind, path, field, format string, args ...any) error {
	return &SchemaError{Kind: kind, Path: path, Field: field, Msg: fmt.Sprintf(format, args...)}
}
