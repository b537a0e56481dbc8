package codec

// FieldSchema declares how one external field is translated to (and from)
// flat storage. A FieldSub entry recurses with its sub-schema; its Column
// is used as the "parent__child" prefix for every descendant column.
type FieldSchema struct {
	JSONKey string
	Column  string
	Kind    FieldKind
	Tag     ScalarTag
	Sub     []FieldSchema
	Null    NullPolicy
	// Immutable marks a scalar or sub column as part of the object's
	// immutable partition (spec.md §3): it must never change across
	// snapshots of the same id. Enforced by the snapshot engine, not here;
	// recorded in the schema so the engine can derive its immutable/mutable
	// column split without a second declaration.
	Immutable bool
}

// Row is a flat map of SQL column name to a database/sql-bindable scalar:
// nil, string, int64, float64, or []byte.
type Row map[string]any

// ImmutableColumns returns the flat column names of every immutable field
// in schema (recursing into sub-schemas, prefixing with "parent__").
func ImmutableColumns(schema []FieldSchema) []string {
	var out []string
	collectColumns(schema, true, &out)
	return out
}

// MutableColumns returns the flat column names of every mutable field in
// schema (recursing into sub-schemas, prefixing with "parent__").
func MutableColumns(schema []FieldSchema) []string {
	var out []string
	collectColumns(schema, false, &out)
	return out
}

func collectColumns(schema []FieldSchema, immutable bool, out *[]string) {
	for _, f := range schema {
		switch f.Kind {
		case FieldScalar:
			if f.Immutable == immutable {
				if f.Tag == TagEmoji {
					*out = append(*out, f.Column+"_id", f.Column+"_name")
				} else {
					*out = append(*out, f.Column)
				}
			}
		case FieldSub:
			collectColumns(prefixed(f.Column, f.Sub), immutable, out)
		case FieldExtra:
			// extras live in the JSON side-channel, not as columns.
		case FieldIgnore:
		}
	}
}

// prefixed returns a copy of sub with every Column rewritten to
// "prefix__column", for recursive flattening of nested schemas.
func prefixed(prefix string, sub []FieldSchema) []FieldSchema {
	out := make([]FieldSchema, len(sub))
	for i, f := range sub {
		f2 := f
		if f.Column != "" {
			f2.Column = prefix + "__" + f.Column
		}
		if f.Kind == FieldSub {
			f2.Sub = f.Sub // recursion re-prefixes lazily in collectColumns/walk
		}
		out[i] = f2
	}
	return out
}
