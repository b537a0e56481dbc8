package codec

import "encoding/json"

// Decode translates a stored row + extras side-channel back into the
// external semi-typed object shape for kind, per the schema used to
// encode it. Any extras-bag entry not claimed by a declared field is
// copied onto the result verbatim, preserving forward-compatible payload
// per spec.md §4.1.
func Decode(kind Kind, row Row, extrasJSON json.RawMessage) (map[string]any, error) {
	schema, ok := Schemas[kind]
	if !ok {
		return nil, schemaErrf(kind, "", "", "no schema registered for kind")
	}
	extras := map[string]any{}
	if len(extrasJSON) > 0 {
		if err := json.Unmarshal(extrasJSON, &extras); err != nil {
			return nil, schemaErrf(kind, "", "", "unmarshal extras: %v", err)
		}
	}
	get := func(col string) (any, bool) {
		v, ok := row[col]
		return v, ok
	}
	return decodeWalk(kind, "", schema, get, extras)
}

func decodeWalk(kind Kind, path string, schema []FieldSchema, get func(string) (any, bool), extras map[string]any) (map[string]any, error) {
	result := map[string]any{}

	for _, f := range schema {
		switch f.Kind {
		case FieldScalar:
			val, include, err := decodeScalar(kind, path, f.JSONKey, f.Column, f.Tag, f.Null, get)
			if err != nil {
				return nil, err
			}
			if include {
				result[f.JSONKey] = val
			}

		case FieldSub:
			subSchema := prefixed(f.Column, f.Sub)
			subPath := joinPath(path, f.JSONKey)
			subResult, err := decodeWalk(kind, subPath, subSchema, get, extras)
			if err != nil {
				return nil, err
			}
			if subIsNull(subSchema, get) && !hasExtrasUnder(extras, subPath) {
				switch f.Null {
				case Absent:
					// omit
				case Null:
					result[f.JSONKey] = nil
				case EmptyArray:
					result[f.JSONKey] = []any{}
				}
			} else {
				result[f.JSONKey] = subResult
			}

		case FieldExtra:
			path2 := joinPath(path, f.JSONKey)
			if v, ok := extras[path2]; ok {
				result[f.JSONKey] = v
				delete(extras, path2)
			} else if f.Null != Absent {
				result[f.JSONKey] = neutralValue(f.Null)
			}

		case FieldIgnore:
			// never surfaced
		}
	}

	for k, v := range extras {
		if isDirectChild(path, k) {
			result[lastSegment(k)] = v
			delete(extras, k)
		}
	}

	return result, nil
}

// subIsNull reports whether every scalar column belonging to subSchema
// (recursively) is absent/null in the row, meaning the whole sub-object
// should collapse to a single null/absent/empty-array per its own policy
// rather than decode to an object of all-null fields.
func subIsNull(subSchema []FieldSchema, get func(string) (any, bool)) bool {
	cols := MutableColumns(subSchema)
	cols = append(cols, ImmutableColumns(subSchema)...)
	for _, c := range cols {
		if v, ok := get(c); ok && v != nil {
			return false
		}
	}
	return true
}

func hasExtrasUnder(extras map[string]any, path string) bool {
	for k := range extras {
		if isDirectChild(path, k) {
			return true
		}
		if path != "" {
			if rest, ok := cutPrefixDot(k, path); ok && rest != "" {
				return true
			}
		}
	}
	return false
}

func cutPrefixDot(key, prefix string) (string, bool) {
	if len(key) <= len(prefix)+1 {
		return "", false
	}
	if key[:len(prefix)] != prefix || key[len(prefix)] != '.' {
		return "", false
	}
	return key[len(prefix)+1:], true
}
