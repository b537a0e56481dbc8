package codec

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/duarte-pardal/discord-archiver/internal/warnonce"
)

// DefaultWarnSet is the process-lifetime warning dedup set used by Encode
// when no explicit set is supplied via EncodeWith. Unknown-field warnings
// are keyed by (kind, path, key) per spec.md §4.1, so each is logged once
// per process no matter how many archived objects trigger it.
var DefaultWarnSet = warnonce.New()

// Encode translates an external semi-typed object (nested maps, optional
// fields) for kind into a flat row plus an "extras" JSON side-channel,
// per the static schema registered for kind. Unknown fields are preserved
// in extras and trigger a first-seen-only warning via DefaultWarnSet.
func Encode(ctx context.Context, logger *slog.Logger, kind Kind, obj map[string]any) (Row, json.RawMessage, error) {
	return EncodeWith(ctx, logger, DefaultWarnSet, kind, obj)
}

// EncodeWith is Encode with an explicit warning set, for tests that need
// isolation from the process-global default.
func EncodeWith(ctx context.Context, logger *slog.Logger, warn *warnonce.Set, kind Kind, obj map[string]any) (Row, json.RawMessage, error) {
	schema, ok := Schemas[kind]
	if !ok {
		return nil, nil, fmt.Errorf("codec: no schema registered for kind %q", kind)
	}
	extras := map[string]any{}
	cols, err := encodeWalk(ctx, logger, warn, kind, "", schema, obj, extras)
	if err != nil {
		return nil, nil, err
	}
	row := make(Row, len(cols))
	for _, cv := range cols {
		row[cv.Name] = cv.Value
	}
	extrasJSON, err := json.Marshal(extras)
	if err != nil {
		return nil, nil, fmt.Errorf("codec: marshal extras: %w", err)
	}
	return row, extrasJSON, nil
}

func encodeWalk(ctx context.Context, logger *slog.Logger, warn *warnonce.Set, kind Kind, path string, schema []FieldSchema, obj map[string]any, extras map[string]any) ([]ColumnValue, error) {
	known := make(map[string]struct{}, len(schema))
	var cols []ColumnValue

	for _, f := range schema {
		known[f.JSONKey] = struct{}{}

		switch f.Kind {
		case FieldScalar:
			val := obj[f.JSONKey]
			cvs, err := encodeScalar(kind, path, f.JSONKey, f.Column, f.Tag, f.Null, val)
			if err != nil {
				return nil, err
			}
			cols = append(cols, cvs...)

		case FieldSub:
			var subObj map[string]any
			if raw, present := obj[f.JSONKey]; present && raw != nil {
				m, ok := raw.(map[string]any)
				if !ok {
					return nil, schemaErrf(kind, path, f.JSONKey, "expected object, got %T", raw)
				}
				subObj = m
			}
			subSchema := prefixed(f.Column, f.Sub)
			subPath := joinPath(path, f.JSONKey)
			cvs, err := encodeWalk(ctx, logger, warn, kind, subPath, subSchema, subObj, extras)
			if err != nil {
				return nil, err
			}
			cols = append(cols, cvs...)

		case FieldExtra:
			val, present := obj[f.JSONKey]
			if !present {
				val = nil
			}
			if !isNeutral(val, f.Null) {
				extras[joinPath(path, f.JSONKey)] = val
			}

		case FieldIgnore:
			// deliberately dropped
		}
	}

	for k, v := range obj {
		if _, ok := known[k]; ok {
			continue
		}
		fullPath := joinPath(path, k)
		extras[fullPath] = v
		warn.Warn(ctx, logger, warnonce.Key{Kind: string(kind), Path: path, Name: k},
			"codec: unrecognized field preserved in extras bag")
	}

	return cols, nil
}

func isNeutral(val any, null NullPolicy) bool {
	if val == nil {
		return true
	}
	if null == EmptyArray {
		if arr, ok := val.([]any); ok && len(arr) == 0 {
			return true
		}
	}
	return false
}

// DeepEqual reports whether two decoded values, such as two extras bags,
// are deeply equal, using reflect.DeepEqual.
func DeepEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
