package snapshot

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
)

func joinQuoted(cols []string) string {
	return strings.Join(quoteAll(cols), ", ")
}

func joinStrings(parts []string) string {
	return strings.Join(parts, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func unmarshalExtras(raw json.RawMessage, out *map[string]any) error {
	if len(raw) == 0 {
		*out = map[string]any{}
		return nil
	}
	return json.Unmarshal(raw, out)
}

func deepEqualExtras(a, b map[string]any) bool {
	return reflect.DeepEqual(a, b)
}

func deepEqualRow(a, b codec.Row) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if !compareColumnValues(v, b[k]) {
			return false
		}
	}
	return true
}
