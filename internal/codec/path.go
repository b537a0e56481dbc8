package codec

import "strings"

// joinPath builds a dotted extras-bag key from a parent path and a child
// JSON key. It is independent from the "__" column-prefix join used for
// flat SQL column names.
func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

// isDirectChild reports whether key is an immediate child of path in the
// dotted extras-bag namespace (used to sweep up unknown/extra keys that
// belong at this nesting level once every declared field has been
// consumed).
func isDirectChild(path, key string) bool {
	if path == "" {
		return !strings.Contains(key, ".")
	}
	rest, ok := strings.CutPrefix(key, path+".")
	if !ok {
		return false
	}
	return !strings.Contains(rest, ".")
}

func lastSegment(key string) string {
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		return key[i+1:]
	}
	return key
}
