package discord

import "regexp"

// imageHashPattern matches Discord's avatar/icon/banner hash format: an
// optional "a_" animated prefix followed by 32 lowercase hex digits. Mirrors
// internal/codec/scalar.go's unexported pattern of the same name — kept
// separate because internal/discord, not internal/codec, is the boundary
// collaborators outside the codec (the linker CLI, in particular) should
// depend on for platform-shape validation.
var imageHashPattern = regexp.MustCompile(`^(a_)?[0-9a-f]{32}$`)

// IsValidImageHash reports whether s has the shape of a Discord image hash.
func IsValidImageHash(s string) bool {
	return imageHashPattern.MatchString(s)
}

// IsAnimatedImageHash reports whether a valid image hash denotes an
// animated (GIF) asset.
func IsAnimatedImageHash(s string) bool {
	return len(s) >= 2 && s[:2] == "a_"
}
