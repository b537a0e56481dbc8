package discord_test

import (
	"testing"
	"time"

	"github.com/duarte-pardal/discord-archiver/internal/discord"
)

func TestSnowflakeTimestamp(t *testing.T) {
	// 175928847299117063 is Discord's own documented example snowflake.
	sf, err := discord.ParseSnowflake("175928847299117063")
	if err != nil {
		t.Fatalf("ParseSnowflake: %v", err)
	}
	want := time.Date(2016, time.April, 30, 11, 18, 25, 796000000, time.UTC)
	if got := sf.Timestamp(); !got.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", got, want)
	}
}

func TestSnowflakeStringRoundTrip(t *testing.T) {
	const s = "824340425234809824"
	sf, err := discord.ParseSnowflake(s)
	if err != nil {
		t.Fatalf("ParseSnowflake: %v", err)
	}
	if got := sf.String(); got != s {
		t.Errorf("String = %q, want %q", got, s)
	}
}

func TestIsValidImageHash(t *testing.T) {
	cases := map[string]bool{
		"a_1234567890abcdef1234567890abcdef": true,
		"1234567890abcdef1234567890abcdef":   true,
		"too-short":                          false,
		"1234567890ABCDEF1234567890abcdef":   false,
	}
	for in, want := range cases {
		if got := discord.IsValidImageHash(in); got != want {
			t.Errorf("IsValidImageHash(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsCDNURL(t *testing.T) {
	if !discord.IsCDNURL("https://cdn.discordapp.com/avatars/1/2.png") {
		t.Error("expected CDN host to match")
	}
	if discord.IsCDNURL("https://example.com/avatars/1/2.png") {
		t.Error("expected non-CDN host not to match")
	}
}
