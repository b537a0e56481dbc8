// Package discord holds the small set of platform-specific helpers the
// codec and snapshot engine need: snowflake timestamp extraction, CDN host
// recognition, and image-hash validation. It is not a Discord API client —
// the gateway/API wire protocol stays a collaborator (internal/gateway),
// per spec.md §1.
package discord

import (
	"strconv"
	"time"
)

// discordEpochMs is 2015-01-01T00:00:00.000Z in Unix milliseconds, the
// reference point Discord snowflake ids are offset from. Field layout
// follows the wrapper's Snowflake-as-string convention
// (other_examples/0e1d1879_veteran-software-discord-api-wrapper__api-channel.go.go).
const discordEpochMs int64 = 1420070400000

// Snowflake is a Discord object id: a 64-bit integer transported as a
// JSON string to avoid precision loss in non-Go clients. The codec decodes
// ids to decimal strings at the boundary (DESIGN.md Open Question 1); this
// type is for code that needs the numeric value directly, such as
// timestamp extraction.
type Snowflake uint64

// ParseSnowflake parses the decimal string form the codec/gateway uses.
func ParseSnowflake(s string) (Snowflake, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return Snowflake(v), nil
}

func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// Timestamp returns the creation time encoded in the snowflake's top 42
// bits.
func (s Snowflake) Timestamp() time.Time {
	ms := int64(s>>22) + discordEpochMs
	return time.UnixMilli(ms).UTC()
}
