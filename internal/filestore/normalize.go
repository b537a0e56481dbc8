// Package filestore implements the content-addressed blob store described
// in spec.md §4.3: a URL-deduplicating, hash-addressed file store whose
// commit is coupled to the database transaction that references the new
// blob, with refcounted concurrent-acquisition dedup and crash recovery
// from orphan pending files.
package filestore

import (
	"net/url"

	"github.com/duarte-pardal/discord-archiver/internal/discord"
)

// NormalizeURL strips the query string from URLs under a known CDN host
// (internal/discord.KnownCDNHosts), so the files table key (and the
// embed-equality comparison in internal/snapshot) is insensitive to
// signature rotation (spec.md §6 "Download URL normalization").
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !discord.KnownCDNHosts[u.Host] {
		return raw
	}
	u.RawQuery = ""
	return u.String()
}

