package discord

import "strings"

// KnownCDNHosts lists the hostnames known to issue signed, query-stringed
// attachment/avatar/emoji URLs whose signature changes without the
// underlying content changing. internal/filestore.NormalizeURL strips the
// query string for these hosts before using a URL as a dedup key.
var KnownCDNHosts = map[string]bool{
	"cdn.discordapp.com":   true,
	"media.discordapp.net": true,
}

// IsCDNURL reports whether rawURL's host is a known CDN host.
func IsCDNURL(rawURL string) bool {
	for host := range KnownCDNHosts {
		if strings.Contains(rawURL, "://"+host+"/") {
			return true
		}
	}
	return false
}
