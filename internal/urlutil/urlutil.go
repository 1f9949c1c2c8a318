// Package urlutil normalizes free-form website strings into comparable
// absolute URLs and derives registrable domains for dedup.
package urlutil

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Normalize turns a raw website string into an absolute http(s) URL.
// It returns "" for anything unusable: empty input, mailto links, bare
// email addresses, non-http schemes, hostless URLs, and URLs carrying
// embedded credentials.
func Normalize(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(u), "mailto:") {
		return ""
	}
	if strings.Contains(u, "@") && !strings.Contains(u, "://") {
		if emailRe.MatchString(u) {
			return ""
		}
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	if parsed.Scheme == "" {
		u = "https://" + strings.Trim(u, "/")
		parsed, err = url.Parse(u)
		if err != nil {
			return ""
		}
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	if parsed.Host == "" {
		return ""
	}
	if parsed.User != nil || strings.Contains(parsed.Host, "@") {
		return ""
	}
	return u
}

// RegistrableDomain returns the eTLD+1 for a URL ("ace-plumbing.co" for
// "https://www.ace-plumbing.co/about"). Returns "" when no registrable
// domain can be derived.
func RegistrableDomain(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := parsed.Hostname()
	if host == "" {
		// Bare host strings like "example.com" parse with an empty Host.
		host = strings.ToLower(strings.TrimSpace(rawURL))
		if strings.ContainsAny(host, "/: ") {
			return ""
		}
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))

	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return etld1
}

// Origin returns "scheme://host" for a normalized URL, used as the cache
// key for per-site policy documents.
func Origin(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
