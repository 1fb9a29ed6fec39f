package collector

import (
	"net/url"
	"strings"
)

// Proxy wraps a canonical upstream URL behind an external rendering service.
type Proxy struct {
	Name string
	Wrap func(resourceURL string) string
}

// Jina returns the direct-render proxy. It expects the upstream URL with a
// plain http scheme appended to its own path.
func Jina() Proxy {
	return Proxy{
		Name: "r.jina.ai",
		Wrap: func(resourceURL string) string {
			rest := strings.TrimPrefix(strings.TrimPrefix(resourceURL, "https://"), "http://")
			return "https://r.jina.ai/http://" + rest
		},
	}
}

// AllOrigins returns the generic CORS-unblocking proxy.
func AllOrigins() Proxy {
	return Proxy{
		Name: "api.allorigins.win",
		Wrap: func(resourceURL string) string {
			return "https://api.allorigins.win/raw?url=" + url.QueryEscape(resourceURL)
		},
	}
}

// DefaultProxies is the order used when no preference is configured.
func DefaultProxies() []Proxy {
	return []Proxy{Jina(), AllOrigins()}
}

var preferenceNames = map[string]string{
	"jina":       "r.jina.ai",
	"allorigins": "api.allorigins.win",
}

// ValidPreference reports whether pref is a known proxy preference.
func ValidPreference(pref string) bool {
	pref = strings.ToLower(strings.TrimSpace(pref))
	if pref == "" || pref == "auto" {
		return true
	}
	_, ok := preferenceNames[pref]
	return ok
}

// OrderProxies moves the proxies matching pref to the front. Nothing is ever
// dropped: "auto", an empty or an unknown preference keep the given order,
// and an empty list falls back to DefaultProxies.
func OrderProxies(proxies []Proxy, pref string) []Proxy {
	if len(proxies) == 0 {
		proxies = DefaultProxies()
	}
	out := make([]Proxy, 0, len(proxies))
	name, ok := preferenceNames[strings.ToLower(strings.TrimSpace(pref))]
	if !ok {
		return append(out, proxies...)
	}
	var rest []Proxy
	for _, p := range proxies {
		if p.Name == name {
			out = append(out, p)
		} else {
			rest = append(rest, p)
		}
	}
	return append(out, rest...)
}
