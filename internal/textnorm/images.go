package textnorm

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	plainHTTPPattern  = regexp.MustCompile(`(?i)^http://`)
	imageExtPattern   = regexp.MustCompile(`\.(png|jpe?g|gif|webp|apng|bmp)$`)
)

var allowedImageHosts = []string{"imgur.com", "steamusercontent.com", "steamstatic.com"}

// NormalizeImageURL removes embedded whitespace and upgrades http to https.
func NormalizeImageURL(raw string) string {
	return plainHTTPPattern.ReplaceAllString(whitespacePattern.ReplaceAllString(raw, ""), "https://")
}

// IsLikelyImageURL applies the image allow-list: a known image host plus an
// image extension or a user-generated-content path.
func IsLikelyImageURL(raw string) bool {
	u, err := url.Parse(NormalizeImageURL(raw))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	allowed := false
	for _, h := range allowedImageHosts {
		if strings.Contains(host, h) {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	path := strings.ToLower(u.Path)
	return imageExtPattern.MatchString(path) || strings.Contains(path, "/ugc/")
}

// CollectImages normalizes, filters and de-duplicates candidate image URLs,
// keeping first-seen order and at most limit entries.
func CollectImages(limit int, candidates ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, group := range candidates {
		for _, raw := range group {
			u := NormalizeImageURL(raw)
			if !IsLikelyImageURL(u) {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}
