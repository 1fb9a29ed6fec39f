package textnorm

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	markdownURLPattern   = regexp.MustCompile(`(?s)\((https?://.*?)\)`)
	markdownImagePattern = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^\s)]+)\)`)
	markdownLinkPattern  = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\s)]+)\)`)
	markdownBoldPattern  = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	paragraphBreak       = regexp.MustCompile(`\n{2,}`)
	rawImageTagPattern   = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	rawImageSrcPattern   = regexp.MustCompile(`(?i)\bsrc\s*=\s*["']([^"']+)["']`)
	plainNoisePattern    = regexp.MustCompile("[*_`>#-]")
	allowedSrcPattern    = regexp.MustCompile(`(?i)^https://[^\s"'/]*(imgur\.com|steamusercontent\.com|steamstatic\.com)/`)
)

var (
	markupPolicy = newMarkupPolicy()
	stripPolicy  = bluemonday.StrictPolicy()
)

func newMarkupPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowRelativeURLs(false)
	p.AllowElements("p", "br", "strong", "b", "em", "i", "u", "ul", "ol", "li", "blockquote", "h1", "h2", "h3", "h4")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("src").Matching(allowedSrcPattern).OnElements("img")
	p.AllowAttrs("alt", "loading", "referrerpolicy").OnElements("img")
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// CollapseMarkdownURLs removes whitespace the renderer wrapped into link
// targets, e.g. "(https://host/pa\nth)".
func CollapseMarkdownURLs(md string) string {
	return markdownURLPattern.ReplaceAllStringFunc(md, func(m string) string {
		return whitespacePattern.ReplaceAllString(m, "")
	})
}

// MarkdownImages returns the targets of all markdown images in md.
func MarkdownImages(md string) []string {
	var out []string
	for _, m := range markdownImagePattern.FindAllStringSubmatch(CollapseMarkdownURLs(md), -1) {
		out = append(out, m[1])
	}
	return out
}

// MarkdownToPlain flattens markdown-like text: images vanish, links keep
// their text, tags and markdown punctuation are dropped.
func MarkdownToPlain(md string) string {
	s := CollapseMarkdownURLs(md)
	s = markdownImagePattern.ReplaceAllString(s, " ")
	s = markdownLinkPattern.ReplaceAllString(s, "$1")
	s = html.UnescapeString(stripPolicy.Sanitize(s))
	s = plainNoisePattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// MarkdownToHTML renders markdown-like text into sanitized markup. Images
// outside the allow-list and unsafe elements are dropped, never shown as
// escaped text.
func MarkdownToHTML(md string) string {
	s := CollapseMarkdownURLs(strings.TrimSpace(md))
	if s == "" {
		return ""
	}
	s = rawImageTagPattern.ReplaceAllStringFunc(s, func(tag string) string {
		m := rawImageSrcPattern.FindStringSubmatch(tag)
		if m == nil {
			return ""
		}
		return imageTag(m[1])
	})
	s = markdownImagePattern.ReplaceAllStringFunc(s, func(m string) string {
		return imageTag(markdownImagePattern.FindStringSubmatch(m)[1])
	})
	s = markdownLinkPattern.ReplaceAllString(s, `<a href="$2">$1</a>`)
	s = markdownBoldPattern.ReplaceAllString(s, "<strong>$1</strong>")
	s = paragraphBreak.ReplaceAllString(s, "</p><p>")
	s = "<p>" + s + "</p>"
	s = strings.ReplaceAll(s, "\n", "<br />")
	return strings.TrimSpace(markupPolicy.Sanitize(s))
}

func imageTag(raw string) string {
	u := NormalizeImageURL(raw)
	if !IsLikelyImageURL(u) {
		return ""
	}
	return `<img src="` + html.EscapeString(u) + `" alt="description image" loading="lazy" referrerpolicy="no-referrer" />`
}
