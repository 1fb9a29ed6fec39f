// Package textnorm holds the small pure helpers shared by the extractors:
// title cleanup, number parsing, image URL validation and markdown
// conversion.
package textnorm

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	embeddedImagePattern = regexp.MustCompile(`(?i)!\[Image[^\]]*\]\([^)]*\)`)
	danglingImagePattern = regexp.MustCompile(`(?i)^Image\s+\d+\]\([^)]*\)\.?`)
	imageCaptionPattern  = regexp.MustCompile(`(?i)^image\s+\d+$`)
	starIconPattern      = regexp.MustCompile(`/(\d)-star(?:_large)?\.png|not-yet(?:_large)?\.png`)
	nonDigitPattern      = regexp.MustCompile(`\D`)
)

// NormalizeTitle strips image markup remnants and bracket artifacts from a
// title or author name and collapses whitespace.
func NormalizeTitle(s string) string {
	s = embeddedImagePattern.ReplaceAllString(s, " ")
	s = danglingImagePattern.ReplaceAllString(s, " ")
	return trimBracketArtifacts(strings.Join(strings.Fields(s), " "))
}

// trimBracketArtifacts drops unbalanced leading/trailing brackets and fully
// wrapping bracket pairs, keeping balanced ones such as "[1.5] Title".
func trimBracketArtifacts(s string) string {
	for {
		switch {
		case strings.HasPrefix(s, "[") && strings.Count(s, "[") > strings.Count(s, "]"):
			s = strings.TrimSpace(s[1:])
		case strings.HasSuffix(s, "]") && strings.Count(s, "]") > strings.Count(s, "["):
			s = strings.TrimSpace(s[:len(s)-1])
		case len(s) >= 2 && s[0] == '[' && closingBracket(s) == len(s)-1:
			s = strings.TrimSpace(s[1 : len(s)-1])
		default:
			return s
		}
	}
}

// closingBracket returns the index of the bracket closing s[0], or -1.
func closingBracket(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// IsImageCaption reports whether text is a renderer placeholder such as
// "Image 3" rather than a real title.
func IsImageCaption(s string) bool {
	s = strings.TrimSpace(s)
	return imageCaptionPattern.MatchString(s) || strings.HasPrefix(s, "![Image")
}

// ParseNumber keeps only the digits of s. Grouping separators and spaces are
// noise; input without digits parses to 0.
func ParseNumber(s string) int {
	digits := nonDigitPattern.ReplaceAllString(s, "")
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// ParseStars maps a star rating icon URL to 0..5. The not-yet-rated icon and
// unknown URLs map to 0.
func ParseStars(iconURL string) int {
	m := starIconPattern.FindStringSubmatch(iconURL)
	if m == nil || m[1] == "" {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	if n > 5 {
		return 5
	}
	return n
}
