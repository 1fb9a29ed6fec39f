package extract

import (
	"regexp"

	"github.com/qepting91/workshop-scraper/internal/textnorm"
)

var totalPattern = regexp.MustCompile(`(?i)Showing\s+\d[\d,.]*\s*-\s*\d[\d,.]*\s+of\s+(\d[\d,.\s\x{00a0}]*?)\s+entries`)

// Total parses the upstream's "Showing X-Y of N entries" line. It returns 0
// when the line is missing, which callers treat as "not reported".
func Total(text string) int {
	m := totalPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	return textnorm.ParseNumber(m[1])
}
