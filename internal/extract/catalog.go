package extract

import (
	"regexp"
	"strings"

	"github.com/qepting91/workshop-scraper/internal/domain"
	"github.com/qepting91/workshop-scraper/internal/textnorm"
)

// Extraction paths reported in CatalogResult.Path.
const (
	PathHTML  = "html"
	PathRich  = "rich"
	PathBasic = "basic"
	PathNone  = "none"
)

const (
	// snippetWindow bounds how far past a preview link the rich pass looks
	// for the title, author and rating of the same card.
	snippetWindow = 2200

	PlaceholderAuthor = "Unknown author"
)

var (
	richPreviewPattern = regexp.MustCompile(`\[!\[Image[^\]]*\]\((https?://images\.steamusercontent\.com/[^)]+)\)\]\(https?://steamcommunity\.com/sharedfiles/filedetails/\?id=(\d+)[^)]*\)`)
	detailLinkPattern  = regexp.MustCompile(`\[((?:[^\[\]]|\[[^\[\]]*\])*)\]\(https?://steamcommunity\.com/sharedfiles/filedetails/\?id=(\d+)[^)]*\)`)
	authorLinkPattern  = regexp.MustCompile(`\bby\s*\[([^\]]+)\]\((https?://steamcommunity\.com/[^)\s]+)\)`)
	starURLPattern     = regexp.MustCompile(`https?://[^\s)]*/(?:\d-star|not-yet)(?:_large)?\.png[^\s)]*`)
	anyItemIDPattern   = regexp.MustCompile(`sharedfiles/filedetails/?\?(?:[\w=%.+-]*&(?:amp;)?)*id=(\d+)`)
	numericIDPattern   = regexp.MustCompile(`^\d+$`)
)

// CatalogResult is the outcome of one listing extraction.
type CatalogResult struct {
	Records []domain.ItemRecord
	// Path names the strategy that produced the records.
	Path string
	// Orphans counts ids referenced by detail links that no strategy could
	// describe; they are included as bare stubs.
	Orphans int
	// LowConfidence is set when no strategy described anything although the
	// page mentions item detail pages. Bare orphan stubs may still be present.
	LowConfidence bool
}

// Count is the number of extracted records.
func (r CatalogResult) Count() int { return len(r.Records) }

type catalogStrategy struct {
	name string
	run  func(*Source) []domain.ItemRecord
}

var catalogStrategies = []catalogStrategy{
	{PathHTML, htmlCatalog},
	{PathRich, richCatalog},
	{PathBasic, basicCatalog},
}

// Catalog extracts item stubs from a listing page. Records are unique by id
// and ordered by the first occurrence of their detail link in the page.
func Catalog(text string) CatalogResult {
	src := NewSource(text)
	res := CatalogResult{Path: PathNone}

	var found []domain.ItemRecord
	for _, st := range catalogStrategies {
		if found = st.run(src); len(found) > 0 {
			res.Path = st.name
			break
		}
	}

	res.Records, res.Orphans = withOrphans(text, found)
	for i := range res.Records {
		res.Records[i] = withPlaceholders(res.Records[i])
	}
	res.LowConfidence = len(found) == 0 && (len(res.Records) > 0 || strings.Contains(text, "filedetails"))
	return res
}

// richCatalog pairs each preview image link with the card text that follows
// it. When it finds anything, the basic pass fills the fields it missed.
func richCatalog(src *Source) []domain.ItemRecord {
	text := src.Text
	var items []domain.ItemRecord
	seen := make(map[string]int)

	for _, loc := range richPreviewPattern.FindAllStringSubmatchIndex(text, -1) {
		preview := textnorm.NormalizeImageURL(text[loc[2]:loc[3]])
		id := text[loc[4]:loc[5]]
		if _, dup := seen[id]; dup {
			continue
		}
		end := loc[0] + snippetWindow
		if end > len(text) {
			end = len(text)
		}
		snippet := text[loc[0]:end]
		author, authorURL := authorFromSnippet(snippet)

		seen[id] = len(items)
		items = append(items, domain.ItemRecord{
			ID:        id,
			Name:      titleFromSnippet(snippet, id),
			URL:       domain.ItemURL(id),
			Author:    author,
			AuthorURL: authorURL,
			Preview:   preview,
			Rating:    textnorm.ParseStars(starURLPattern.FindString(snippet)),
		})
	}
	if len(items) == 0 {
		return nil
	}

	for _, b := range basicCatalog(src) {
		if i, ok := seen[b.ID]; ok {
			items[i] = items[i].FillFrom(b)
			continue
		}
		seen[b.ID] = len(items)
		items = append(items, b)
	}
	return items
}

// basicCatalog only pairs bracketed link text with the detail id.
func basicCatalog(src *Source) []domain.ItemRecord {
	var items []domain.ItemRecord
	seen := make(map[string]struct{})
	for _, m := range detailLinkPattern.FindAllStringSubmatch(src.Text, -1) {
		if textnorm.IsImageCaption(m[1]) {
			continue
		}
		id := m[2]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		items = append(items, domain.ItemRecord{
			ID:   id,
			Name: textnorm.NormalizeTitle(m[1]),
			URL:  domain.ItemURL(id),
		})
	}
	return items
}

// titleFromSnippet returns the first usable link text pointing at id.
func titleFromSnippet(snippet, id string) string {
	for _, m := range detailLinkPattern.FindAllStringSubmatch(snippet, -1) {
		if m[2] != id {
			continue
		}
		title := textnorm.NormalizeTitle(m[1])
		if title == "" || textnorm.IsImageCaption(title) || strings.Contains(title, "images.steamusercontent.com") {
			continue
		}
		return title
	}
	return ""
}

func authorFromSnippet(snippet string) (string, string) {
	m := authorLinkPattern.FindStringSubmatch(snippet)
	if m == nil {
		return "", ""
	}
	return textnorm.NormalizeTitle(m[1]), m[2]
}

// ItemIDs lists every distinct id referenced by a detail-page link in
// first-seen order.
func ItemIDs(text string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, m := range anyItemIDPattern.FindAllStringSubmatch(text, -1) {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	}
	return ids
}

// withOrphans orders found records by first occurrence in text and adds a
// stub for every referenced id no strategy captured.
func withOrphans(text string, found []domain.ItemRecord) ([]domain.ItemRecord, int) {
	byID := make(map[string]domain.ItemRecord, len(found))
	for _, r := range found {
		if !numericIDPattern.MatchString(r.ID) {
			continue
		}
		if _, dup := byID[r.ID]; !dup {
			byID[r.ID] = r
		}
	}

	out := make([]domain.ItemRecord, 0, len(byID))
	emitted := make(map[string]struct{}, len(byID))
	orphans := 0
	for _, id := range ItemIDs(text) {
		r, ok := byID[id]
		if !ok {
			r = domain.ItemRecord{ID: id, URL: domain.ItemURL(id)}
			orphans++
		}
		out = append(out, r)
		emitted[id] = struct{}{}
	}
	for _, r := range found {
		if _, done := emitted[r.ID]; done {
			continue
		}
		if _, ok := byID[r.ID]; !ok {
			continue
		}
		out = append(out, byID[r.ID])
		emitted[r.ID] = struct{}{}
	}
	return out, orphans
}

func withPlaceholders(r domain.ItemRecord) domain.ItemRecord {
	if r.Name == "" {
		r.Name = "Item #" + r.ID
	}
	if r.Author == "" {
		r.Author = PlaceholderAuthor
	}
	if r.URL == "" {
		r.URL = domain.ItemURL(r.ID)
	}
	return r
}
