package domain

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	CatalogBaseURL = "https://steamcommunity.com/workshop/browse/"
	ItemBaseURL    = "https://steamcommunity.com/sharedfiles/filedetails/"

	// SortTextSearch is forced whenever a search text is present.
	SortTextSearch = "textsearch"
	DefaultPerPage = 30
)

var itemIDRegex = regexp.MustCompile(`[?&]id=(\d+)`)

// Filters is the upstream query a listing is built from.
type Filters struct {
	AppID        string `json:"appid"`
	Sort         string `json:"sort"`
	SearchText   string `json:"search_text,omitempty"`
	RequiredTags string `json:"required_tags,omitempty"`
	Days         string `json:"days,omitempty"`
	PerPage      int    `json:"per_page"`
}

// ContextKey fingerprints the filters. Two filter sets that would produce
// different listings never share a key.
func (f Filters) ContextKey() string {
	return strings.Join([]string{
		strings.TrimSpace(f.AppID),
		strings.ToLower(strings.TrimSpace(f.effectiveSort())),
		strings.ToLower(strings.TrimSpace(f.SearchText)),
		strings.ToLower(strings.TrimSpace(f.RequiredTags)),
		strings.TrimSpace(f.Days),
		strconv.Itoa(f.perPage()),
	}, "|")
}

// CatalogURL builds the canonical listing URL for a 1-based page.
func (f Filters) CatalogURL(page int) string {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("appid", strings.TrimSpace(f.AppID))
	params.Set("browsesort", f.effectiveSort())
	params.Set("section", "readytouseitems")
	if q := strings.TrimSpace(f.SearchText); q != "" {
		params.Set("searchtext", q)
	}
	if tags := strings.TrimSpace(f.RequiredTags); tags != "" {
		params.Set("requiredtags", tags)
	}
	if days := strings.TrimSpace(f.Days); days != "" {
		params.Set("days", days)
	}
	params.Set("numperpage", strconv.Itoa(f.perPage()))
	params.Set("p", strconv.Itoa(page))
	return CatalogBaseURL + "?" + params.Encode()
}

func (f Filters) effectiveSort() string {
	if strings.TrimSpace(f.SearchText) != "" {
		return SortTextSearch
	}
	if f.Sort == "" {
		return "trend"
	}
	return f.Sort
}

func (f Filters) perPage() int {
	if f.PerPage <= 0 {
		return DefaultPerPage
	}
	return f.PerPage
}

// ItemURL returns the canonical detail page URL for an item id.
func ItemURL(id string) string {
	return ItemBaseURL + "?id=" + url.QueryEscape(id)
}

// ParseItemID pulls the numeric id query parameter out of any URL-ish string.
func ParseItemID(raw string) (string, bool) {
	m := itemIDRegex.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}
