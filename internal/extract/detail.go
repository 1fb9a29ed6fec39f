package extract

import (
	"regexp"
	"strings"

	"github.com/qepting91/workshop-scraper/internal/domain"
	"github.com/qepting91/workshop-scraper/internal/textnorm"
)

// GalleryLimit caps the number of gallery images kept per item.
const GalleryLimit = 20

// A metric number may contain grouping separators and spaces but not line
// breaks; rendered tables put a pipe between number and label.
const metricNumber = `(\d[\d,. \x{00a0}\x{202f}]*)[\s|]*`

var (
	descriptionPattern = regexp.MustCompile(`(?is)Description\s+(.*?)\n\s*\d+\s+Comments`)
	tagLinkPattern     = regexp.MustCompile(`\[([^\]]+)\]\(https://steamcommunity\.com/workshop/browse/\?[^)]*requiredtags[^)]*\)`)
	visitorsPattern    = regexp.MustCompile(`(?i)` + metricNumber + `Unique Visitors`)
	subscribersPattern = regexp.MustCompile(`(?i)` + metricNumber + `Current Subscribers`)
	favoritesPattern   = regexp.MustCompile(`(?i)` + metricNumber + `Current Favorites`)
	ratingsPattern     = regexp.MustCompile(`(?i)` + metricNumber + `ratings\b`)
	labelledSize       = regexp.MustCompile(`(?i)File Size[\s|:]*(\d[\d.,]*\s*[KMG]B)\b`)
	anySize            = regexp.MustCompile(`(?i)\b(\d[\d.,]*\s*[KMG]B)\b`)
	postedPattern      = regexp.MustCompile(`(?i)Posted[\s|:]*([A-Za-z]{3}\s+\d{1,2}(?:,\s*\d{4})?(?:\s*@\s*\d{1,2}:\d{2}\s*[ap]m)?)`)
	detailPreview      = regexp.MustCompile(`\[!\[Image[^\]]*\]\((https?://images\.steamusercontent\.com/[^)]+)\)`)
	detailStar         = regexp.MustCompile(`https?://[^\s)"']*/(?:\d-star|not-yet)(?:_large)?\.png`)
	steamUGCImages     = regexp.MustCompile(`https?://images\.steamusercontent\.com/ugc/[\w/%?=&.-]+`)
	imgurImages        = regexp.MustCompile(`(?i)https?://i\.imgur\.com/[\w.-]+\.(?:png|jpe?g|gif|webp|apng)`)
)

// detailDraft is what a strategy pulls out of a page before the shared
// normalization step renders description text, markup and gallery.
type detailDraft struct {
	title               string
	descriptionMarkdown string
	tags                []string
	rating              int
	visitors            int
	subscribers         int
	favorites           int
	ratingsCount        int
	fileSize            string
	posted              string
	preview             string
	images              []string
}

func (d detailDraft) useful() bool {
	return strings.TrimSpace(d.descriptionMarkdown) != "" || len(d.tags) > 0 || d.subscribers > 0 || len(d.images) > 0
}

type detailStrategy struct {
	name string
	run  func(*Source) (detailDraft, bool)
}

var detailStrategies = []detailStrategy{
	{PathHTML, htmlDetail},
	{"text", textDetail},
}

// Detail extracts an item page at the requested fidelity. Lite results never
// carry markup or gallery images.
func Detail(text string, level domain.Fidelity) domain.DetailRecord {
	src := NewSource(text)
	var draft detailDraft
	for _, st := range detailStrategies {
		d, ok := st.run(src)
		if ok {
			draft = d
			break
		}
	}
	return finishDetail(src, draft, level)
}

func finishDetail(src *Source, d detailDraft, level domain.Fidelity) domain.DetailRecord {
	md := textnorm.CollapseMarkdownURLs(strings.TrimSpace(d.descriptionMarkdown))
	out := domain.DetailRecord{
		Title:        d.title,
		Description:  textnorm.MarkdownToPlain(md),
		Tags:         d.tags,
		Rating:       d.rating,
		Visitors:     d.visitors,
		Subscribers:  d.subscribers,
		Favorites:    d.favorites,
		RatingsCount: d.ratingsCount,
		FileSize:     strings.TrimSpace(d.fileSize),
		PostedDate:   strings.TrimSpace(d.posted),
		Preview:      textnorm.NormalizeImageURL(d.preview),
		Fidelity:     level,
	}
	if level < domain.FidelityFull {
		return out
	}
	out.DescriptionMarkup = textnorm.MarkdownToHTML(md)
	out.GalleryImages = textnorm.CollectImages(GalleryLimit,
		textnorm.MarkdownImages(md),
		d.images,
		steamUGCImages.FindAllString(src.Text, -1),
		imgurImages.FindAllString(src.Text, -1),
	)
	return out
}

// textDetail reads the markdown-like rendering with labelled patterns. It
// always succeeds; unmatched patterns leave fields empty.
func textDetail(src *Source) (detailDraft, bool) {
	text := src.Text
	d := detailDraft{
		descriptionMarkdown: firstGroup(descriptionPattern, text),
		visitors:            textnorm.ParseNumber(firstGroup(visitorsPattern, text)),
		subscribers:         textnorm.ParseNumber(firstGroup(subscribersPattern, text)),
		favorites:           textnorm.ParseNumber(firstGroup(favoritesPattern, text)),
		ratingsCount:        textnorm.ParseNumber(firstGroup(ratingsPattern, text)),
		posted:              firstGroup(postedPattern, text),
		preview:             firstGroup(detailPreview, text),
		rating:              textnorm.ParseStars(detailStar.FindString(text)),
	}
	if d.fileSize = firstGroup(labelledSize, text); d.fileSize == "" {
		d.fileSize = firstGroup(anySize, text)
	}

	seen := make(map[string]struct{})
	for _, m := range tagLinkPattern.FindAllStringSubmatch(text, -1) {
		d.tags = appendUnique(d.tags, seen, textnorm.NormalizeTitle(m[1]))
	}
	return d, true
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func appendUnique(list []string, seen map[string]struct{}, v string) []string {
	if v == "" {
		return list
	}
	if _, dup := seen[v]; dup {
		return list
	}
	seen[v] = struct{}{}
	return append(list, v)
}
