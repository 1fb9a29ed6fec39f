package extract

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/PuerkitoBio/goquery"

	"github.com/qepting91/workshop-scraper/internal/textnorm"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

// htmlDetail reads the structural item page. It only claims the page when
// it finds a description, tags, a subscriber count or gallery images.
func htmlDetail(src *Source) (detailDraft, bool) {
	doc := src.Document()
	if doc == nil {
		return detailDraft{}, false
	}

	d := detailDraft{
		title:               textnorm.NormalizeTitle(doc.Find(".workshopItemTitle").First().Text()),
		descriptionMarkdown: descriptionMarkdown(doc),
		ratingsCount:        textnorm.ParseNumber(doc.Find(".numRatings").First().Text()),
	}

	if icon, ok := doc.Find("img.fileRatingDetails, #detailsHeaderRight img").First().Attr("src"); ok {
		d.rating = textnorm.ParseStars(icon)
	}
	d.preview = doc.Find("#previewImageMain, #previewImage").First().AttrOr("src", "")

	seen := make(map[string]struct{})
	doc.Find(".workshopTags a, a[href*='requiredtags']").Each(func(_ int, a *goquery.Selection) {
		d.tags = appendUnique(d.tags, seen, textnorm.NormalizeTitle(a.Text()))
	})

	doc.Find("table.stats_table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		n := textnorm.ParseNumber(cells.Eq(0).Text())
		switch label := strings.ToLower(cells.Eq(1).Text()); {
		case strings.Contains(label, "unique visitors"):
			d.visitors = n
		case strings.Contains(label, "current subscribers"):
			d.subscribers = n
		case strings.Contains(label, "current favorites"):
			d.favorites = n
		}
	})

	labels := doc.Find(".detailsStatsContainerLeft .detailsStatLeft")
	values := doc.Find(".detailsStatsContainerRight .detailsStatRight")
	labels.Each(func(i int, l *goquery.Selection) {
		if i >= values.Length() {
			return
		}
		value := strings.TrimSpace(values.Eq(i).Text())
		switch label := strings.ToLower(l.Text()); {
		case strings.Contains(label, "size"):
			d.fileSize = value
		case strings.Contains(label, "posted"):
			d.posted = value
		}
	})

	doc.Find(".highlight_strip_screenshot img, .highlight_screenshot img, #previewImageMain").Each(func(_ int, img *goquery.Selection) {
		if u, ok := img.Attr("src"); ok {
			d.images = append(d.images, u)
		}
	})

	return d, d.useful()
}

// descriptionMarkdown converts the description block to markdown so both
// formats share one description pipeline.
func descriptionMarkdown(doc *goquery.Document) string {
	block := doc.Find("#highlightContent, .workshopItemDescription").First()
	if block.Length() == 0 {
		return ""
	}
	raw, err := block.Html()
	if err != nil {
		return strings.TrimSpace(block.Text())
	}
	md, err := mdConverter.ConvertString(raw)
	if err != nil || strings.TrimSpace(md) == "" {
		return strings.TrimSpace(block.Text())
	}
	return strings.TrimSpace(md)
}
