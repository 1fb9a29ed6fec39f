package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/qepting91/workshop-scraper/internal/domain"
	"github.com/qepting91/workshop-scraper/internal/textnorm"
)

// htmlCatalog reads the repeated item cards of a raw HTML listing.
func htmlCatalog(src *Source) []domain.ItemRecord {
	doc := src.Document()
	if doc == nil {
		return nil
	}

	var items []domain.ItemRecord
	seen := make(map[string]struct{})
	doc.Find(".workshopItem").Each(func(_ int, card *goquery.Selection) {
		id := cardItemID(card)
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		author := card.Find(".workshopItemAuthorName a").First()
		preview, _ := card.Find("img.workshopItemPreviewImage").First().Attr("src")
		rating, _ := card.Find("img.fileRating").First().Attr("src")

		items = append(items, domain.ItemRecord{
			ID:        id,
			Name:      textnorm.NormalizeTitle(card.Find(".workshopItemTitle").First().Text()),
			URL:       domain.ItemURL(id),
			Author:    textnorm.NormalizeTitle(author.Text()),
			AuthorURL: strings.TrimSpace(author.AttrOr("href", "")),
			Preview:   textnorm.NormalizeImageURL(preview),
			Rating:    textnorm.ParseStars(rating),
		})
	})
	return items
}

// cardItemID prefers the explicit published-file attribute and falls back
// to the id query parameter of the card's detail link.
func cardItemID(card *goquery.Selection) string {
	if id, ok := card.Find("[data-publishedfileid]").First().Attr("data-publishedfileid"); ok {
		if id = strings.TrimSpace(id); numericIDPattern.MatchString(id) {
			return id
		}
	}
	href, ok := card.Find("a[href*='filedetails']").First().Attr("href")
	if !ok {
		return ""
	}
	id, _ := domain.ParseItemID(href)
	return id
}
