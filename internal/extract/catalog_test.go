package extract_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/workshop-scraper/internal/domain"
	"github.com/qepting91/workshop-scraper/internal/extract"
)

// richListingMarkdown mimics the text rendering of a listing page.
const richListingMarkdown = `Title: Steam Workshop::RimWorld

Showing 1-30 of 12,345 entries

[![Image 1: Better Pawns preview](https://images.steamusercontent.com/ugc/111/AAA/?imw=200)](https://steamcommunity.com/sharedfiles/filedetails/?id=1001&searchtext=)

![Image 2](https://community.fastly.steamstatic.com/public/images/sharedfiles/4-star.png?v=2)

[Better Pawns](https://steamcommunity.com/sharedfiles/filedetails/?id=1001&searchtext=)

by [Alice](https://steamcommunity.com/id/alice/myworkshopfiles/?appid=294100)

[![Image 3: preview](https://images.steamusercontent.com/ugc/222/BBB/)](https://steamcommunity.com/sharedfiles/filedetails/?id=1002)

![Image 4](https://community.fastly.steamstatic.com/public/images/sharedfiles/not-yet.png?v=2)

[[1.5] Faster Farming](https://steamcommunity.com/sharedfiles/filedetails/?id=1002)

by [Bob](https://steamcommunity.com/profiles/765/myworkshopfiles/)

[Popular: Orphan Mod](https://steamcommunity.com/sharedfiles/filedetails/?id=1003)
See also https://steamcommunity.com/sharedfiles/filedetails/?id=1004
`

// basicListingMarkdown has no preview links the rich pass recognizes.
const basicListingMarkdown = `[Better Pawns](https://steamcommunity.com/sharedfiles/filedetails/?id=2001)
[![Image 1: x](https://example.com/a.png)](https://steamcommunity.com/sharedfiles/filedetails/?id=2002)
[Second](https://steamcommunity.com/sharedfiles/filedetails/?id=2003)
[Better Pawns again](https://steamcommunity.com/sharedfiles/filedetails/?id=2001)
`

// listingHTML is a raw HTML listing with two item cards.
const listingHTML = `<!DOCTYPE html>
<html>
<head><title>Steam Workshop::RimWorld</title></head>
<body>
  <div class="workshopBrowsePagingInfo">Showing 1-2 of 1,234 entries</div>
  <div class="workshopItem">
    <a href="https://steamcommunity.com/sharedfiles/filedetails/?id=3001&amp;searchtext=" class="ugc" data-publishedfileid="3001">
      <div class="workshopItemPreviewHolder"><img class="workshopItemPreviewImage" src="http://images.steamusercontent.com/ugc/333/CCC/"></div>
    </a>
    <img class="fileRating" src="https://community.fastly.steamstatic.com/public/images/sharedfiles/5-star_large.png?v=2">
    <a href="https://steamcommunity.com/sharedfiles/filedetails/?id=3001" class="item_link"><div class="workshopItemTitle ellipsis">Sharper Textures</div></a>
    <div class="workshopItemAuthorName ellipsis">by&nbsp;<a class="workshop_author_link" href="https://steamcommunity.com/id/carol/myworkshopfiles/?appid=294100">Carol</a></div>
  </div>
  <div class="workshopItem">
    <a href="https://steamcommunity.com/sharedfiles/filedetails/?searchtext=&amp;id=3002" class="ugc">
      <div class="workshopItemPreviewHolder"><img class="workshopItemPreviewImage" src="https://images.steamusercontent.com/ugc/444/DDD/"></div>
    </a>
    <a href="https://steamcommunity.com/sharedfiles/filedetails/?id=3002" class="item_link"><div class="workshopItemTitle ellipsis">Quiet Nights</div></a>
  </div>
</body>
</html>`

var numericID = regexp.MustCompile(`^\d+$`)

func ids(records []domain.ItemRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func assertWellFormed(t *testing.T, records []domain.ItemRecord) {
	t.Helper()

	seen := make(map[string]bool)
	for _, r := range records {
		assert.Regexp(t, numericID, r.ID)
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}
}

func TestCatalog_RichMarkdown(t *testing.T) {
	t.Parallel()

	res := extract.Catalog(richListingMarkdown)

	assert.Equal(t, extract.PathRich, res.Path)
	require.Equal(t, []string{"1001", "1002", "1003", "1004"}, ids(res.Records))
	assertWellFormed(t, res.Records)
	assert.Equal(t, 1, res.Orphans)
	assert.Equal(t, 4, res.Count())
	assert.False(t, res.LowConfidence)

	first := res.Records[0]
	assert.Equal(t, "Better Pawns", first.Name)
	assert.Equal(t, "Alice", first.Author)
	assert.Equal(t, "https://steamcommunity.com/id/alice/myworkshopfiles/?appid=294100", first.AuthorURL)
	assert.Equal(t, "https://images.steamusercontent.com/ugc/111/AAA/?imw=200", first.Preview)
	assert.Equal(t, 4, first.Rating)
	assert.Equal(t, "https://steamcommunity.com/sharedfiles/filedetails/?id=1001", first.URL)
	assert.Zero(t, first.Subscribers)

	second := res.Records[1]
	assert.Equal(t, "[1.5] Faster Farming", second.Name)
	assert.Equal(t, "Bob", second.Author)
	assert.Equal(t, 0, second.Rating)

	assert.Equal(t, "Popular: Orphan Mod", res.Records[2].Name)
	assert.Equal(t, extract.PlaceholderAuthor, res.Records[2].Author)

	orphan := res.Records[3]
	assert.Equal(t, "Item #1004", orphan.Name)
	assert.Equal(t, extract.PlaceholderAuthor, orphan.Author)
	assert.Empty(t, orphan.Preview)
}

func TestCatalog_BasicFallback(t *testing.T) {
	t.Parallel()

	res := extract.Catalog(basicListingMarkdown)

	assert.Equal(t, extract.PathBasic, res.Path)
	require.Equal(t, []string{"2001", "2002", "2003"}, ids(res.Records))
	assertWellFormed(t, res.Records)
	assert.Equal(t, "Better Pawns", res.Records[0].Name)
	assert.Equal(t, "Item #2002", res.Records[1].Name, "image captions are not titles")
	assert.Equal(t, 1, res.Orphans)
}

func TestCatalog_HTMLCards(t *testing.T) {
	t.Parallel()

	res := extract.Catalog(listingHTML)

	assert.Equal(t, extract.PathHTML, res.Path)
	require.Equal(t, []string{"3001", "3002"}, ids(res.Records))
	assertWellFormed(t, res.Records)

	first := res.Records[0]
	assert.Equal(t, "Sharper Textures", first.Name)
	assert.Equal(t, "Carol", first.Author)
	assert.Equal(t, "https://steamcommunity.com/id/carol/myworkshopfiles/?appid=294100", first.AuthorURL)
	assert.Equal(t, "https://images.steamusercontent.com/ugc/333/CCC/", first.Preview)
	assert.Equal(t, 5, first.Rating)

	second := res.Records[1]
	assert.Equal(t, "Quiet Nights", second.Name)
	assert.Equal(t, extract.PlaceholderAuthor, second.Author)
	assert.Equal(t, 0, second.Rating)
	assert.Zero(t, res.Orphans)
}

func TestCatalog_HTMLWithoutCardsFallsBack(t *testing.T) {
	t.Parallel()

	page := `<html><body><p>[Lonely Mod](https://steamcommunity.com/sharedfiles/filedetails/?id=77)</p></body></html>`
	res := extract.Catalog(page)

	assert.Equal(t, extract.PathBasic, res.Path)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Lonely Mod", res.Records[0].Name)
}

func TestCatalog_NoLinks(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "nothing to see", "<html><body>empty</body></html>", "[x](https://example.com)"} {
		res := extract.Catalog(text)
		assert.Empty(t, res.Records, text)
		assert.Equal(t, extract.PathNone, res.Path)
		assert.False(t, res.LowConfidence)
	}
}

func TestCatalog_LowConfidence(t *testing.T) {
	t.Parallel()

	res := extract.Catalog("see sharedfiles/filedetails/ for items")
	assert.Empty(t, res.Records)
	assert.True(t, res.LowConfidence)
}

func TestCatalog_BareDetailURLsAreLowConfidence(t *testing.T) {
	t.Parallel()

	res := extract.Catalog("mods: https://steamcommunity.com/sharedfiles/filedetails/?id=111 and https://steamcommunity.com/sharedfiles/filedetails/?id=222")

	assert.Equal(t, extract.PathNone, res.Path)
	require.Equal(t, []string{"111", "222"}, ids(res.Records))
	assert.Equal(t, 2, res.Orphans)
	assert.True(t, res.LowConfidence)
	assert.Equal(t, "Item #111", res.Records[0].Name)
}

func TestItemIDs(t *testing.T) {
	t.Parallel()

	text := `a https://steamcommunity.com/sharedfiles/filedetails/?id=5 b
href="https://steamcommunity.com/sharedfiles/filedetails/?l=en&amp;id=6"
c https://steamcommunity.com/sharedfiles/filedetails/?id=5&x=1
d https://steamcommunity.com/sharedfiles/filedetails/?xid=7`
	assert.Equal(t, []string{"5", "6"}, extract.ItemIDs(text))
}

func TestTotal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 12345, extract.Total(richListingMarkdown))
	assert.Equal(t, 1234, extract.Total(listingHTML))
	assert.Equal(t, 0, extract.Total("no paging info"))
}

func TestSniff(t *testing.T) {
	t.Parallel()

	assert.Equal(t, extract.FormatHTML, extract.Sniff(listingHTML))
	assert.Equal(t, extract.FormatHTML, extract.Sniff("  <html lang=\"en\"><body></body></html>"))
	assert.Equal(t, extract.FormatMarkdown, extract.Sniff(richListingMarkdown))
}
