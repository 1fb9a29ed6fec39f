package collector

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/qepting91/workshop-scraper/internal/domain"
)

var mockTags = []string{"Mod", "Textures", "Translation", "Scenario", "1.5", "1.4"}

// MockClient implements domain.Collector with synthetic markdown renderings
// of listing and item pages, so the pipeline runs offline.
type MockClient struct {
	// Latency simulates network time per fetch.
	Latency time.Duration
	// TotalItems is the size of the fake catalog.
	TotalItems int

	calls atomic.Int64
}

func NewMockClient() *MockClient {
	return &MockClient{Latency: 200 * time.Millisecond, TotalItems: 95}
}

// Calls returns how many fetches were served.
func (mc *MockClient) Calls() int {
	return int(mc.calls.Load())
}

func (mc *MockClient) Fetch(ctx context.Context, resourceURL string) (string, error) {
	mc.calls.Add(1)
	if mc.Latency > 0 {
		if err := sleepContext(ctx, mc.Latency); err != nil {
			return "", err
		}
	}

	u, err := url.Parse(resourceURL)
	if err != nil {
		return "", fmt.Errorf("mock: parse url: %w", err)
	}
	q := u.Query()
	switch {
	case strings.HasPrefix(resourceURL, domain.CatalogBaseURL):
		return mc.listing(q), nil
	case strings.HasPrefix(resourceURL, domain.ItemBaseURL):
		return mc.item(q.Get("id")), nil
	default:
		return "", &ProxyError{Proxy: "mock", Status: 404, Err: fmt.Errorf("unknown resource %s", resourceURL)}
	}
}

func (mc *MockClient) listing(q url.Values) string {
	page, _ := strconv.Atoi(q.Get("p"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("numperpage"))
	if perPage <= 0 {
		perPage = domain.DefaultPerPage
	}
	total := mc.TotalItems
	first := (page-1)*perPage + 1
	last := min(first+perPage-1, total)

	var b strings.Builder
	b.WriteString("Title: Steam Workshop::Mock Catalog\n\n")
	if first > total {
		b.WriteString("No items matching your search criteria were found.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Showing %d-%d of %s entries\n\n", first, last, groupThousands(total))

	search := strings.TrimSpace(q.Get("searchtext"))
	for n := first; n <= last; n++ {
		id := mockID(n)
		r := mockRand(id)
		title := fmt.Sprintf("Simulated Mod #%d", n)
		if search != "" {
			title = fmt.Sprintf("%s Pack #%d", search, n)
		}
		fmt.Fprintf(&b, "[![Image %d: preview](https://images.steamusercontent.com/ugc/%s/PREVIEW/)](%s&searchtext=)\n\n", n, id, domain.ItemURL(id))
		fmt.Fprintf(&b, "![Image](https://community.fastly.steamstatic.com/public/images/sharedfiles/%s)\n\n", starIcon(r.IntN(6)))
		fmt.Fprintf(&b, "[%s](%s&searchtext=)\n\n", title, domain.ItemURL(id))
		fmt.Fprintf(&b, "by [simulated_user_%d](https://steamcommunity.com/id/simulated_user_%d/myworkshopfiles/)\n\n", n%7, n%7)
	}
	return b.String()
}

func (mc *MockClient) item(id string) string {
	r := mockRand(id)
	var b strings.Builder
	fmt.Fprintf(&b, "Title: Steam Workshop::Simulated Mod %s\n\n", id)
	fmt.Fprintf(&b, "[![Image 1](https://images.steamusercontent.com/ugc/%s/PREVIEW/)](%s)\n\n", id, domain.ItemURL(id))
	fmt.Fprintf(&b, "| %s | Unique Visitors |\n", groupThousands(1000+r.IntN(90000)))
	fmt.Fprintf(&b, "| %s | Current Subscribers |\n", groupThousands(100+r.IntN(50000)))
	fmt.Fprintf(&b, "| %s | Current Favorites |\n\n", groupThousands(r.IntN(5000)))
	fmt.Fprintf(&b, "%d ratings\n\n", r.IntN(3000))
	b.WriteString("Tags: ")
	for i := 0; i < 2; i++ {
		tag := mockTags[r.IntN(len(mockTags))]
		fmt.Fprintf(&b, "[%s](https://steamcommunity.com/workshop/browse/?appid=294100&requiredtags[]=%s) ", tag, url.QueryEscape(tag))
	}
	fmt.Fprintf(&b, "\n\nFile Size | %d.%d MB\nPosted | Jan %d, 2024 @ 1:%02dpm\n\n", 1+r.IntN(200), r.IntN(10), 1+r.IntN(28), r.IntN(60))
	fmt.Fprintf(&b, "Description\n**Simulated Mod %s** adds generated content for load testing.\n\n", id)
	fmt.Fprintf(&b, "![Screenshot](https://i.imgur.com/mock%s.png)\n\n", id)
	fmt.Fprintf(&b, "%d Comments\n", r.IntN(200))
	return b.String()
}

func mockID(n int) string {
	return strconv.Itoa(3000000000 + n)
}

// mockRand is seeded by the id so repeated fetches describe the same item.
func mockRand(id string) *rand.Rand {
	seed, _ := strconv.ParseUint(id, 10, 64)
	return rand.New(rand.NewPCG(seed, 0x5eed))
}

func starIcon(n int) string {
	if n == 0 {
		return "not-yet.png?v=2"
	}
	return fmt.Sprintf("%d-star.png?v=2", n)
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}
