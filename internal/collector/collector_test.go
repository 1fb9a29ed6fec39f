package collector_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/qepting91/workshop-scraper/internal/collector"
	"github.com/qepting91/workshop-scraper/internal/config"
	"github.com/qepting91/workshop-scraper/internal/domain"
	"github.com/qepting91/workshop-scraper/internal/extract"
)

const resource = "https://steamcommunity.com/workshop/browse/?appid=294100&p=1"

// recorder captures outcomes and sleeps of one client.
type recorder struct {
	mu       sync.Mutex
	outcomes []domain.FetchOutcome
	sleeps   []time.Duration
}

func (r *recorder) observe(o domain.FetchOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
	return nil
}

// scriptedServer replies with statuses in order, then 200 with body.
func scriptedServer(t *testing.T, body string, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1))
		if n <= len(statuses) {
			w.WriteHeader(statuses[n-1])
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func proxyTo(name string, srv *httptest.Server) collector.Proxy {
	return collector.Proxy{
		Name: name,
		Wrap: func(u string) string { return srv.URL + "/?url=" + url.QueryEscape(u) },
	}
}

func newClient(rec *recorder, proxies ...collector.Proxy) *collector.PublicClient {
	return collector.NewPublicClient(collector.PublicOptions{
		Proxies:  proxies,
		Limiter:  rate.NewLimiter(rate.Inf, 1),
		Sleep:    rec.sleep,
		Observer: rec.observe,
	})
}

func TestFetch_RateLimitedThenSuccess(t *testing.T) {
	t.Parallel()

	srv, hits := scriptedServer(t, "page text", http.StatusTooManyRequests, http.StatusTooManyRequests)
	spare, spareHits := scriptedServer(t, "spare")
	rec := &recorder{}
	client := newClient(rec, proxyTo("first", srv), proxyTo("second", spare))

	body, err := client.Fetch(context.Background(), resource)
	require.NoError(t, err)
	assert.Equal(t, "page text", body)

	assert.Equal(t, int32(3), hits.Load())
	assert.Zero(t, spareHits.Load())
	require.Len(t, rec.outcomes, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{rec.outcomes[0].Attempt, rec.outcomes[1].Attempt, rec.outcomes[2].Attempt})
	assert.Equal(t, http.StatusTooManyRequests, rec.outcomes[0].Status)
	assert.False(t, rec.outcomes[0].OK)
	assert.True(t, rec.outcomes[2].OK)
	assert.Equal(t, "first", rec.outcomes[2].Proxy)

	require.Len(t, rec.sleeps, 2)
	assert.Equal(t, collector.BackoffUnit, rec.sleeps[0])
	assert.GreaterOrEqual(t, rec.sleeps[1], rec.sleeps[0])
}

func TestFetch_AllProxiesExhausted(t *testing.T) {
	t.Parallel()

	limited := []int{http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests}
	a, aHits := scriptedServer(t, "", limited...)
	b, bHits := scriptedServer(t, "", limited...)
	rec := &recorder{}
	client := newClient(rec, proxyTo("a", a), proxyTo("b", b))

	_, err := client.Fetch(context.Background(), resource)
	require.Error(t, err)

	assert.ErrorIs(t, err, domain.ErrAllProxiesExhausted)
	assert.True(t, collector.IsExhausted(err))

	var exhausted *collector.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 6, exhausted.Attempts)

	var last *collector.ProxyError
	require.ErrorAs(t, err, &last)
	assert.Equal(t, "b", last.Proxy)
	assert.Equal(t, http.StatusTooManyRequests, last.Status)

	assert.Equal(t, int32(3), aHits.Load())
	assert.Equal(t, int32(3), bHits.Load())
	assert.Len(t, rec.outcomes, 6)
	// No sleep after a proxy's final attempt.
	assert.Len(t, rec.sleeps, 4)
}

func TestFetch_OtherStatusMovesToNextProxy(t *testing.T) {
	t.Parallel()

	broken, brokenHits := scriptedServer(t, "", http.StatusBadGateway, http.StatusBadGateway)
	good, _ := scriptedServer(t, "from second")
	rec := &recorder{}
	client := newClient(rec, proxyTo("broken", broken), proxyTo("good", good))

	body, err := client.Fetch(context.Background(), resource)
	require.NoError(t, err)
	assert.Equal(t, "from second", body)
	assert.Equal(t, int32(1), brokenHits.Load())
	assert.Empty(t, rec.sleeps)
	require.Len(t, rec.outcomes, 2)
	assert.Equal(t, http.StatusBadGateway, rec.outcomes[0].Status)
	assert.Contains(t, rec.outcomes[0].Message, "HTTP 502")
}

func TestFetch_NetworkErrorMovesToNextProxy(t *testing.T) {
	t.Parallel()

	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	good, _ := scriptedServer(t, "ok")
	rec := &recorder{}
	client := newClient(rec, proxyTo("dead", dead), proxyTo("good", good))

	body, err := client.Fetch(context.Background(), resource)
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	require.Len(t, rec.outcomes, 2)
	assert.Zero(t, rec.outcomes[0].Status)
	assert.NotEmpty(t, rec.outcomes[0].Message)
}

func TestFetch_SendsWrappedURLAndUserAgent(t *testing.T) {
	t.Parallel()

	seen := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Clone(context.Background())
		_, _ = w.Write([]byte("x"))
	}))
	t.Cleanup(srv.Close)

	client := collector.NewPublicClient(collector.PublicOptions{
		Proxies:   []collector.Proxy{proxyTo("p", srv)},
		UserAgent: "test-agent",
		Limiter:   rate.NewLimiter(rate.Inf, 1),
		Observer:  func(domain.FetchOutcome) {},
	})
	_, err := client.Fetch(context.Background(), resource)
	require.NoError(t, err)
	req := <-seen
	assert.Equal(t, resource, req.URL.Query().Get("url"))
	assert.Equal(t, "test-agent", req.UserAgent())
}

func TestFetch_CanceledContext(t *testing.T) {
	t.Parallel()

	srv, hits := scriptedServer(t, "never")
	rec := &recorder{}
	client := newClient(rec, proxyTo("p", srv))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Fetch(ctx, resource)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, domain.ErrAllProxiesExhausted))
	assert.Zero(t, hits.Load())
}

func TestOrderProxies(t *testing.T) {
	t.Parallel()

	names := func(ps []collector.Proxy) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.Name)
		}
		return out
	}
	def := collector.DefaultProxies()

	assert.Equal(t, []string{"r.jina.ai", "api.allorigins.win"}, names(collector.OrderProxies(def, "auto")))
	assert.Equal(t, []string{"api.allorigins.win", "r.jina.ai"}, names(collector.OrderProxies(def, "allorigins")))
	assert.Equal(t, []string{"r.jina.ai", "api.allorigins.win"}, names(collector.OrderProxies(def, "unknown")))
	assert.Equal(t, []string{"r.jina.ai", "api.allorigins.win"}, names(collector.OrderProxies(nil, "")))

	for _, pref := range []string{"auto", "jina", "allorigins", "bogus", ""} {
		assert.ElementsMatch(t, names(def), names(collector.OrderProxies(def, pref)), pref)
	}
}

func TestProxyWrapping(t *testing.T) {
	t.Parallel()

	target := "https://steamcommunity.com/sharedfiles/filedetails/?id=42"
	assert.Equal(t, "https://r.jina.ai/http://steamcommunity.com/sharedfiles/filedetails/?id=42", collector.Jina().Wrap(target))
	wrapped := collector.AllOrigins().Wrap(target)
	require.True(t, strings.HasPrefix(wrapped, "https://api.allorigins.win/raw?url="))

	u, err := url.Parse(wrapped)
	require.NoError(t, err)
	assert.Equal(t, target, u.Query().Get("url"))
}

func TestMockClient_ServesExtractablePages(t *testing.T) {
	t.Parallel()

	mc := collector.NewMockClient()
	mc.Latency = 0
	mc.TotalItems = 40
	filters := domain.Filters{AppID: "294100", PerPage: 30}

	page1, err := mc.Fetch(context.Background(), filters.CatalogURL(1))
	require.NoError(t, err)
	res := extract.Catalog(page1)
	assert.Equal(t, extract.PathRich, res.Path)
	assert.Len(t, res.Records, 30)
	assert.Equal(t, 40, extract.Total(page1))

	page2, err := mc.Fetch(context.Background(), filters.CatalogURL(2))
	require.NoError(t, err)
	assert.Len(t, extract.Catalog(page2).Records, 10)

	page3, err := mc.Fetch(context.Background(), filters.CatalogURL(3))
	require.NoError(t, err)
	assert.Empty(t, extract.Catalog(page3).Records)

	id := res.Records[0].ID
	detail, err := mc.Fetch(context.Background(), domain.ItemURL(id))
	require.NoError(t, err)
	d := extract.Detail(detail, domain.FidelityFull)
	assert.Positive(t, d.Subscribers)
	assert.NotEmpty(t, d.Tags)
	assert.NotEmpty(t, d.GalleryImages)

	again, err := mc.Fetch(context.Background(), domain.ItemURL(id))
	require.NoError(t, err)
	assert.Equal(t, detail, again)
	assert.Equal(t, 5, mc.Calls())
}

func TestNewCollector(t *testing.T) {
	t.Parallel()

	c, err := collector.NewCollector(config.Config{CollectorMode: config.ModeMock}, nil)
	require.NoError(t, err)
	assert.IsType(t, &collector.MockClient{}, c)

	c, err = collector.NewCollector(config.Config{
		CollectorMode:   config.ModeLive,
		UserAgent:       "ua",
		ProxyPreference: "allorigins",
		HTTPTimeout:     time.Second,
		RequestBurst:    1,
	}, nil)
	require.NoError(t, err)
	live, ok := c.(*collector.PublicClient)
	require.True(t, ok)
	assert.Equal(t, "api.allorigins.win", live.Proxies()[0].Name)

	_, err = collector.NewCollector(config.Config{CollectorMode: config.ModeLive}, nil)
	assert.Error(t, err)
	_, err = collector.NewCollector(config.Config{CollectorMode: "api"}, nil)
	assert.Error(t, err)
}
