package enrich_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/workshop-scraper/internal/domain"
	"github.com/qepting91/workshop-scraper/internal/enrich"
	"github.com/qepting91/workshop-scraper/internal/session"
)

// fakeSource returns canned details and fails for ids in fail.
type fakeSource struct {
	mu     sync.Mutex
	fail   map[string]bool
	calls  []string
	before func(id string)
}

func (f *fakeSource) Get(_ context.Context, id string, level domain.Fidelity) (domain.DetailRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if f.before != nil {
		f.before(id)
	}
	if f.fail[id] {
		return domain.DetailRecord{}, errors.New("proxy down")
	}
	return domain.DetailRecord{Subscribers: 100, Tags: []string{"Mod"}, Fidelity: level}, nil
}

func stubs(ids ...string) []domain.ItemRecord {
	out := make([]domain.ItemRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.ItemRecord{ID: id, Name: "Item " + id})
	}
	return out
}

func TestRun_ProgressAndFailures(t *testing.T) {
	t.Parallel()

	ws := session.NewWorkingSet(stubs("1", "2", "3", "4", "5")...)
	src := &fakeSource{fail: map[string]bool{"3": true}}

	var (
		mu       sync.Mutex
		progress []enrich.Progress
	)
	res := enrich.Run(context.Background(), ws, src, enrich.Options{
		Fidelity: domain.FidelityLite,
		OnProgress: func(p enrich.Progress) {
			mu.Lock()
			defer mu.Unlock()
			progress = append(progress, p)
		},
	})

	assert.Equal(t, enrich.Result{Total: 5, Enriched: 4, Failed: 1}, res)
	require.Len(t, progress, 5)
	for i, p := range progress {
		assert.Equal(t, i+1, p.Done)
		assert.Equal(t, 5, p.Total)
	}
	assert.Equal(t, 1, progress[4].Failed)

	failed, _ := ws.Get("3")
	assert.Zero(t, failed.Subscribers)
	ok, _ := ws.Get("1")
	assert.Equal(t, 100, ok.Subscribers)
	assert.Len(t, src.calls, 5, "no retries within a pass")
}

func TestRun_LimitAndCandidates(t *testing.T) {
	t.Parallel()

	records := stubs("1", "2", "3", "4")
	records[0].Subscribers = 10
	ws := session.NewWorkingSet(records...)
	src := &fakeSource{}

	res := enrich.Run(context.Background(), ws, src, enrich.Options{Limit: 2, Fidelity: domain.FidelityLite, Concurrency: 1})

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []string{"2", "3"}, src.calls)
	untouched, _ := ws.Get("4")
	assert.Zero(t, untouched.Subscribers)
}

func TestRun_FullCandidatesIncludeLiteRecords(t *testing.T) {
	t.Parallel()

	records := stubs("1", "2")
	records[0].Subscribers = 10
	records[1].GalleryImages = []string{"https://i.imgur.com/a.png"}

	got := enrich.Candidates(records, domain.FidelityFull, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestRun_StaleWritesAreDropped(t *testing.T) {
	t.Parallel()

	ws := session.NewWorkingSet(stubs("1", "2")...)
	src := &fakeSource{}
	src.before = func(id string) {
		if id == "1" {
			ws.Replace(stubs("9"))
		}
	}

	res := enrich.Run(context.Background(), ws, src, enrich.Options{Fidelity: domain.FidelityLite, Concurrency: 1})

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Stale)
	assert.Zero(t, res.Enriched)
	require.Equal(t, 1, ws.Len())
	fresh, _ := ws.Get("9")
	assert.Zero(t, fresh.Subscribers)
}

func TestRun_NothingToDo(t *testing.T) {
	t.Parallel()

	records := stubs("1")
	records[0].Description = "already here"
	ws := session.NewWorkingSet(records...)

	res := enrich.Run(context.Background(), ws, &fakeSource{}, enrich.Options{Fidelity: domain.FidelityLite})
	assert.Equal(t, enrich.Result{}, res)
}

func TestDefaultConcurrency(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 4, enrich.DefaultConcurrency(domain.FidelityLite))
	assert.Equal(t, 2, enrich.DefaultConcurrency(domain.FidelityFull))
}
