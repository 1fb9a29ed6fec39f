// Package enrich upgrades catalog stubs to detail records with a small
// fixed pool of workers.
package enrich

import (
	"context"
	"log/slog"
	"sync"

	"github.com/qepting91/workshop-scraper/internal/domain"
)

// DetailSource resolves item details, normally the record cache.
type DetailSource interface {
	Get(ctx context.Context, id string, level domain.Fidelity) (domain.DetailRecord, error)
}

// WorkingSet is the live record collection being enriched. Update must be a
// no-op returning false when the id is no longer present.
type WorkingSet interface {
	Records() []domain.ItemRecord
	Update(id string, fn func(domain.ItemRecord) domain.ItemRecord) bool
}

// Progress is reported after every processed item, failed or not.
type Progress struct {
	Done   int
	Total  int
	Failed int
}

type Options struct {
	Limit       int // <= 0 means every candidate
	Fidelity    domain.Fidelity
	Concurrency int // <= 0 picks DefaultConcurrency
	OnProgress  func(Progress)
	Logger      *slog.Logger
}

// Result summarizes one pass.
type Result struct {
	Total    int
	Enriched int
	Failed   int
	// Stale counts fetched items whose id left the working set meanwhile.
	Stale int
}

// DefaultConcurrency is 4 for Lite and 2 for the heavier Full pages.
func DefaultConcurrency(level domain.Fidelity) int {
	if level >= domain.FidelityFull {
		return 2
	}
	return 4
}

// Candidates returns up to limit records lacking the fields level provides,
// in working-set order.
func Candidates(records []domain.ItemRecord, level domain.Fidelity, limit int) []domain.ItemRecord {
	var out []domain.ItemRecord
	for _, r := range records {
		if limit > 0 && len(out) >= limit {
			break
		}
		if !r.HasDetail(level) {
			out = append(out, r)
		}
	}
	return out
}

// Run performs one enrichment pass. Items are never retried within a pass;
// a failed item counts toward progress and stays unmerged.
func Run(ctx context.Context, ws WorkingSet, src DetailSource, opts Options) Result {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := opts.Fidelity
	if level == domain.FidelityNone {
		level = domain.FidelityLite
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = DefaultConcurrency(level)
	}

	candidates := Candidates(ws.Records(), level, opts.Limit)
	res := Result{Total: len(candidates)}
	if len(candidates) == 0 {
		return res
	}

	jobQueue := make(chan domain.ItemRecord, len(candidates))
	for _, r := range candidates {
		jobQueue <- r
	}
	close(jobQueue)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	done := 0
	report := func(ok, stale bool) {
		mu.Lock()
		defer mu.Unlock()
		done++
		switch {
		case !ok:
			res.Failed++
		case stale:
			res.Stale++
		default:
			res.Enriched++
		}
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Done: done, Total: res.Total, Failed: res.Failed})
		}
	}

	for i := 0; i < min(workers, len(candidates)); i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for r := range jobQueue {
				select {
				case <-ctx.Done():
					return
				default:
				}

				d, err := src.Get(ctx, r.ID, level)
				if err != nil {
					logger.Warn("Enrichment failed", "worker", worker, "id", r.ID, "error", err)
					report(false, false)
					continue
				}
				applied := ws.Update(r.ID, func(cur domain.ItemRecord) domain.ItemRecord {
					return cur.ApplyDetail(d)
				})
				report(true, !applied)
			}
		}(i)
	}
	wg.Wait()

	logger.Info("Enrichment pass finished",
		"fidelity", level.String(), "total", res.Total, "enriched", res.Enriched,
		"failed", res.Failed, "stale", res.Stale)
	return res
}
