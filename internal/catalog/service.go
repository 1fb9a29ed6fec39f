// Package catalog drives listing loads: one load at a time, rollback on
// failure, opportunistic enrichment and the list collaborator.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/qepting91/workshop-scraper/internal/cache"
	"github.com/qepting91/workshop-scraper/internal/domain"
	"github.com/qepting91/workshop-scraper/internal/enrich"
	"github.com/qepting91/workshop-scraper/internal/extract"
	"github.com/qepting91/workshop-scraper/internal/session"
)

// DefaultEnrichLimit is how many stubs a load upgrades opportunistically.
const DefaultEnrichLimit = 8

type Options struct {
	// EnrichLimit <= 0 disables enrichment after loads.
	EnrichLimit       int
	EnrichFidelity    domain.Fidelity
	EnrichConcurrency int
	OnProgress        func(enrich.Progress)
	Logger            *slog.Logger
}

// LoadRequest asks for one listing page.
type LoadRequest struct {
	Filters domain.Filters
	Page    int
	// Append adds to the working set instead of replacing it.
	Append bool
}

// LoadResult describes a finished load.
type LoadResult struct {
	LoadID        string        `json:"load_id"`
	Page          int           `json:"page"`
	Extracted     int           `json:"extracted"`
	Added         int           `json:"added"`
	Path          string        `json:"path"`
	Orphans       int           `json:"orphans"`
	LowConfidence bool          `json:"low_confidence"`
	NoMorePages   bool          `json:"no_more_pages"`
	ContextReset  bool          `json:"context_reset"`
	Enrichment    enrich.Result `json:"enrichment"`
}

// Service owns the working set, session state and detail cache of one
// browsing session.
type Service struct {
	collector domain.Collector
	list      domain.ListSink
	cache     *cache.DetailCache
	state     *session.State
	working   *session.WorkingSet
	opts      Options
	logger    *slog.Logger

	mu      sync.Mutex
	loading bool
}

// New builds a Service. list may be nil when no list is active.
func New(c domain.Collector, list domain.ListSink, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.EnrichFidelity == domain.FidelityNone {
		opts.EnrichFidelity = domain.FidelityLite
	}
	return &Service{
		collector: c,
		list:      list,
		cache:     cache.New(c, logger),
		state:     session.NewState(),
		working:   session.NewWorkingSet(),
		opts:      opts,
		logger:    logger,
	}
}

// Load fetches one listing page. Only one load runs at a time; a second
// caller gets domain.ErrLoadInProgress. On a fetch failure every piece of
// session state is restored to what it was before the call.
func (s *Service) Load(ctx context.Context, req LoadRequest) (LoadResult, error) {
	if !s.beginLoad() {
		return LoadResult{}, domain.ErrLoadInProgress
	}
	loading := true
	defer func() {
		if loading {
			s.endLoad()
		}
	}()

	if req.Filters.AppID == "" && s.list != nil {
		req.Filters.AppID = s.list.AppID()
	}
	res := LoadResult{LoadID: uuid.NewString()}
	logger := s.logger.With("load_id", res.LoadID)

	stateSnap := s.state.Snapshot()
	workingSnap := s.working.Snapshot()

	decision := s.state.BeginQuery(req.Filters, req.Page)
	res.Page = decision.Page
	res.ContextReset = decision.Reset
	appendMode := req.Append && !decision.Reset

	resourceURL := req.Filters.CatalogURL(decision.Page)
	logger.Info("Loading catalog page", "url", resourceURL, "append", appendMode)

	text, err := s.collector.Fetch(ctx, resourceURL)
	if err != nil {
		s.state.Restore(stateSnap)
		s.working.Restore(workingSnap)
		logger.Error("Catalog load failed, state restored", "error", err)
		return LoadResult{}, fmt.Errorf("load page %d: %w", decision.Page, err)
	}
	if decision.Reset {
		s.cache.Reset()
	}

	extracted := extract.Catalog(text)
	res.Extracted = extracted.Count()
	res.Path = extracted.Path
	res.Orphans = extracted.Orphans
	res.LowConfidence = extracted.LowConfidence
	logger.Info("Catalog page extracted", "path", extracted.Path, "count", extracted.Count(), "orphans", extracted.Orphans)
	if extracted.LowConfidence {
		logger.Warn("Page references items but none were extracted", "url", resourceURL)
	}

	if appendMode && s.working.CountNew(extracted.Records) == 0 {
		res.Page = s.state.RollbackPage()
		res.NoMorePages = true
		logger.Info("No new items, page rolled back", "page", res.Page)
		return res, nil
	}

	if appendMode {
		res.Added = s.working.Append(extracted.Records)
	} else {
		s.working.Replace(extracted.Records)
		res.Added = len(extracted.Records)
	}
	s.state.ObserveTotal(extract.Total(text))
	ids := make([]string, 0, len(extracted.Records))
	for _, r := range extracted.Records {
		ids = append(ids, r.ID)
	}
	s.state.MarkLoaded(decision.Page, ids)

	// Enrichment is advisory; a new load may start while it runs.
	loading = false
	s.endLoad()

	if s.opts.EnrichLimit > 0 {
		res.Enrichment = s.Enrich(ctx, s.opts.EnrichFidelity, s.opts.EnrichLimit)
	}
	return res, nil
}

// Enrich runs one enrichment pass over the working set.
func (s *Service) Enrich(ctx context.Context, level domain.Fidelity, limit int) enrich.Result {
	return enrich.Run(ctx, s.working, s.cache, enrich.Options{
		Limit:       limit,
		Fidelity:    level,
		Concurrency: s.opts.EnrichConcurrency,
		OnProgress:  s.opts.OnProgress,
		Logger:      s.logger,
	})
}

// Detail returns one item at level through the cache. If the item is in the
// working set, the details are merged into it.
func (s *Service) Detail(ctx context.Context, id string, level domain.Fidelity) (domain.ItemRecord, error) {
	d, err := s.cache.Get(ctx, id, level)
	if err != nil {
		return domain.ItemRecord{}, err
	}
	var out domain.ItemRecord
	updated := s.working.Update(id, func(r domain.ItemRecord) domain.ItemRecord {
		out = r.ApplyDetail(d)
		return out
	})
	if !updated {
		out = domain.ItemRecord{ID: id, URL: domain.ItemURL(id)}.ApplyDetail(d)
	}
	return out, nil
}

// AddToList hands a working-set record to the list collaborator.
func (s *Service) AddToList(id string) error {
	if s.list == nil {
		return fmt.Errorf("add %s: no active list", id)
	}
	r, ok := s.working.Get(id)
	if !ok {
		return fmt.Errorf("add %s: %w", id, domain.ErrUnknownItem)
	}
	if s.list.Contains(id) {
		return fmt.Errorf("add %s: %w", id, domain.ErrAlreadyInList)
	}
	return s.list.Append(r.ID, r.Name)
}

// InList reports the "already added" state of id. The key is the bare id.
func (s *Service) InList(id string) bool {
	return s.list != nil && s.list.Contains(id)
}

// Records returns the working set in load order.
func (s *Service) Records() []domain.ItemRecord {
	return s.working.Records()
}

func (s *Service) Session() session.Stats {
	return s.state.Stats()
}

func (s *Service) beginLoad() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return false
	}
	s.loading = true
	return true
}

func (s *Service) endLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
}
