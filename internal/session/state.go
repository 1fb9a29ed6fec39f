// Package session tracks pagination and per-query statistics, and holds the
// working set of the active query.
package session

import (
	"sync"

	"github.com/qepting91/workshop-scraper/internal/domain"
)

// Decision is the outcome of BeginQuery.
type Decision struct {
	ContextKey string
	Page       int
	// Reset is true when the filters changed and session statistics were
	// cleared.
	Reset bool
}

// Stats is a read-only view of the session counters.
type Stats struct {
	ContextKey     string `json:"context_key"`
	Page           int    `json:"page"`
	LastLoadedPage int    `json:"last_loaded_page"`
	Total          int    `json:"total"`
	SessionLoaded  int    `json:"session_loaded"`
}

// Snapshot is an opaque copy of the session state used to roll back a
// failed load.
type Snapshot struct {
	contextKey     string
	page           int
	lastLoadedPage int
	total          int
	seen           map[string]struct{}
}

// State is scoped to one filter context. Changing filters clears it.
type State struct {
	mu             sync.Mutex
	contextKey     string
	page           int
	lastLoadedPage int
	total          int
	seen           map[string]struct{}
}

func NewState() *State {
	return &State{page: 1, seen: make(map[string]struct{})}
}

// BeginQuery switches to filters and page. If the context key differs from
// the stored one, the seen ids, last loaded page and total are reset first.
func (s *State) BeginQuery(f domain.Filters, page int) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	if page < 1 {
		page = 1
	}
	key := f.ContextKey()
	d := Decision{ContextKey: key, Page: page}
	if key != s.contextKey {
		s.contextKey = key
		s.seen = make(map[string]struct{})
		s.lastLoadedPage = 0
		s.total = 0
		d.Reset = true
	}
	s.page = page
	return d
}

// ObserveTotal records the upstream total. Zero means the page did not say
// and leaves the known total untouched.
func (s *State) ObserveTotal(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = n
}

// MarkLoaded records a successfully loaded page and its ids. It returns how
// many ids were new to the session.
func (s *State) MarkLoaded(page int, ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLoadedPage = page
	added := 0
	for _, id := range ids {
		if _, ok := s.seen[id]; !ok {
			s.seen[id] = struct{}{}
			added++
		}
	}
	return added
}

// RollbackPage steps the page counter back by one, never below 1.
func (s *State) RollbackPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = max(s.page-1, 1)
	return s.page
}

func (s *State) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Seen reports whether id was loaded in this session.
func (s *State) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

func (s *State) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		ContextKey:     s.contextKey,
		Page:           s.page,
		LastLoadedPage: s.lastLoadedPage,
		Total:          s.total,
		SessionLoaded:  len(s.seen),
	}
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(s.seen))
	for id := range s.seen {
		seen[id] = struct{}{}
	}
	return Snapshot{
		contextKey:     s.contextKey,
		page:           s.page,
		lastLoadedPage: s.lastLoadedPage,
		total:          s.total,
		seen:           seen,
	}
}

// Restore puts back a snapshot, including the context key.
func (s *State) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextKey = snap.contextKey
	s.page = snap.page
	s.lastLoadedPage = snap.lastLoadedPage
	s.total = snap.total
	s.seen = make(map[string]struct{}, len(snap.seen))
	for id := range snap.seen {
		s.seen[id] = struct{}{}
	}
}
