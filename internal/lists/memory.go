// Package lists is an in-memory list collaborator: one named collection of
// saved item references for a catalog.
package lists

import (
	"sync"

	"github.com/qepting91/workshop-scraper/internal/domain"
)

// Entry is one saved item reference.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// List implements domain.ListSink. Membership is keyed by the bare id.
type List struct {
	mu      sync.RWMutex
	name    string
	appID   string
	entries []Entry
	index   map[string]int
}

func New(name, appID string) *List {
	return &List{name: name, appID: appID, index: make(map[string]int)}
}

// FromEntries builds a list in one step; duplicate ids keep the first entry.
func FromEntries(name, appID string, entries []Entry) *List {
	l := New(name, appID)
	for _, e := range entries {
		_ = l.Append(e.ID, e.Name)
	}
	return l
}

func (l *List) Append(id, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.index[id]; ok {
		return domain.ErrAlreadyInList
	}
	l.index[id] = len(l.entries)
	l.entries = append(l.entries, Entry{ID: id, Name: name})
	return nil
}

func (l *List) Contains(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.index[id]
	return ok
}

func (l *List) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.ID)
	}
	return out
}

func (l *List) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

func (l *List) AppID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.appID
}

// SetAppID follows the catalog the list is being filled from.
func (l *List) SetAppID(appID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appID = appID
}

func (l *List) Name() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.name
}
