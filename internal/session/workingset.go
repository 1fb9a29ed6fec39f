package session

import (
	"sync"

	"github.com/qepting91/workshop-scraper/internal/domain"
)

// WorkingSet is the ordered, id-keyed set of records of the active query.
// It is safe for concurrent use; enrichment writes to it while loads run.
type WorkingSet struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]domain.ItemRecord
}

func NewWorkingSet(records ...domain.ItemRecord) *WorkingSet {
	ws := &WorkingSet{}
	ws.Replace(records)
	return ws
}

// Records returns a copy of the records in insertion order.
func (ws *WorkingSet) Records() []domain.ItemRecord {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	out := make([]domain.ItemRecord, 0, len(ws.order))
	for _, id := range ws.order {
		out = append(out, ws.byID[id])
	}
	return out
}

func (ws *WorkingSet) Get(id string) (domain.ItemRecord, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	r, ok := ws.byID[id]
	return r, ok
}

func (ws *WorkingSet) Len() int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return len(ws.order)
}

// CountNew returns how many ids of records are not in the set yet.
func (ws *WorkingSet) CountNew(records []domain.ItemRecord) int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	n := 0
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		if _, ok := ws.byID[r.ID]; !ok {
			n++
		}
	}
	return n
}

// Replace discards the current contents.
func (ws *WorkingSet) Replace(records []domain.ItemRecord) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.order = nil
	ws.byID = make(map[string]domain.ItemRecord, len(records))
	ws.add(records)
}

// Append adds unseen records at the end and fills empty fields of known
// ones. Nothing already present is dropped. It returns the number added.
func (ws *WorkingSet) Append(records []domain.ItemRecord) int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.add(records)
}

func (ws *WorkingSet) add(records []domain.ItemRecord) int {
	added := 0
	for _, r := range records {
		if cur, ok := ws.byID[r.ID]; ok {
			ws.byID[r.ID] = cur.FillFrom(r)
			continue
		}
		ws.order = append(ws.order, r.ID)
		ws.byID[r.ID] = r
		added++
	}
	return added
}

// Update applies fn to the record with id. It reports false, without calling
// fn, when id is not in the set.
func (ws *WorkingSet) Update(id string, fn func(domain.ItemRecord) domain.ItemRecord) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	cur, ok := ws.byID[id]
	if !ok {
		return false
	}
	next := fn(cur)
	next.ID = id
	ws.byID[id] = next
	return true
}

// Snapshot captures the contents for Restore.
func (ws *WorkingSet) Snapshot() []domain.ItemRecord {
	return ws.Records()
}

// Restore brings back the membership and order of snapshot. Records still
// present keep fields written since the snapshot, such as enrichment
// results; the snapshot only fills what is empty.
func (ws *WorkingSet) Restore(snapshot []domain.ItemRecord) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	prev := ws.byID
	ws.order = make([]string, 0, len(snapshot))
	ws.byID = make(map[string]domain.ItemRecord, len(snapshot))
	for _, r := range snapshot {
		if _, dup := ws.byID[r.ID]; dup {
			continue
		}
		if cur, ok := prev[r.ID]; ok {
			r = cur.FillFrom(r)
		}
		ws.order = append(ws.order, r.ID)
		ws.byID[r.ID] = r
	}
}
