package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/qepting91/workshop-scraper/internal/domain"
)

// Sort orders for View.
const (
	SortNone        = ""
	SortTitle       = "title"
	SortSubscribers = "subscribers"
	SortFavorites   = "favorites"
	SortRating      = "rating"
)

// ViewOptions filters and sorts the working set for display.
type ViewOptions struct {
	Tag            string
	MinSubscribers int
	MinRating      int
	Sort           string
}

// Stats are the counters shown next to a listing.
type Stats struct {
	Total         int `json:"total"`
	SessionLoaded int `json:"session_loaded"`
	Shown         int `json:"shown"`
	AlreadyInList int `json:"already_in_list"`
}

// Filter applies opts to records. Numeric sorts are descending; all sorts
// are stable.
func Filter(records []domain.ItemRecord, opts ViewOptions) []domain.ItemRecord {
	tag := strings.ToLower(strings.TrimSpace(opts.Tag))
	out := make([]domain.ItemRecord, 0, len(records))
	for _, r := range records {
		if opts.MinSubscribers > 0 && r.Subscribers < opts.MinSubscribers {
			continue
		}
		if opts.MinRating > 0 && r.Rating < opts.MinRating {
			continue
		}
		if tag != "" && !slices.ContainsFunc(r.Tags, func(t string) bool {
			return strings.Contains(strings.ToLower(t), tag)
		}) {
			continue
		}
		out = append(out, r)
	}

	switch opts.Sort {
	case SortTitle:
		slices.SortStableFunc(out, func(a, b domain.ItemRecord) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
	case SortSubscribers:
		slices.SortStableFunc(out, func(a, b domain.ItemRecord) int { return cmp.Compare(b.Subscribers, a.Subscribers) })
	case SortFavorites:
		slices.SortStableFunc(out, func(a, b domain.ItemRecord) int { return cmp.Compare(b.Favorites, a.Favorites) })
	case SortRating:
		slices.SortStableFunc(out, func(a, b domain.ItemRecord) int { return cmp.Compare(b.Rating, a.Rating) })
	}
	return out
}

// View filters and sorts the current working set.
func (s *Service) View(opts ViewOptions) []domain.ItemRecord {
	return Filter(s.working.Records(), opts)
}

// Stats counts the working set under opts.
func (s *Service) Stats(opts ViewOptions) Stats {
	records := s.working.Records()
	st := s.state.Stats()
	out := Stats{
		Total:         st.Total,
		SessionLoaded: st.SessionLoaded,
		Shown:         len(Filter(records, opts)),
	}
	for _, r := range records {
		if s.InList(r.ID) {
			out.AlreadyInList++
		}
	}
	return out
}
