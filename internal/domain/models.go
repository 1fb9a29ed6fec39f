package domain

import "context"

// Target represents a listing query to scrape
type Target struct {
	Filters Filters
	Pages   int
}

// ItemRecord is one catalog entry. ID never changes once assigned; every
// other field only moves from empty to populated through the merge helpers.
type ItemRecord struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	URL               string   `json:"url"`
	Author            string   `json:"author"`
	AuthorURL         string   `json:"author_url,omitempty"`
	Preview           string   `json:"preview,omitempty"`
	Rating            int      `json:"rating"`
	Visitors          int      `json:"visitors"`
	Subscribers       int      `json:"subscribers"`
	Favorites         int      `json:"favorites"`
	RatingsCount      int      `json:"ratings_count"`
	Tags              []string `json:"tags,omitempty"`
	Description       string   `json:"description,omitempty"`
	DescriptionMarkup string   `json:"description_markup,omitempty"`
	FileSize          string   `json:"file_size,omitempty"`
	PostedDate        string   `json:"posted_date,omitempty"`
	GalleryImages     []string `json:"gallery_images,omitempty"`
}

// DetailRecord is what the detail extractor produces for one item page.
type DetailRecord struct {
	Title             string   `json:"title,omitempty"`
	Description       string   `json:"description,omitempty"`
	DescriptionMarkup string   `json:"description_markup,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	Rating            int      `json:"rating"`
	Visitors          int      `json:"visitors"`
	Subscribers       int      `json:"subscribers"`
	Favorites         int      `json:"favorites"`
	RatingsCount      int      `json:"ratings_count"`
	FileSize          string   `json:"file_size,omitempty"`
	PostedDate        string   `json:"posted_date,omitempty"`
	Preview           string   `json:"preview,omitempty"`
	GalleryImages     []string `json:"gallery_images,omitempty"`
	Fidelity          Fidelity `json:"fidelity"`
}

// FetchOutcome reports one proxy attempt. It is an observability event only.
type FetchOutcome struct {
	Proxy   string `json:"proxy"`
	URL     string `json:"url"`
	Attempt int    `json:"attempt"`
	Status  int    `json:"status,omitempty"` // 0 when the request never got a response
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Collector defines the interface for page fetching
type Collector interface {
	Fetch(ctx context.Context, resourceURL string) (string, error)
}

// ListSink is the list-management collaborator. Membership is keyed by the
// bare item id, without the catalog identifier.
type ListSink interface {
	Append(id, name string) error
	Contains(id string) bool
	IDs() []string
	AppID() string
}
