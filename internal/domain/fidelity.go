package domain

import (
	"fmt"
	"strings"
)

// Fidelity is the depth of a detail extraction.
type Fidelity int

const (
	FidelityNone Fidelity = iota
	// FidelityLite carries text-derived summary fields only.
	FidelityLite
	// FidelityFull adds sanitized markup and the image gallery.
	FidelityFull
)

func (f Fidelity) String() string {
	switch f {
	case FidelityLite:
		return "lite"
	case FidelityFull:
		return "full"
	default:
		return "none"
	}
}

// ParseFidelity accepts "lite" or "full", case-insensitively.
func ParseFidelity(s string) (Fidelity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lite":
		return FidelityLite, nil
	case "full":
		return FidelityFull, nil
	default:
		return FidelityNone, fmt.Errorf("unknown fidelity %q (use 'lite' or 'full')", s)
	}
}

// HasDetail reports whether the record already carries the fields that make
// an enrichment at level worthwhile.
func (r ItemRecord) HasDetail(level Fidelity) bool {
	switch level {
	case FidelityFull:
		return r.DescriptionMarkup != "" || len(r.GalleryImages) > 0
	case FidelityLite:
		return r.Description != "" || len(r.Tags) > 0 ||
			r.Visitors > 0 || r.Subscribers > 0 || r.Favorites > 0 || r.RatingsCount > 0
	default:
		return true
	}
}
