package domain

// ApplyDetail merges d into r. A field is replaced only when the incoming
// value is non-empty, so applying an empty DetailRecord returns r unchanged.
func (r ItemRecord) ApplyDetail(d DetailRecord) ItemRecord {
	out := r.clone()
	out.Name = pickString(d.Title, out.Name)
	out.Description = pickString(d.Description, out.Description)
	out.DescriptionMarkup = pickString(d.DescriptionMarkup, out.DescriptionMarkup)
	out.Tags = pickStrings(d.Tags, out.Tags)
	out.Rating = pickInt(d.Rating, out.Rating)
	out.Visitors = pickInt(d.Visitors, out.Visitors)
	out.Subscribers = pickInt(d.Subscribers, out.Subscribers)
	out.Favorites = pickInt(d.Favorites, out.Favorites)
	out.RatingsCount = pickInt(d.RatingsCount, out.RatingsCount)
	out.FileSize = pickString(d.FileSize, out.FileSize)
	out.PostedDate = pickString(d.PostedDate, out.PostedDate)
	out.Preview = pickString(d.Preview, out.Preview)
	out.GalleryImages = pickStrings(d.GalleryImages, out.GalleryImages)
	return out
}

// Merge combines an incoming detail into d with the same rule as
// ApplyDetail. The resulting fidelity is the higher of the two.
func (d DetailRecord) Merge(in DetailRecord) DetailRecord {
	out := d
	out.Title = pickString(in.Title, d.Title)
	out.Description = pickString(in.Description, d.Description)
	out.DescriptionMarkup = pickString(in.DescriptionMarkup, d.DescriptionMarkup)
	out.Tags = pickStrings(in.Tags, d.Tags)
	out.Rating = pickInt(in.Rating, d.Rating)
	out.Visitors = pickInt(in.Visitors, d.Visitors)
	out.Subscribers = pickInt(in.Subscribers, d.Subscribers)
	out.Favorites = pickInt(in.Favorites, d.Favorites)
	out.RatingsCount = pickInt(in.RatingsCount, d.RatingsCount)
	out.FileSize = pickString(in.FileSize, d.FileSize)
	out.PostedDate = pickString(in.PostedDate, d.PostedDate)
	out.Preview = pickString(in.Preview, d.Preview)
	out.GalleryImages = pickStrings(in.GalleryImages, d.GalleryImages)
	if in.Fidelity > out.Fidelity {
		out.Fidelity = in.Fidelity
	}
	return out
}

// FillFrom fills the empty fields of r from fallback. Populated fields of r
// win; the id is never touched.
func (r ItemRecord) FillFrom(fallback ItemRecord) ItemRecord {
	out := r.clone()
	out.Name = pickString(out.Name, fallback.Name)
	out.URL = pickString(out.URL, fallback.URL)
	out.Author = pickString(out.Author, fallback.Author)
	out.AuthorURL = pickString(out.AuthorURL, fallback.AuthorURL)
	out.Preview = pickString(out.Preview, fallback.Preview)
	out.Rating = pickInt(out.Rating, fallback.Rating)
	out.Visitors = pickInt(out.Visitors, fallback.Visitors)
	out.Subscribers = pickInt(out.Subscribers, fallback.Subscribers)
	out.Favorites = pickInt(out.Favorites, fallback.Favorites)
	out.RatingsCount = pickInt(out.RatingsCount, fallback.RatingsCount)
	out.Tags = pickStrings(out.Tags, fallback.Tags)
	out.Description = pickString(out.Description, fallback.Description)
	out.DescriptionMarkup = pickString(out.DescriptionMarkup, fallback.DescriptionMarkup)
	out.FileSize = pickString(out.FileSize, fallback.FileSize)
	out.PostedDate = pickString(out.PostedDate, fallback.PostedDate)
	out.GalleryImages = pickStrings(out.GalleryImages, fallback.GalleryImages)
	return out
}

func (r ItemRecord) clone() ItemRecord {
	out := r
	out.Tags = cloneStrings(r.Tags)
	out.GalleryImages = cloneStrings(r.GalleryImages)
	return out
}

func pickString(preferred, current string) string {
	if preferred != "" {
		return preferred
	}
	return current
}

func pickInt(preferred, current int) int {
	if preferred > 0 {
		return preferred
	}
	return current
}

func pickStrings(preferred, current []string) []string {
	if len(preferred) > 0 {
		return cloneStrings(preferred)
	}
	return cloneStrings(current)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
