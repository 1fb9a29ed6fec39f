package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/qepting91/workshop-scraper/internal/domain"
	"github.com/qepting91/workshop-scraper/internal/lists"
)

// ListExport is the exchange format of a saved list.
type ListExport struct {
	Name  string        `json:"name"`
	AppID string        `json:"appid"`
	Mods  []lists.Entry `json:"mods"`
}

// LoadListExport reads a list export file into a new list.
func LoadListExport(path string) (*lists.List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadListExport(f)
}

// ReadListExport parses an export. Entries with a non-numeric id are
// dropped; anything structurally wrong fails with domain.ErrMalformedImport
// and yields no list at all.
func ReadListExport(in io.Reader) (*lists.List, error) {
	raw, err := io.ReadAll(stripBOM(in))
	if err != nil {
		return nil, err
	}

	var export ListExport
	if err := json.Unmarshal(raw, &export); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedImport, err)
	}
	if export.Mods == nil {
		return nil, fmt.Errorf("%w: missing mods array", domain.ErrMalformedImport)
	}

	name := strings.TrimSpace(export.Name)
	if name == "" {
		name = "Imported list"
	}
	appID := strings.TrimSpace(export.AppID)
	if appID != "" && !appIDRegex.MatchString(appID) {
		return nil, fmt.Errorf("%w: invalid appid %q", domain.ErrMalformedImport, export.AppID)
	}

	entries := make([]lists.Entry, 0, len(export.Mods))
	for _, m := range export.Mods {
		id := strings.TrimSpace(m.ID)
		if !appIDRegex.MatchString(id) {
			continue
		}
		entries = append(entries, lists.Entry{ID: id, Name: strings.TrimSpace(m.Name)})
	}
	return lists.FromEntries(name, appID, entries), nil
}

// WriteListExport writes l in the exchange format.
func WriteListExport(w io.Writer, l *lists.List) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ListExport{Name: l.Name(), AppID: l.AppID(), Mods: l.Entries()})
}
