package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/qepting91/workshop-scraper/internal/domain"
)

// Regex for valid catalog (app) ids
var appIDRegex = regexp.MustCompile(`^\d+$`)

// LoadTargets reads listing queries from a CSV file with the header
// appid,sort,search_text,required_tags,days,pages.
func LoadTargets(path string) ([]domain.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTargets(f)
}

// ReadTargets is LoadTargets over any reader. Invalid rows are skipped.
func ReadTargets(in io.Reader) ([]domain.Target, error) {
	// Wrap in BOM stripper
	r := csv.NewReader(stripBOM(in))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var targets []domain.Target
	line := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}
		line++
		if line == 1 {
			continue // Skip header
		}

		// Validation (Fail-Soft)
		appID := field(record, 0)
		if !appIDRegex.MatchString(appID) {
			continue
		}
		pages, _ := strconv.Atoi(field(record, 5))
		if pages < 1 {
			pages = 1
		}

		targets = append(targets, domain.Target{
			Filters: domain.Filters{
				AppID:        appID,
				Sort:         field(record, 1),
				SearchText:   field(record, 2),
				RequiredTags: field(record, 3),
				Days:         field(record, 4),
			},
			Pages: pages,
		})
	}
	return targets, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		_ = br.UnreadRune()
	}
	return br
}
