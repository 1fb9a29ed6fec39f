// Package extract turns fetched page bodies into catalog and detail records.
//
// The rendering proxies return either a markdown-like text rendering or the
// raw HTML document, unpredictably. Every page is wrapped in a Source that
// sniffs the format once; extraction then runs an ordered list of
// strategies and keeps the first useful result. Extraction never fails: a
// pattern that does not match yields empty fields.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Format is the sniffed rendering of a page body.
type Format int

const (
	FormatMarkdown Format = iota
	FormatHTML
)

func (f Format) String() string {
	if f == FormatHTML {
		return "html"
	}
	return "markdown"
}

var htmlMarkerPattern = regexp.MustCompile(`(?i)^\s*(?:<!doctype\s+html|<html[\s>])|<body[\s>]`)

// Sniff reports whether text looks like a full HTML document.
func Sniff(text string) Format {
	head := text
	if len(head) > 4096 {
		head = head[:4096]
	}
	if htmlMarkerPattern.MatchString(head) {
		return FormatHTML
	}
	return FormatMarkdown
}

// Source is one fetched page body with its sniffed format.
type Source struct {
	Text   string
	Format Format

	doc    *goquery.Document
	parsed bool
}

// NewSource wraps text and sniffs its format.
func NewSource(text string) *Source {
	return &Source{Text: text, Format: Sniff(text)}
}

// Document parses the body as HTML on first use. It returns nil for
// markdown sources and unparsable documents.
func (s *Source) Document() *goquery.Document {
	if s.Format != FormatHTML {
		return nil
	}
	if !s.parsed {
		s.parsed = true
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.Text))
		if err == nil {
			s.doc = doc
		}
	}
	return s.doc
}
