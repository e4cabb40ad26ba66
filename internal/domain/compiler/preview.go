package compiler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// Summary is the feed-card view of a compiled artifact: plain text only,
// never markup.
type Summary struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Links   int    `json:"links"`
	Images  int    `json:"images"`
}

const excerptLimit = 280

var textPolicy = bluemonday.StrictPolicy()

// Preview extracts a plain-text summary of compiled markup for feed cards.
// Input is expected to be compiler output, but the strict policy makes the
// result safe even for raw markup.
func Preview(html string) Summary {
	var s Summary

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		s.Excerpt = truncate(normalizeSpace(textPolicy.Sanitize(html)), excerptLimit)
		return s
	}

	s.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if s.Title == "" {
		s.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find("style").Remove()
	body := doc.Find("body").Text()
	s.Excerpt = truncate(normalizeSpace(textPolicy.Sanitize(body)), excerptLimit)

	s.Links = doc.Find("a[href]").Length()
	s.Images = doc.Find("img[src]").Length()

	return s
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}
