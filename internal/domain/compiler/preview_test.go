package compiler

import (
	"strings"
	"testing"
)

func TestPreviewExtractsText(t *testing.T) {
	result := compileOK(t, `<html><head><title>Orbit Toy</title></head><body>
		<h1>Orbit</h1>
		<p>Drag the planets around.</p>
		<a href="https://example.com/docs">docs</a>
		<img src="orbit.png">
	</body></html>`)

	s := Preview(result.HTML)
	if s.Title != "Orbit Toy" {
		t.Errorf("expected title 'Orbit Toy', got %q", s.Title)
	}
	if !strings.Contains(s.Excerpt, "Drag the planets around.") {
		t.Errorf("excerpt missing body text: %q", s.Excerpt)
	}
	if s.Links != 1 || s.Images != 1 {
		t.Errorf("expected 1 link and 1 image, got %d/%d", s.Links, s.Images)
	}
}

func TestPreviewNeverEmitsMarkup(t *testing.T) {
	s := Preview(`<div><b>bold</b><style>a{color:red}</style><p>text</p></div>`)

	if strings.ContainsAny(s.Excerpt, "<>") {
		t.Errorf("excerpt contains markup: %q", s.Excerpt)
	}
	if strings.Contains(s.Excerpt, "color:red") {
		t.Errorf("excerpt leaks style text: %q", s.Excerpt)
	}
}

func TestPreviewTruncates(t *testing.T) {
	long := "<p>" + strings.Repeat("word ", 200) + "</p>"
	s := Preview(long)

	if len(s.Excerpt) > excerptLimit+len("…") {
		t.Errorf("excerpt too long: %d bytes", len(s.Excerpt))
	}
	if !strings.HasSuffix(s.Excerpt, "…") {
		t.Errorf("expected ellipsis suffix: %q", s.Excerpt)
	}
}

func TestPreviewFallsBackToH1(t *testing.T) {
	s := Preview(`<body><h1>Fallback Title</h1><p>x</p></body>`)
	if s.Title != "Fallback Title" {
		t.Errorf("expected h1 fallback, got %q", s.Title)
	}
}
