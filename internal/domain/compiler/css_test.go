package compiler

import (
	"strings"
	"testing"
)

func sanitize(t *testing.T, css string) (string, []string) {
	t.Helper()
	var warnings []string
	out := sanitizeCSS(css, &warnings)
	return out, warnings
}

func TestCSSBlankDangerousURL(t *testing.T) {
	cases := []string{
		`a { background: url(javascript:alert(1)) }`,
		`a { background: url("javascript:alert(1)") }`,
		`a { background: url('javascript:alert(1)') }`,
		`a { background: url( javascript:alert(1) ) }`,
		`a { background: url(JAVASCRIPT:alert(1)) }`,
		`a { background: url(data:text/html;base64,xxx) }`,
	}

	for _, css := range cases {
		out, warnings := sanitize(t, css)
		if strings.Contains(strings.ToLower(out), "javascript:") || strings.Contains(strings.ToLower(out), "data:") {
			t.Errorf("dangerous target survived %q -> %q", css, out)
		}
		if !strings.Contains(out, "url()") {
			t.Errorf("expected blanked url() in %q", out)
		}
		if len(warnings) != 1 {
			t.Errorf("expected 1 warning for %q, got %v", css, warnings)
		}
	}
}

func TestCSSNestedParens(t *testing.T) {
	css := `a { background: url(javascript:alert(f(g(1)))) } b { color: red }`
	out, _ := sanitize(t, css)

	if strings.Contains(out, "javascript") {
		t.Errorf("nested-paren target survived: %q", out)
	}
	if !strings.Contains(out, "b { color: red }") {
		t.Errorf("scan consumed past the call: %q", out)
	}
}

func TestCSSKeepsSafeURLs(t *testing.T) {
	css := `a { background: url("https://cdn.example/x.png") } b { background: url(img/y.png) }`
	out, warnings := sanitize(t, css)

	if out != css {
		t.Errorf("safe CSS was altered:\n in: %q\nout: %q", css, out)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestCSSUnterminatedURLFailsClosed(t *testing.T) {
	css := `a { background: url(javascript:alert(1)`
	out, _ := sanitize(t, css)

	if strings.Contains(out, "javascript") {
		t.Errorf("unterminated dangerous url survived: %q", out)
	}
}

func TestCSSImportStripped(t *testing.T) {
	cases := []string{
		`@import "javascript:alert(1)"; a { color: red }`,
		`@import url(javascript:alert(1)); a { color: red }`,
		`@import url("data:text/css;base64,xxx"); a { color: red }`,
	}

	for _, css := range cases {
		out, warnings := sanitize(t, css)
		if strings.Contains(strings.ToLower(out), "@import") {
			t.Errorf("import survived %q -> %q", css, out)
		}
		if !strings.Contains(out, "a { color: red }") {
			t.Errorf("sanitizer consumed surrounding rules: %q", out)
		}
		if len(warnings) == 0 {
			t.Errorf("expected warning for %q", css)
		}
	}
}

func TestCSSSafeImportKept(t *testing.T) {
	css := `@import url("theme.css"); a { color: red }`
	out, warnings := sanitize(t, css)

	if out != css {
		t.Errorf("safe import altered: %q", out)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestCSSExpressionDisabled(t *testing.T) {
	css := `a { width: expression(alert(1)) }`
	out, warnings := sanitize(t, css)

	if expressionRe.MatchString(out) {
		t.Errorf("expression( still callable: %q", out)
	}
	if len(warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", warnings)
	}

	// Stable on a second pass.
	again, warnings2 := sanitize(t, out)
	if again != out {
		t.Errorf("not idempotent: %q vs %q", out, again)
	}
	if len(warnings2) != 0 {
		t.Errorf("second pass warned: %v", warnings2)
	}
}

func TestCSSURLInIdentifierUntouched(t *testing.T) {
	css := `a { background-url(x): 1 }` // pathological but must not loop
	out, _ := sanitize(t, css)
	if out != css {
		t.Errorf("identifier containing url( was altered: %q", out)
	}
}
