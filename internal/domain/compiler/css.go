package compiler

import (
	"regexp"
	"strings"
)

var (
	styleBlockRe = regexp.MustCompile(`(?is)(<style\b[^>]*>)(.*?)(</style>)`)
	cssImportRe  = regexp.MustCompile(`(?i)@import\s+(?:url\(\s*)?["']?\s*(?:javascript|data)\s*:[^;]*;?`)
	expressionRe = regexp.MustCompile(`(?i)expression\s*\(`)
)

// sanitizeStyles rewrites every <style> block in the document.
func sanitizeStyles(html string, warnings *[]string) string {
	return styleBlockRe.ReplaceAllStringFunc(html, func(match string) string {
		parts := styleBlockRe.FindStringSubmatch(match)
		if parts == nil {
			return match
		}
		return parts[1] + sanitizeCSS(parts[2], warnings) + parts[3]
	})
}

// sanitizeCSS strips dangerous @import targets, blanks url() calls pointing
// at javascript:/data: and disables expression().
func sanitizeCSS(css string, warnings *[]string) string {
	out := cssImportRe.ReplaceAllStringFunc(css, func(string) string {
		*warnings = append(*warnings, "Removed blocked @import from stylesheet")
		return ""
	})

	out = blankDangerousURLs(out, warnings)

	out = expressionRe.ReplaceAllStringFunc(out, func(string) string {
		*warnings = append(*warnings, "Disabled CSS expression()")
		return "/*expression*/("
	})

	return out
}

// blankDangerousURLs walks url(...) occurrences respecting quoting and
// nested parentheses, replacing any whose target resolves to a javascript:
// or data: URI with an empty url().
func blankDangerousURLs(css string, warnings *[]string) string {
	lower := strings.ToLower(css)
	var b strings.Builder
	pos := 0

	for {
		idx := strings.Index(lower[pos:], "url(")
		if idx < 0 {
			b.WriteString(css[pos:])
			break
		}
		idx += pos

		// Do not treat "...url(" inside a longer identifier as a call.
		if idx > 0 && isCSSIdentChar(lower[idx-1]) {
			b.WriteString(css[pos : idx+4])
			pos = idx + 4
			continue
		}

		end, target := scanURLCall(css, idx+4)
		b.WriteString(css[pos:idx])

		if isDangerousTarget(target) {
			*warnings = append(*warnings, "Blanked blocked url() in stylesheet")
			b.WriteString("url()")
		} else {
			b.WriteString(css[idx:end])
		}
		pos = end
	}

	return b.String()
}

// scanURLCall consumes the argument of a url( call starting at start (just
// past the open paren). Returns the index one past the terminating paren and
// the unquoted, trimmed target. Unterminated calls consume to end of input
// so the whole remainder is judged as the target (fail closed).
func scanURLCall(css string, start int) (end int, target string) {
	i := start
	for i < len(css) && (css[i] == ' ' || css[i] == '\t' || css[i] == '\n' || css[i] == '\r') {
		i++
	}

	if i < len(css) && (css[i] == '"' || css[i] == '\'') {
		quote := css[i]
		i++
		valStart := i
		for i < len(css) && css[i] != quote {
			i++
		}
		target = css[valStart:i]
		if i < len(css) {
			i++ // closing quote
		}
		for i < len(css) && css[i] != ')' {
			i++
		}
		if i < len(css) {
			i++ // closing paren
		}
		return i, strings.TrimSpace(target)
	}

	valStart := i
	depth := 1
	for i < len(css) {
		switch css[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1, strings.TrimSpace(css[valStart:i])
			}
		}
		i++
	}
	return len(css), strings.TrimSpace(css[valStart:])
}

func isDangerousTarget(target string) bool {
	t := strings.ToLower(strings.Trim(target, `"' `))
	t = strings.TrimLeft(t, " \t\r\n")
	return strings.HasPrefix(t, "javascript:") || strings.HasPrefix(t, "data:")
}

func isCSSIdentChar(c byte) bool {
	return c == '-' || c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
