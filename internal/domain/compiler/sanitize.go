package compiler

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Inline event handlers, matched by attribute position. Handles double
	// quotes, single quotes and unquoted values.
	eventAttrRe = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
	eventNameRe = regexp.MustCompile(`(?i)on[a-z]+`)

	// Containers stripped entirely, open and close. Script is included as
	// defense-in-depth even though any occurrence already hard-rejects.
	containerRe = regexp.MustCompile(`(?i)</?(?:script|iframe|object|embed|applet|base)\b[^>]*>`)
	tagNameRe   = regexp.MustCompile(`(?i)^</?([a-z]+)`)

	// href/src attributes carrying javascript: or data: targets.
	uriAttrRe = regexp.MustCompile(`(?i)\s+(href|src)\s*=\s*(?:"\s*(?:javascript|data)\s*:[^"]*"|'\s*(?:javascript|data)\s*:[^']*'|(?:javascript|data)\s*:[^\s>]*)`)

	uriAttrNameRe = regexp.MustCompile(`(?i)href|src`)

	linkTagRe = regexp.MustCompile(`(?i)<link\b[^>]*>`)
	metaTagRe = regexp.MustCompile(`(?i)<meta\b[^>]*>`)
	baseTagRe = regexp.MustCompile(`(?i)<base\b`)
	headRe    = regexp.MustCompile(`(?i)<head\b[^>]*>`)
	headEndRe = regexp.MustCompile(`(?i)</head>`)
	htmlRe    = regexp.MustCompile(`(?i)<html\b[^>]*>`)
	bodyRe    = regexp.MustCompile(`(?i)<body\b[^>]*>`)
	bodyEndRe = regexp.MustCompile(`(?i)</body>`)
)

// stripEventHandlers removes all inline on* handler attributes.
func stripEventHandlers(html string, warnings *[]string) string {
	return eventAttrRe.ReplaceAllStringFunc(html, func(match string) string {
		name := strings.ToLower(eventNameRe.FindString(match))
		*warnings = append(*warnings, fmt.Sprintf("Removed inline event handler %q", name))
		return ""
	})
}

// stripContainers removes disallowed container tags. The engine's own
// injected base tag is the one exception, otherwise recompiling sanitized
// output would oscillate.
func stripContainers(html, baseHref string, warnings *[]string) string {
	pinned := injectedBaseTag(baseHref)

	return containerRe.ReplaceAllStringFunc(html, func(match string) string {
		if match == pinned {
			return match
		}
		if strings.HasPrefix(match, "</") {
			// Close tag of an element already reported via its open tag.
			return ""
		}
		name := "element"
		if m := tagNameRe.FindStringSubmatch(match); m != nil {
			name = strings.ToLower(m[1])
		}
		*warnings = append(*warnings, fmt.Sprintf("Removed disallowed <%s> element", name))
		return ""
	})
}

// neutralizeURIAttrs drops href/src attributes whose target begins with
// javascript: or data:.
func neutralizeURIAttrs(html string, warnings *[]string) string {
	return uriAttrRe.ReplaceAllStringFunc(html, func(match string) string {
		attr := strings.ToLower(uriAttrNameRe.FindString(match))
		*warnings = append(*warnings, fmt.Sprintf("Removed %s attribute with a blocked URI scheme", attr))
		return ""
	})
}

// filterLinks keeps only stylesheet links that actually point somewhere.
// Everything else (prefetch, preconnect, manifest, ...) is dropped.
func filterLinks(html string, warnings *[]string) string {
	return linkTagRe.ReplaceAllStringFunc(html, func(match string) string {
		rel := strings.ToLower(attrValue(match, "rel"))
		href := attrValue(match, "href")

		if (rel == "" || strings.Contains(rel, "stylesheet")) && href != "" {
			return match
		}
		*warnings = append(*warnings, "Removed non-stylesheet <link> element")
		return ""
	})
}

// filterMeta drops meta refresh, which would otherwise drive navigation from
// markup alone.
func filterMeta(html string, warnings *[]string) string {
	return metaTagRe.ReplaceAllStringFunc(html, func(match string) string {
		if strings.EqualFold(strings.TrimSpace(attrValue(match, "http-equiv")), "refresh") {
			*warnings = append(*warnings, `Removed <meta http-equiv="refresh"> element`)
			return ""
		}
		return match
	})
}

// ensureBase injects exactly one base tag pointing at the sandbox origin
// when the document has none.
func ensureBase(html, baseHref string) string {
	if baseTagRe.MatchString(html) {
		return html
	}

	tag := injectedBaseTag(baseHref)
	if loc := headRe.FindStringIndex(html); loc != nil {
		return html[:loc[1]] + tag + html[loc[1]:]
	}

	headBlock := "<head>" + tag + "</head>"
	if loc := htmlRe.FindStringIndex(html); loc != nil {
		return html[:loc[1]] + headBlock + html[loc[1]:]
	}
	return headBlock + html
}

// wrapBody wraps body content in a single container with a stable id so
// host-side mount logic always has one well-known insertion point.
func wrapBody(html string) string {
	if strings.Contains(html, `id="`+RootContainerID+`"`) {
		return html
	}

	open := `<div id="` + RootContainerID + `">`

	if loc := bodyRe.FindStringIndex(html); loc != nil {
		out := html[:loc[1]] + open + html[loc[1]:]
		if end := bodyEndRe.FindStringIndex(out); end != nil {
			return out[:end[0]] + "</div>" + out[end[0]:]
		}
		return out + "</div>"
	}

	// Fragment without a body element: wrap everything after the head.
	if loc := headEndRe.FindStringIndex(html); loc != nil {
		return html[:loc[1]] + open + html[loc[1]:] + "</div>"
	}
	return open + html + "</div>"
}

func injectedBaseTag(baseHref string) string {
	return `<base href="` + baseHref + `">`
}

var attrRes = map[string]*regexp.Regexp{
	"rel":        attrRe("rel"),
	"href":       attrRe("href"),
	"http-equiv": attrRe("http-equiv"),
}

func attrRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))`)
}

// attrValue extracts an attribute value from a single tag's source text,
// handling both quote styles and unquoted values.
func attrValue(tag, name string) string {
	re, ok := attrRes[name]
	if !ok {
		re = attrRe(name)
	}
	m := re.FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	for _, group := range m[1:] {
		if group != "" {
			return group
		}
	}
	return ""
}
