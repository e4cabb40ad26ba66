package bridge

import (
	"net/url"
	"strings"
)

// ResolveTrustedOrigin determines the parent origin the bridge will address,
// from the most specific available signal: the browsing-context ancestor
// origin list first, then the referrer. Returns ok=false when neither is
// usable; callers must then suppress all outbound sends (fail closed, not
// open, on ambiguous origin).
func ResolveTrustedOrigin(ancestorOrigins []string, referrer string) (string, bool) {
	for _, origin := range ancestorOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" && origin != "null" {
			return origin, true
		}
	}

	if referrer != "" {
		if u, err := url.Parse(referrer); err == nil && u.Scheme != "" && u.Host != "" {
			return u.Scheme + "://" + u.Host, true
		}
	}

	return "", false
}
