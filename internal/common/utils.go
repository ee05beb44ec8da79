package common

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// WithCacheBuster appends a t=<unix millis> query parameter so clients
// do not reuse a previously cached copy of the same URL. The rest of the URL,
// including any existing query, is kept as is.
func WithCacheBuster(raw string, now time.Time) string {
	if raw == "" {
		return ""
	}
	if _, err := url.Parse(raw); err != nil {
		return raw
	}

	base, fragment, hasFragment := strings.Cut(raw, "#")
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
		if strings.HasSuffix(base, "?") || strings.HasSuffix(base, "&") {
			sep = ""
		}
	}
	out := base + sep + "t=" + strconv.FormatInt(now.UnixMilli(), 10)
	if hasFragment {
		out += "#" + fragment
	}
	return out
}
