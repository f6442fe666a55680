package kit

import (
	"net/http"
	"strings"
	"time"
)

// Validators exposes the cache validators of a resource collection.
type Validators interface {
	Fingerprint() string
	LastModified() time.Time
}

// ETag formats a fingerprint as a strong entity tag.
func ETag(fingerprint string) string {
	return `"` + fingerprint + `"`
}

// NotModified sets ETag and Last-Modified from v and, when the request's
// conditional headers show the client copy is current, writes 304 and
// returns true. If-None-Match takes precedence over If-Modified-Since.
func NotModified(w http.ResponseWriter, r *http.Request, v Validators) bool {
	etag := ETag(v.Fingerprint())
	lastModified := v.LastModified().UTC().Truncate(time.Second)

	h := w.Header()
	h.Set("ETag", etag)
	h.Set("Last-Modified", lastModified.Format(http.TimeFormat))

	if inm := r.Header.Get("If-None-Match"); inm != "" {
		if !etagMatches(inm, etag) {
			return false
		}
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	if ims := r.Header.Get("If-Modified-Since"); ims != "" {
		t, err := http.ParseTime(ims)
		if err != nil || t.Before(lastModified) {
			return false
		}
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	return false
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
