package kit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fixedValidators struct {
	fp string
	lm time.Time
}

func (v fixedValidators) Fingerprint() string     { return v.fp }
func (v fixedValidators) LastModified() time.Time { return v.lm }

func TestNotModified(t *testing.T) {
	lm := time.Date(2024, 1, 3, 10, 0, 0, 500_000_000, time.UTC)
	v := fixedValidators{fp: "abc123", lm: lm}
	lmHeader := lm.Format(http.TimeFormat)

	tests := []struct {
		name    string
		headers map[string]string
		want    bool
	}{
		{"no conditions", nil, false},
		{"matching etag", map[string]string{"If-None-Match": `"abc123"`}, true},
		{"weak matching etag", map[string]string{"If-None-Match": `W/"abc123"`}, true},
		{"etag list", map[string]string{"If-None-Match": `"old", "abc123"`}, true},
		{"wildcard", map[string]string{"If-None-Match": "*"}, true},
		{"stale etag", map[string]string{"If-None-Match": `"old"`}, false},
		{"unquoted etag", map[string]string{"If-None-Match": "abc123"}, false},
		{"same second", map[string]string{"If-Modified-Since": lmHeader}, true},
		{"later date", map[string]string{"If-Modified-Since": lm.Add(time.Hour).Format(http.TimeFormat)}, true},
		{"earlier date", map[string]string{"If-Modified-Since": lm.Add(-time.Second).Format(http.TimeFormat)}, false},
		{"malformed date", map[string]string{"If-Modified-Since": "yesterday"}, false},
		{"etag wins over date", map[string]string{"If-None-Match": `"old"`, "If-Modified-Since": lmHeader}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/items", nil)
			for k, val := range tc.headers {
				r.Header.Set(k, val)
			}
			w := httptest.NewRecorder()

			got := NotModified(w, r, v)

			assert.Equal(t, tc.want, got)
			assert.Equal(t, `"abc123"`, w.Header().Get("ETag"))
			assert.Equal(t, "Wed, 03 Jan 2024 10:00:00 GMT", w.Header().Get("Last-Modified"))
			if tc.want {
				assert.Equal(t, http.StatusNotModified, w.Code)
			}
		})
	}
}
