package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestEtagMatches(t *testing.T) {
	etag := `"abc"`

	cases := map[string]bool{
		"":             false,
		"*":            true,
		`"abc"`:        true,
		`W/"abc"`:      true,
		`"x", W/"abc"`: true,
		`"abcd"`:       false,
		`"x" , "y"`:    false,
	}

	for header, want := range cases {
		if got := etagMatches(header, etag); got != want {
			t.Fatalf("etagMatches(%q) = %v, want %v", header, got, want)
		}
	}
}

func TestRespondJSONWithETag(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/items", func(ctx *gin.Context) {
		RespondJSONWithETag(ctx, http.StatusOK, []string{"a", "b"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items", nil))

	if w.Code != http.StatusOK || w.Body.String() != `["a","b"]` {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag == "" || w.Header().Get("Cache-Control") != "private, no-cache" {
		t.Fatalf("missing cache headers: %v", w.Header())
	}

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Fatalf("expected empty 304, got %d %q", w.Code, w.Body.String())
	}
}
