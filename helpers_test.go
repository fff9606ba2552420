package folio

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "https://example.com", BuildURL("https://example.com"))
	assert.Equal(t, "https://example.com/blog/hello/", BuildURL("https://example.com", "blog", "hello"))
	assert.Equal(t, "https://example.com/sub/projects/x/", BuildURL("https://example.com/sub/", "projects", "x"))
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://example.com/public/uploads/a.jpg", AbsoluteURL("https://example.com", "/public/uploads/a.jpg"))
	assert.Equal(t, "https://cdn.example.net/a.jpg", AbsoluteURL("https://example.com", "https://cdn.example.net/a.jpg"))
	assert.Empty(t, AbsoluteURL("https://example.com", ""))
}

func TestIsHTTPURL(t *testing.T) {
	assert.True(t, isHTTPURL("https://github.com/eringen"))
	assert.True(t, isHTTPURL("http://localhost:3000"))
	assert.False(t, isHTTPURL("ftp://example.com"))
	assert.False(t, isHTTPURL("/relative"))
	assert.False(t, isHTTPURL("javascript:alert(1)"))
}

func TestJsonLD(t *testing.T) {
	site := Site{Name: "Folio", URL: "https://example.com", Author: "Ada"}
	post := Post{Title: "</script><b>", Slug: "x", Tags: StringList{"go"}, Thumbnail: "/public/uploads/t.jpg"}

	ld := BlogPostingJsonLD(post, site)
	assert.NotContains(t, ld, "</script>", "json.Marshal escapes HTML")
	assert.Contains(t, ld, `"keywords":"go"`)
	assert.Contains(t, ld, `"image":"https://example.com/public/uploads/t.jpg"`)

	assert.Contains(t, WebsiteJsonLD(site), `"@type":"Person"`)
	assert.Contains(t, ProjectJsonLD(Project{Title: "P", Slug: "p", RepoURL: "https://github.com/x/p"}, site), `"codeRepository":"https://github.com/x/p"`)
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{invalid("title", "is required"), http.StatusBadRequest, "title is required"},
		{ErrNotFound, http.StatusNotFound, "not found"},
		{fmt.Errorf("load: %w", ErrNotFound), http.StatusNotFound, "not found"},
		{ErrSlugImmutable, http.StatusConflict, "slug cannot be changed once saved"},
		{conflictf("post slug %q", "x"), http.StatusConflict, `already exists: post slug "x"`},
		{echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests, "slow down"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		code, msg := httpStatus(tc.err)
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.Equal(t, tc.msg, msg)
	}
}

func TestIsCrawler(t *testing.T) {
	cases := map[string]bool{
		"":                                  true,
		"Googlebot/2.1":                     true,
		"curl/8.5.0":                        true,
		"Go-http-client/1.1":                true,
		"facebookexternalhit/1.1":           true,
		"Mozilla/5.0 Firefox/128.0":         false,
		"Mozilla/5.0 (iPhone) Safari/604.1": false,
	}
	for ua, want := range cases {
		assert.Equal(t, want, isCrawler(ua), ua)
	}
}
