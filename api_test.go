package folio

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const browserUA = "Mozilla/5.0 (X11; Linux x86_64) Firefox/128.0"

func newTestApp(t *testing.T, opts ...Option) (*App, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	a := New(Config{
		Site:          Site{Name: "Test", URL: "https://example.com"},
		DatabasePath:  filepath.Join(t.TempDir(), "folio.db"),
		JWTSecret:     "test-jwt-secret",
		SessionSecret: "test-session-secret",
	}, ViewFuncs{}, append([]Option{WithStaticDir(t.TempDir()), WithClock(clock.Now)}, opts...)...)
	require.NoError(t, a.Init())
	t.Cleanup(func() { a.Close() })
	return a, clock
}

type request struct {
	method  string
	path    string
	body    any
	token   string
	ua      string
	cookies []*http.Cookie
}

func serve(t *testing.T, a *App, r request) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if r.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(r.body))
	}
	req := httptest.NewRequest(r.method, r.path, &body)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.ua != "" {
		req.Header.Set("User-Agent", r.ua)
	}
	for _, c := range r.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

// setupAdmin creates the first admin through the API and returns its token.
func setupAdmin(t *testing.T, a *App) string {
	t.Helper()
	rec := serve(t, a, request{method: http.MethodPost, path: "/api/auth/setup", body: map[string]string{
		"username": "ada", "email": "ada@example.com", "password": "correct horse",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[tokenResponse](t, rec).Token
}

func TestAdminRoutesRequireToken(t *testing.T) {
	a, _ := newTestApp(t)

	rec := serve(t, a, request{method: http.MethodGet, path: "/api/admin/stats"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing bearer token", errorMessage(t, rec))

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/posts", body: map[string]string{"title": "x"}, token: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, ErrInvalidToken.Error(), errorMessage(t, rec))

	other := NewAuthenticator("another-secret", time.Hour)
	forged, _, err := other.Issue(Admin{ID: 1, Username: "ada"})
	require.NoError(t, err)
	rec = serve(t, a, request{method: http.MethodGet, path: "/api/auth/me", token: forged})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenExpires(t *testing.T) {
	a, clock := newTestApp(t)
	token := setupAdmin(t, a)

	rec := serve(t, a, request{method: http.MethodGet, path: "/api/auth/me", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada", decode[Admin](t, rec).Username)

	clock.Advance(25 * time.Hour)
	rec = serve(t, a, request{method: http.MethodGet, path: "/api/auth/me", token: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenForDeletedAdminIsRejected(t *testing.T) {
	a, _ := newTestApp(t)
	token := setupAdmin(t, a)

	_, err := a.Store.db.Exec("UPDATE admins SET deleted_at = CURRENT_TIMESTAMP")
	require.NoError(t, err)
	rec := serve(t, a, request{method: http.MethodGet, path: "/api/auth/me", token: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetupAndLogin(t *testing.T) {
	a, _ := newTestApp(t)

	rec := serve(t, a, request{method: http.MethodGet, path: "/api/auth/status"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[map[string]bool](t, rec)["has_admin"])

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/auth/setup", body: map[string]string{
		"username": "ada", "email": "ada@example.com", "password": "short",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	setupAdmin(t, a)

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/auth/setup", body: map[string]string{
		"username": "eve", "email": "eve@example.com", "password": "correct horse",
	}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"email": "ada@example.com", "password": "wrong password",
	}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"username": "ada", "password": "correct horse",
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[tokenResponse](t, rec)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada", resp.User.Username)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestLoginUnknownAdminLooksLikeWrongPassword(t *testing.T) {
	a, _ := newTestApp(t)
	setupAdmin(t, a)

	wrong := serve(t, a, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"login": "ada", "password": "wrong password",
	}})
	unknown := serve(t, a, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"login": "nobody", "password": "correct horse",
	}})
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, errorMessage(t, wrong), errorMessage(t, unknown))
}

func TestLoginIsRateLimited(t *testing.T) {
	a, _ := newTestApp(t)
	setupAdmin(t, a)

	bad := request{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"login": "ada", "password": "wrong password",
	}}
	for i := 0; i < a.Config.LoginAttempts; i++ {
		require.Equal(t, http.StatusUnauthorized, serve(t, a, bad).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(t, a, bad).Code)
}

func TestPostLifecycle(t *testing.T) {
	a, _ := newTestApp(t)
	token := setupAdmin(t, a)

	rec := serve(t, a, request{method: http.MethodPost, path: "/api/posts", token: token, body: map[string]any{
		"title": "Hello, World! 2024", "content": "# Hi\n\nText", "tags": []string{"Go"},
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode[Post](t, rec)
	assert.Equal(t, "hello-world-2024", post.Slug)
	assert.Equal(t, StatusDraft, post.Status)

	rec = serve(t, a, request{method: http.MethodGet, path: "/api/posts/hello-world-2024"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "drafts are not public")

	rec = serve(t, a, request{method: http.MethodGet, path: "/api/admin/posts/check-slug?slug=Hello+World+2024", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, slugCheck{Slug: "hello-world-2024", Exists: true}, decode[slugCheck](t, rec))

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/posts", token: token, body: map[string]any{
		"title": "Hello world 2024",
	}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	path := "/api/posts/" + jsonInt(post.ID)
	rec = serve(t, a, request{method: http.MethodPut, path: path, token: token, body: map[string]any{"slug": "new-slug"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slug cannot be changed once saved", errorMessage(t, rec))

	rec = serve(t, a, request{method: http.MethodPut, path: path, token: token, body: map[string]any{"status": "published"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	post = decode[Post](t, rec)
	assert.Equal(t, StatusPublished, post.Status)
	require.NotNil(t, post.PublishedAt)
	assert.Equal(t, "# Hi\n\nText", post.Content, "fields not sent are kept")

	rec = serve(t, a, request{method: http.MethodGet, path: "/api/posts?tag=go"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[Page[Post]](t, rec).Total)

	rec = serve(t, a, request{method: http.MethodDelete, path: path, token: token})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(t, a, request{method: http.MethodGet, path: "/api/posts/hello-world-2024"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, a, request{method: http.MethodPut, path: "/api/posts/abc", token: token, body: map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func jsonInt(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestPostViewsSkipCrawlers(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	_, err := a.Store.CreatePost(ctx, PostInput{Title: ptr("Viewed"), Status: ptr(StatusPublished)})
	require.NoError(t, err)

	rec := serve(t, a, request{method: http.MethodGet, path: "/api/posts/viewed", ua: browserUA})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[Post](t, rec).Views)

	rec = serve(t, a, request{method: http.MethodGet, path: "/api/posts/viewed", ua: "Googlebot/2.1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[Post](t, rec).Views)
}

func TestLikeToggle(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := a.Store.CreatePost(context.Background(), PostInput{Title: ptr("Likeable"), Status: ptr(StatusPublished)})
	require.NoError(t, err)

	type likeResponse struct {
		Liked bool  `json:"liked"`
		Likes int64 `json:"likes"`
	}

	rec := serve(t, a, request{method: http.MethodPost, path: "/api/posts/likeable/like"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, likeResponse{Liked: true, Likes: 1}, decode[likeResponse](t, rec))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/posts/likeable/like", cookies: cookies})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, likeResponse{Liked: false, Likes: 0}, decode[likeResponse](t, rec))

	// A different visitor counts separately.
	rec = serve(t, a, request{method: http.MethodPost, path: "/api/posts/likeable/like"})
	assert.Equal(t, likeResponse{Liked: true, Likes: 1}, decode[likeResponse](t, rec))

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/posts/missing/like"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContactRateLimit(t *testing.T) {
	a, clock := newTestApp(t)
	msg := map[string]string{"name": "Ada", "email": "ada@example.com", "content": "Hello"}

	for i := 0; i < DefaultContactLimit; i++ {
		rec := serve(t, a, request{method: http.MethodPost, path: "/api/contact", body: msg})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec := serve(t, a, request{method: http.MethodPost, path: "/api/contact", body: msg})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, errorMessage(t, rec))

	clock.Advance(DefaultContactWindow)
	rec = serve(t, a, request{method: http.MethodPost, path: "/api/contact", body: msg})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/contact", body: map[string]string{"name": "Ada"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInboxAndSubscribers(t *testing.T) {
	a, _ := newTestApp(t)
	token := setupAdmin(t, a)

	rec := serve(t, a, request{method: http.MethodPost, path: "/api/subscribers", body: map[string]string{"email": "reader@example.com"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = serve(t, a, request{method: http.MethodPost, path: "/api/subscribers", body: map[string]string{"email": "reader@example.com"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/subscribers/broadcast", token: token, body: map[string]string{"subject": "News", "content": "Body"}})
	require.Equal(t, http.StatusAccepted, rec.Code)
	b := decode[broadcastResponse](t, rec)
	assert.Equal(t, "queued", b.Status)
	assert.Equal(t, 1, b.Recipients)

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/subscribers/broadcast", token: token, body: map[string]string{"subject": "News"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "content is required", errorMessage(t, rec))
	rec = serve(t, a, request{method: http.MethodPost, path: "/api/subscribers/broadcast", token: token, body: map[string]string{"subject": "   ", "content": "Body"}})
	assert.Equal(t, "subject is required", errorMessage(t, rec))

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/subscribers", body: map[string]string{"email": "not-an-address"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email is not a valid address", errorMessage(t, rec))

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/contact", body: map[string]string{"name": "Ada", "email": "ada@example.com", "content": "Hi"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := jsonInt(int64(decode[map[string]any](t, rec)["id"].(float64)))

	rec = serve(t, a, request{method: http.MethodGet, path: "/api/contact?unread=true", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[Page[ContactMessage]](t, rec).Total)

	rec = serve(t, a, request{method: http.MethodGet, path: "/api/contact/" + id, token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode[ContactMessage](t, rec).ReadAt)

	rec = serve(t, a, request{method: http.MethodGet, path: "/api/admin/stats", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[Stats](t, rec)
	assert.Equal(t, 1, stats.Subscribers)
	assert.Equal(t, 0, stats.MessagesUnread)
}

func TestDraftsAreScopedToLogin(t *testing.T) {
	a, _ := newTestApp(t)
	token := setupAdmin(t, a)

	draft := map[string]any{"title": "Work in progress", "slug": "work-in-progress", "content": "..."}
	rec := serve(t, a, request{method: http.MethodPut, path: "/api/admin/drafts/posts/new", token: token, body: draft})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(t, a, request{method: http.MethodGet, path: "/api/admin/drafts/posts/new", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Work in progress", decode[map[string]any](t, rec)["title"])

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{"login": "ada", "password": "correct horse"}})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[tokenResponse](t, rec).Token
	rec = serve(t, a, request{method: http.MethodGet, path: "/api/admin/drafts/posts/new", token: second})
	assert.Equal(t, http.StatusNotFound, rec.Code, "another login has its own drafts")

	rec = serve(t, a, request{method: http.MethodGet, path: "/api/admin/drafts/pages/new", token: token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/posts", token: token, body: map[string]any{"title": "Work in progress"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = serve(t, a, request{method: http.MethodGet, path: "/api/admin/drafts/posts/new", token: token})
	assert.Equal(t, http.StatusNotFound, rec.Code, "saving clears the new-post draft")
}

func TestLogoutClearsDrafts(t *testing.T) {
	a, _ := newTestApp(t)
	token := setupAdmin(t, a)

	draft := map[string]any{"title": "Unsaved", "slug": "unsaved"}
	rec := serve(t, a, request{method: http.MethodPut, path: "/api/admin/drafts/posts/new", token: token, body: draft})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/auth/logout"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, a, request{method: http.MethodPost, path: "/api/auth/logout", token: token})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, a.Drafts.Len())

	rec = serve(t, a, request{method: http.MethodGet, path: "/api/admin/drafts/posts/new", token: token})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func uploadImage(t *testing.T, a *App, token, name string, data []byte, alt string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("alt", alt))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func TestImageUploadAndRedirect(t *testing.T) {
	a, _ := newTestApp(t)
	token := setupAdmin(t, a)

	img := image.NewRGBA(image.Rect(0, 0, 2000, 1000))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var raw bytes.Buffer
	require.NoError(t, png.Encode(&raw, img))

	rec := uploadImage(t, a, token, "wide.png", raw.Bytes(), "A wide image")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	uploaded := decode[Image](t, rec)
	assert.Equal(t, maxImageWidth, uploaded.Width)
	assert.Equal(t, 800, uploaded.Height)
	assert.Equal(t, "image/png", uploaded.Type)
	assert.Equal(t, "A wide image", uploaded.Alt)
	assert.True(t, strings.HasPrefix(uploaded.Path, "/public/uploads/"))

	rec = serve(t, a, request{method: http.MethodGet, path: "/api/images/" + uploaded.ID})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, uploaded.Path, rec.Header().Get("Location"))

	rec = serve(t, a, request{method: http.MethodDelete, path: "/api/images/" + uploaded.ID, token: token})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(t, a, request{method: http.MethodGet, path: "/api/images/" + uploaded.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGuestPages(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	_, err := a.Store.CreatePost(ctx, PostInput{Title: ptr("Public post"), Status: ptr(StatusPublished), Content: ptr("**bold**")})
	require.NoError(t, err)
	_, err = a.Store.CreateProject(ctx, ProjectInput{Title: ptr("Public project"), Status: ptr(StatusPublished)})
	require.NoError(t, err)

	rec := serve(t, a, request{method: http.MethodGet, path: "/"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/blog/public-post/")
	assert.Contains(t, rec.Body.String(), "/projects/public-project/")

	rec = serve(t, a, request{method: http.MethodGet, path: "/blog/public-post/"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<strong>bold</strong>")

	rec = serve(t, a, request{method: http.MethodGet, path: "/blog/public-post"})
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)

	rec = serve(t, a, request{method: http.MethodGet, path: "/blog/missing/"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not found")

	rec = serve(t, a, request{method: http.MethodGet, path: "/api/nothing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", strings.Split(rec.Header().Get("Content-Type"), ";")[0])

	rec = serve(t, a, request{method: http.MethodGet, path: "/feed.xml"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://example.com/blog/public-post/")

	rec = serve(t, a, request{method: http.MethodGet, path: "/sitemap.xml"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://example.com/projects/public-project/")

	rec = serve(t, a, request{method: http.MethodGet, path: "/robots.txt"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sitemap: https://example.com/sitemap.xml")
}
