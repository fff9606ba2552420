// Package client talks to the folio admin API. The publish command uses it
// to check slugs and create posts from markdown files.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eringen/folio"
)

// ErrUnauthorized is returned when the API rejects the token.
var ErrUnauthorized = errors.New("client: unauthorized")

// APIError is a non-2xx reply from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("folio api: %d %s", e.Status, e.Message)
}

// Client is an authenticated folio API client.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// New returns a Client for the API rooted at baseURL (the site URL; the
// /api prefix is added per request).
func New(baseURL, token string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("client: invalid base URL %q", baseURL)
	}
	return &Client{
		base:  u,
		token: token,
		http:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// SlugExists reports whether a live post already uses slug. It satisfies
// editor.SlugLookup.
func (c *Client) SlugExists(ctx context.Context, slug string) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	q := url.Values{"slug": {slug}}
	if err := c.do(ctx, http.MethodGet, "/api/admin/posts/check-slug?"+q.Encode(), nil, &out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// CreatePost creates a post and returns the stored row.
func (c *Client) CreatePost(ctx context.Context, in folio.PostInput) (folio.Post, error) {
	var post folio.Post
	err := c.do(ctx, http.MethodPost, "/api/posts", in, &post)
	return post, err
}

// Me returns the admin the token belongs to.
func (c *Client) Me(ctx context.Context) (folio.Admin, error) {
	var admin folio.Admin
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &admin)
	return admin, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, r)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, path, err)
	}
	return nil
}
