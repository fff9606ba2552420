package folio

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status is the publication state of a post or project.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// StringList is a []string stored as a JSON array in a TEXT column.
type StringList []string

// Scan implements sql.Scanner.
func (l *StringList) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("folio: cannot scan %T into StringList", value)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("folio: decode string list: %w", err)
	}
	*l = out
	return nil
}

// Value implements driver.Valuer. The array is stored as text so SQLite's
// json_each can read it.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// NormalizeTags lowercases, trims and de-duplicates tags, keeping order.
func NormalizeTags(tags []string) StringList {
	out := make(StringList, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// CategoryRef is the short form of a category embedded in a post.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CategoryRefs scans the JSON array produced by json_group_array.
type CategoryRefs []CategoryRef

// Scan implements sql.Scanner.
func (r *CategoryRefs) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*r = CategoryRefs{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("folio: cannot scan %T into CategoryRefs", value)
	}
	var out CategoryRefs
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("folio: decode categories: %w", err)
	}
	if out == nil {
		out = CategoryRefs{}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	*r = out
	return nil
}

// Post is a blog post.
type Post struct {
	ID          int64        `db:"id" json:"id"`
	Title       string       `db:"title" json:"title"`
	Slug        string       `db:"slug" json:"slug"`
	Description string       `db:"description" json:"description"`
	Content     string       `db:"content" json:"content"`
	Tags        StringList   `db:"tags" json:"tags"`
	Status      Status       `db:"status" json:"status"`
	Views       int64        `db:"views" json:"views"`
	Likes       int64        `db:"likes" json:"likes"`
	ThumbnailID *string      `db:"thumbnail_id" json:"thumbnail_id,omitempty"`
	Thumbnail   string       `db:"thumbnail" json:"thumbnail,omitempty"`
	Categories  CategoryRefs `db:"categories" json:"categories"`
	PublishedAt *time.Time   `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time   `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Link returns the guest-facing path of the post.
func (p Post) Link() string {
	return "/blog/" + p.Slug + "/"
}

// Date returns the publication date as YYYY-MM-DD, falling back to the
// creation date for drafts.
func (p Post) Date() string {
	if p.PublishedAt != nil {
		return p.PublishedAt.Format("2006-01-02")
	}
	return p.CreatedAt.Format("2006-01-02")
}

// Project is a portfolio entry.
type Project struct {
	ID          int64      `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Slug        string     `db:"slug" json:"slug"`
	Description string     `db:"description" json:"description"`
	Content     string     `db:"content" json:"content"`
	TechStack   StringList `db:"tech_stack" json:"tech_stack"`
	Tags        StringList `db:"tags" json:"tags"`
	RepoURL     string     `db:"repo_url" json:"repo_url"`
	LiveURL     string     `db:"live_url" json:"live_url"`
	Featured    bool       `db:"featured" json:"featured"`
	Status      Status     `db:"status" json:"status"`
	Views       int64      `db:"views" json:"views"`
	ThumbnailID *string    `db:"thumbnail_id" json:"thumbnail_id,omitempty"`
	Thumbnail   string     `db:"thumbnail" json:"thumbnail,omitempty"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Link returns the guest-facing path of the project.
func (p Project) Link() string {
	return "/projects/" + p.Slug + "/"
}

// Category groups posts.
type Category struct {
	ID        int64      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Slug      string     `db:"slug" json:"slug"`
	PostCount int        `db:"post_count" json:"post_count"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Image is an uploaded asset. Path is the location on the image host.
type Image struct {
	ID        string    `db:"id" json:"id"`
	Path      string    `db:"path" json:"path"`
	Alt       string    `db:"alt" json:"alt"`
	Size      int64     `db:"size" json:"size"`
	Type      string    `db:"type" json:"type"`
	Width     int       `db:"width" json:"width"`
	Height    int       `db:"height" json:"height"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Subscriber is a newsletter subscriber. A set DeletedAt means unsubscribed.
type Subscriber struct {
	ID        int64      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Email     string     `db:"email" json:"email"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"unsubscribed_at,omitempty"`
}

// ContactMessage is a message sent through the contact form.
type ContactMessage struct {
	ID        int64      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Email     string     `db:"email" json:"email"`
	Subject   string     `db:"subject" json:"subject"`
	Content   string     `db:"content" json:"content"`
	IP        string     `db:"ip" json:"-"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Admin is a user allowed into the admin API.
type Admin struct {
	ID           int64      `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"-"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	PostsPublished   int    `db:"posts_published" json:"posts_published"`
	PostsDraft       int    `db:"posts_draft" json:"posts_draft"`
	PostsArchived    int    `db:"posts_archived" json:"posts_archived"`
	Projects         int    `db:"projects" json:"projects"`
	ProjectsFeatured int    `db:"projects_featured" json:"projects_featured"`
	Categories       int    `db:"categories" json:"categories"`
	Subscribers      int    `db:"subscribers" json:"subscribers"`
	Messages         int    `db:"messages" json:"messages"`
	MessagesUnread   int    `db:"messages_unread" json:"messages_unread"`
	TotalViews       int64  `db:"total_views" json:"total_views"`
	TotalLikes       int64  `db:"total_likes" json:"total_likes"`
	TopPosts         []Post `db:"-" json:"top_posts"`
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}
