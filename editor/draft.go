package editor

import (
	"errors"
	"time"
)

// ErrSlugLocked is returned when the slug of an already saved record is edited.
var ErrSlugLocked = errors.New("slug cannot be changed once saved")

// NewKey is the cache key used for records that have never been saved.
const NewKey = "new"

// Draft is the in-progress state of a post or project in the editor.
type Draft struct {
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Content     string            `json:"content"`
	Description string            `json:"description"`
	Tags        []string          `json:"tags"`
	Meta        map[string]string `json:"meta,omitempty"`
	IsDraft     bool              `json:"is_draft"`
	IsPublished bool              `json:"is_published"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// IsNew reports whether the record has never been saved as a draft or published.
func (d *Draft) IsNew() bool {
	return !d.IsDraft && !d.IsPublished
}

// SetTitle updates the title. While the record is new the slug follows the
// title; once saved the slug is left alone so existing links keep working.
func (d *Draft) SetTitle(title string) {
	d.Title = title
	if d.IsNew() {
		d.Slug = Slugify(title)
	}
}

// SetSlug overrides the derived slug. The value is normalised with Slugify.
func (d *Draft) SetSlug(slug string) error {
	if !d.IsNew() {
		return ErrSlugLocked
	}
	d.Slug = Slugify(slug)
	return nil
}

// MarkSaved records a successful save. published selects between the draft
// and published flags.
func (d *Draft) MarkSaved(published bool) {
	if published {
		d.IsPublished = true
		d.IsDraft = false
	} else {
		d.IsDraft = true
	}
}

// CacheKey returns the key the draft is cached under: its slug once it has
// one, NewKey otherwise.
func (d *Draft) CacheKey() string {
	if d.IsNew() || d.Slug == "" {
		return NewKey
	}
	return d.Slug
}
