package folio

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/eringen/folio/editor"
)

const projectColumns = `p.id, p.title, p.slug, p.description, p.content, p.tech_stack, p.tags,
	p.repo_url, p.live_url, p.featured, p.status, p.views, p.thumbnail_id,
	COALESCE(i.path, '') AS thumbnail, p.published_at, p.created_at, p.updated_at, p.deleted_at`

func selectProjects() sq.SelectBuilder {
	return sq.Select(projectColumns).
		From("projects p").
		LeftJoin("images i ON i.id = p.thumbnail_id")
}

// ProjectFilter selects projects for listing.
type ProjectFilter struct {
	Status   Status
	Featured bool
	Tag      string
	Query    string
	Page     int
	Limit    int
}

func (f ProjectFilter) where() sq.And {
	w := sq.And{sq.Expr("p.deleted_at IS NULL")}
	if f.Status != "" {
		w = append(w, sq.Eq{"p.status": f.Status})
	}
	if f.Featured {
		w = append(w, sq.Eq{"p.featured": true})
	}
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		w = append(w, sq.Expr(`(EXISTS (SELECT 1 FROM json_each(p.tags) t WHERE t.value = ?)
			OR EXISTS (SELECT 1 FROM json_each(p.tech_stack) t WHERE lower(t.value) = ?))`, tag, tag))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + q + "%"
		w = append(w, sq.Or{
			sq.Like{"p.title": like},
			sq.Like{"p.description": like},
		})
	}
	return w
}

// ListProjects returns one page of projects. Featured projects come first.
func (s *Store) ListProjects(ctx context.Context, f ProjectFilter) (page Page[Project], err error) {
	ctx, span := s.startSpan(ctx, "ListProjects")
	defer func() { endSpan(span, err) }()

	pageNo, limit, offset := pageBounds(f.Page, f.Limit)
	where := f.where()

	total, err := s.count(ctx, sq.Select("COUNT(*)").From("projects p").Where(where))
	if err != nil {
		return page, fmt.Errorf("count projects: %w", err)
	}
	items := []Project{}
	err = s.selectAll(ctx, s.db, &items, selectProjects().
		Where(where).
		OrderBy("p.featured DESC", "p.published_at DESC", "p.updated_at DESC", "p.id DESC").
		Limit(uint64(limit)).
		Offset(offset))
	if err != nil {
		return page, fmt.Errorf("list projects: %w", err)
	}
	return Page[Project]{Items: items, Total: total, Page: pageNo, Limit: limit}, nil
}

// ListPublishedProjects returns every published project for the home page
// and the sitemap.
func (s *Store) ListPublishedProjects(ctx context.Context) (projects []Project, err error) {
	ctx, span := s.startSpan(ctx, "ListPublishedProjects")
	defer func() { endSpan(span, err) }()

	projects = []Project{}
	err = s.selectAll(ctx, s.db, &projects, selectProjects().
		Where(sq.Eq{"p.status": StatusPublished, "p.deleted_at": nil}).
		OrderBy("p.featured DESC", "p.published_at DESC", "p.id DESC"))
	return projects, err
}

// GetProjectBySlug returns a non-deleted project, optionally published only.
func (s *Store) GetProjectBySlug(ctx context.Context, slug string, publishedOnly bool) (project Project, err error) {
	ctx, span := s.startSpan(ctx, "GetProjectBySlug")
	defer func() { endSpan(span, err) }()

	where := sq.Eq{"p.slug": slug, "p.deleted_at": nil}
	if publishedOnly {
		where["p.status"] = StatusPublished
	}
	err = s.selectOne(ctx, s.db, &project, selectProjects().Where(where))
	return project, err
}

// GetProject returns a non-deleted project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (project Project, err error) {
	ctx, span := s.startSpan(ctx, "GetProject")
	defer func() { endSpan(span, err) }()

	err = s.getProject(ctx, s.db, id, &project)
	return project, err
}

func (s *Store) getProject(ctx context.Context, q sqlx.QueryerContext, id int64, project *Project) error {
	return s.selectOne(ctx, q, project, selectProjects().Where(sq.Eq{"p.id": id, "p.deleted_at": nil}))
}

// ProjectSlugExists reports whether a non-deleted project other than
// excludeID uses slug.
func (s *Store) ProjectSlugExists(ctx context.Context, slug string, excludeID int64) (exists bool, err error) {
	ctx, span := s.startSpan(ctx, "ProjectSlugExists")
	defer func() { endSpan(span, err) }()

	n, err := s.count(ctx, sq.Select("COUNT(*)").From("projects").
		Where(sq.Eq{"slug": slug, "deleted_at": nil}).
		Where(sq.NotEq{"id": excludeID}))
	return n > 0, err
}

// IncrementProjectViews bumps the view counter of a published project.
func (s *Store) IncrementProjectViews(ctx context.Context, slug string) (err error) {
	ctx, span := s.startSpan(ctx, "IncrementProjectViews")
	defer func() { endSpan(span, err) }()

	_, err = s.db.ExecContext(ctx, `UPDATE projects SET views = views + 1
		WHERE slug = ? AND status = 'published' AND deleted_at IS NULL`, slug)
	return err
}

// ProjectInput carries the fields of a project create or partial update.
type ProjectInput struct {
	Title       *string   `json:"title,omitempty"`
	Slug        *string   `json:"slug,omitempty"`
	Description *string   `json:"description,omitempty"`
	Content     *string   `json:"content,omitempty"`
	TechStack   *[]string `json:"tech_stack,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	RepoURL     *string   `json:"repo_url,omitempty"`
	LiveURL     *string   `json:"live_url,omitempty"`
	Featured    *bool     `json:"featured,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	ThumbnailID *string   `json:"thumbnail_id,omitempty"`
}

func (in ProjectInput) validate(creating bool) error {
	if creating && (in.Title == nil || strings.TrimSpace(*in.Title) == "") {
		return invalid("title", "is required")
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return invalid("title", "cannot be empty")
	}
	if in.Status != nil && !in.Status.Valid() {
		return invalid("status", "must be draft, published or archived")
	}
	for field, u := range map[string]*string{"repo_url": in.RepoURL, "live_url": in.LiveURL} {
		if u != nil && *u != "" && !isHTTPURL(*u) {
			return invalid(field, "must be an http(s) URL")
		}
	}
	return nil
}

func cleanList(in *[]string) StringList {
	if in == nil {
		return StringList{}
	}
	out := make(StringList, 0, len(*in))
	for _, v := range *in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// CreateProject inserts a project.
func (s *Store) CreateProject(ctx context.Context, in ProjectInput) (project Project, err error) {
	ctx, span := s.startSpan(ctx, "CreateProject")
	defer func() { endSpan(span, err) }()

	if err := in.validate(true); err != nil {
		return project, err
	}
	title := strings.TrimSpace(*in.Title)
	slug := editor.Slugify(title)
	if in.Slug != nil && strings.TrimSpace(*in.Slug) != "" {
		slug = editor.Slugify(*in.Slug)
	}
	if slug == "" {
		return project, invalid("slug", "is required")
	}
	status := StatusDraft
	if in.Status != nil {
		status = *in.Status
	}
	var tags StringList
	if in.Tags != nil {
		tags = NormalizeTags(*in.Tags)
	}
	featured := in.Featured != nil && *in.Featured
	now := s.now()

	res, err := execBuilder(ctx, s.db, sq.Insert("projects").SetMap(map[string]any{
		"title":        title,
		"slug":         slug,
		"description":  deref(in.Description),
		"content":      deref(in.Content),
		"tech_stack":   cleanList(in.TechStack),
		"tags":         tags,
		"repo_url":     deref(in.RepoURL),
		"live_url":     deref(in.LiveURL),
		"featured":     featured,
		"status":       status,
		"thumbnail_id": nullable(in.ThumbnailID),
		"published_at": publishedAtFor(status, nil, now),
		"created_at":   now,
		"updated_at":   now,
	}))
	if err != nil {
		return project, s.projectWriteError(err, slug)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return project, err
	}
	err = s.getProject(ctx, s.db, id, &project)
	return project, err
}

// UpdateProject applies the supplied fields of in. The slug is immutable.
func (s *Store) UpdateProject(ctx context.Context, id int64, in ProjectInput) (project Project, err error) {
	ctx, span := s.startSpan(ctx, "UpdateProject")
	defer func() { endSpan(span, err) }()

	if err := in.validate(false); err != nil {
		return project, err
	}
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		var current Project
		if err := s.getProject(ctx, tx, id, &current); err != nil {
			return err
		}
		if in.Slug != nil && editor.Slugify(*in.Slug) != current.Slug {
			return ErrSlugImmutable
		}
		now := s.now()
		b := sq.Update("projects").Set("updated_at", now).Where(sq.Eq{"id": id})
		if in.Title != nil {
			b = b.Set("title", strings.TrimSpace(*in.Title))
		}
		if in.Description != nil {
			b = b.Set("description", *in.Description)
		}
		if in.Content != nil {
			b = b.Set("content", *in.Content)
		}
		if in.TechStack != nil {
			b = b.Set("tech_stack", cleanList(in.TechStack))
		}
		if in.Tags != nil {
			b = b.Set("tags", NormalizeTags(*in.Tags))
		}
		if in.RepoURL != nil {
			b = b.Set("repo_url", *in.RepoURL)
		}
		if in.LiveURL != nil {
			b = b.Set("live_url", *in.LiveURL)
		}
		if in.Featured != nil {
			b = b.Set("featured", *in.Featured)
		}
		if in.ThumbnailID != nil {
			b = b.Set("thumbnail_id", nullable(in.ThumbnailID))
		}
		if in.Status != nil {
			b = b.Set("status", *in.Status).
				Set("published_at", publishedAtFor(*in.Status, current.PublishedAt, now))
		}
		if _, err := s.exec(ctx, tx, b); err != nil {
			return s.projectWriteError(err, current.Slug)
		}
		return s.getProject(ctx, tx, id, &project)
	})
	return project, err
}

// ArchiveProject soft-deletes a project and marks it archived.
func (s *Store) ArchiveProject(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "ArchiveProject")
	defer func() { endSpan(span, err) }()

	now := s.now()
	n, err := s.exec(ctx, s.db, sq.Update("projects").
		Set("status", StatusArchived).
		Set("deleted_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": id, "deleted_at": nil}))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) projectWriteError(err error, slug string) error {
	switch {
	case isUniqueViolation(err):
		return conflictf("project slug %q", slug)
	case isForeignKeyViolation(err):
		return invalid("thumbnail_id", "references an unknown image")
	}
	return err
}
