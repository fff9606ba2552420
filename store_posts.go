package folio

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/eringen/folio/editor"
)

const postColumns = `p.id, p.title, p.slug, p.description, p.content, p.tags, p.status,
	p.views, p.likes, p.thumbnail_id, COALESCE(i.path, '') AS thumbnail,
	p.published_at, p.created_at, p.updated_at, p.deleted_at,
	(SELECT json_group_array(json_object('id', c.id, 'name', c.name, 'slug', c.slug))
	   FROM post_categories pc JOIN categories c ON c.id = pc.category_id
	  WHERE pc.post_id = p.id AND c.deleted_at IS NULL) AS categories`

// relatedScore weighs a shared category three times a shared tag. The
// arguments are the source post id and its tags as a JSON array.
const relatedScore = `3 * (SELECT COUNT(*) FROM post_categories a
	JOIN post_categories b ON b.category_id = a.category_id
	JOIN categories c ON c.id = a.category_id AND c.deleted_at IS NULL
	WHERE a.post_id = ? AND b.post_id = p.id)
	+ (SELECT COUNT(*) FROM json_each(p.tags) t
	WHERE t.value IN (SELECT value FROM json_each(?)))`

// Related post limits.
const (
	DefaultRelatedLimit = 3
	MaxRelatedLimit     = 12
)

func selectPosts() sq.SelectBuilder {
	return sq.Select(postColumns).
		From("posts p").
		LeftJoin("images i ON i.id = p.thumbnail_id")
}

// PostFilter selects posts for listing. The zero value lists every
// non-deleted post.
type PostFilter struct {
	Status   Status
	Category string
	Tag      string
	Query    string
	Page     int
	Limit    int
}

func (f PostFilter) where() sq.And {
	w := sq.And{sq.Expr("p.deleted_at IS NULL")}
	if f.Status != "" {
		w = append(w, sq.Eq{"p.status": f.Status})
	}
	if f.Category != "" {
		w = append(w, sq.Expr(`EXISTS (SELECT 1 FROM post_categories pc
			JOIN categories c ON c.id = pc.category_id
			WHERE pc.post_id = p.id AND c.slug = ? AND c.deleted_at IS NULL)`, f.Category))
	}
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		w = append(w, sq.Expr("EXISTS (SELECT 1 FROM json_each(p.tags) t WHERE t.value = ?)", tag))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + q + "%"
		w = append(w, sq.Or{
			sq.Like{"p.title": like},
			sq.Like{"p.description": like},
			sq.Like{"p.content": like},
		})
	}
	return w
}

// ListPosts returns one page of posts matching f. Published listings are
// ordered by publication date, everything else by last update.
func (s *Store) ListPosts(ctx context.Context, f PostFilter) (page Page[Post], err error) {
	ctx, span := s.startSpan(ctx, "ListPosts")
	defer func() { endSpan(span, err) }()

	pageNo, limit, offset := pageBounds(f.Page, f.Limit)
	where := f.where()

	total, err := s.count(ctx, sq.Select("COUNT(*)").From("posts p").Where(where))
	if err != nil {
		return page, fmt.Errorf("count posts: %w", err)
	}
	b := selectPosts().Where(where).Limit(uint64(limit)).Offset(offset)
	if f.Status == StatusPublished {
		b = b.OrderBy("p.published_at DESC", "p.id DESC")
	} else {
		b = b.OrderBy("p.updated_at DESC", "p.id DESC")
	}
	items := []Post{}
	if err := s.selectAll(ctx, s.db, &items, b); err != nil {
		return page, fmt.Errorf("list posts: %w", err)
	}
	return Page[Post]{Items: items, Total: total, Page: pageNo, Limit: limit}, nil
}

// ListPublishedPosts returns every published post, newest first.
func (s *Store) ListPublishedPosts(ctx context.Context) (posts []Post, err error) {
	ctx, span := s.startSpan(ctx, "ListPublishedPosts")
	defer func() { endSpan(span, err) }()

	posts = []Post{}
	err = s.selectAll(ctx, s.db, &posts, selectPosts().
		Where(sq.Eq{"p.status": StatusPublished, "p.deleted_at": nil}).
		OrderBy("p.published_at DESC", "p.id DESC"))
	return posts, err
}

// ListTags returns the distinct tags of published posts.
func (s *Store) ListTags(ctx context.Context) (tags []string, err error) {
	ctx, span := s.startSpan(ctx, "ListTags")
	defer func() { endSpan(span, err) }()

	tags = []string{}
	err = s.db.SelectContext(ctx, &tags, `
		SELECT DISTINCT t.value FROM posts p, json_each(p.tags) t
		WHERE p.status = 'published' AND p.deleted_at IS NULL
		ORDER BY t.value`)
	return tags, err
}

// GetPostBySlug returns a non-deleted post. With publishedOnly set, drafts
// and archived posts are reported as ErrNotFound.
func (s *Store) GetPostBySlug(ctx context.Context, slug string, publishedOnly bool) (post Post, err error) {
	ctx, span := s.startSpan(ctx, "GetPostBySlug")
	defer func() { endSpan(span, err) }()

	where := sq.Eq{"p.slug": slug, "p.deleted_at": nil}
	if publishedOnly {
		where["p.status"] = StatusPublished
	}
	err = s.selectOne(ctx, s.db, &post, selectPosts().Where(where))
	return post, err
}

// GetPost returns a non-deleted post by id.
func (s *Store) GetPost(ctx context.Context, id int64) (post Post, err error) {
	ctx, span := s.startSpan(ctx, "GetPost")
	defer func() { endSpan(span, err) }()

	err = s.getPost(ctx, s.db, id, &post)
	return post, err
}

func (s *Store) getPost(ctx context.Context, q sqlx.QueryerContext, id int64, post *Post) error {
	return s.selectOne(ctx, q, post, selectPosts().Where(sq.Eq{"p.id": id, "p.deleted_at": nil}))
}

// PostSlugExists reports whether a non-deleted post other than excludeID
// uses slug.
func (s *Store) PostSlugExists(ctx context.Context, slug string, excludeID int64) (exists bool, err error) {
	ctx, span := s.startSpan(ctx, "PostSlugExists")
	defer func() { endSpan(span, err) }()

	n, err := s.count(ctx, sq.Select("COUNT(*)").From("posts").
		Where(sq.Eq{"slug": slug, "deleted_at": nil}).
		Where(sq.NotEq{"id": excludeID}))
	return n > 0, err
}

// PostInput carries the fields of a create or partial update. Nil fields
// are left unchanged on update.
type PostInput struct {
	Title       *string   `json:"title,omitempty"`
	Slug        *string   `json:"slug,omitempty"`
	Description *string   `json:"description,omitempty"`
	Content     *string   `json:"content,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	ThumbnailID *string   `json:"thumbnail_id,omitempty"`
	CategoryIDs *[]int64  `json:"category_ids,omitempty"`
}

func (in PostInput) validate(creating bool) error {
	if creating && (in.Title == nil || strings.TrimSpace(*in.Title) == "") {
		return invalid("title", "is required")
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return invalid("title", "cannot be empty")
	}
	if in.Status != nil && !in.Status.Valid() {
		return invalid("status", "must be draft, published or archived")
	}
	return nil
}

// CreatePost inserts a post and its category links in one transaction. The
// slug defaults to the slugified title.
func (s *Store) CreatePost(ctx context.Context, in PostInput) (post Post, err error) {
	ctx, span := s.startSpan(ctx, "CreatePost")
	defer func() { endSpan(span, err) }()

	if err := in.validate(true); err != nil {
		return post, err
	}
	title := strings.TrimSpace(*in.Title)
	slug := editor.Slugify(title)
	if in.Slug != nil && strings.TrimSpace(*in.Slug) != "" {
		slug = editor.Slugify(*in.Slug)
	}
	if slug == "" {
		return post, invalid("slug", "is required")
	}
	status := StatusDraft
	if in.Status != nil {
		status = *in.Status
	}
	now := s.now()
	var tags StringList
	if in.Tags != nil {
		tags = NormalizeTags(*in.Tags)
	}

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := execBuilder(ctx, tx, sq.Insert("posts").SetMap(map[string]any{
			"title":        title,
			"slug":         slug,
			"description":  deref(in.Description),
			"content":      deref(in.Content),
			"tags":         tags,
			"status":       status,
			"thumbnail_id": nullable(in.ThumbnailID),
			"published_at": publishedAtFor(status, nil, now),
			"created_at":   now,
			"updated_at":   now,
		}))
		if err != nil {
			return s.postWriteError(err, slug)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if in.CategoryIDs != nil {
			if err := setPostCategories(ctx, tx, id, *in.CategoryIDs); err != nil {
				return err
			}
		}
		return s.getPost(ctx, tx, id, &post)
	})
	return post, err
}

// UpdatePost applies the supplied fields of in to the post. A slug that
// differs from the saved one is rejected with ErrSlugImmutable.
func (s *Store) UpdatePost(ctx context.Context, id int64, in PostInput) (post Post, err error) {
	ctx, span := s.startSpan(ctx, "UpdatePost")
	defer func() { endSpan(span, err) }()

	if err := in.validate(false); err != nil {
		return post, err
	}
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		var current Post
		if err := s.getPost(ctx, tx, id, &current); err != nil {
			return err
		}
		if in.Slug != nil && editor.Slugify(*in.Slug) != current.Slug {
			return ErrSlugImmutable
		}
		now := s.now()
		b := sq.Update("posts").Set("updated_at", now).Where(sq.Eq{"id": id})
		if in.Title != nil {
			b = b.Set("title", strings.TrimSpace(*in.Title))
		}
		if in.Description != nil {
			b = b.Set("description", *in.Description)
		}
		if in.Content != nil {
			b = b.Set("content", *in.Content)
		}
		if in.Tags != nil {
			b = b.Set("tags", NormalizeTags(*in.Tags))
		}
		if in.ThumbnailID != nil {
			b = b.Set("thumbnail_id", nullable(in.ThumbnailID))
		}
		if in.Status != nil {
			b = b.Set("status", *in.Status).
				Set("published_at", publishedAtFor(*in.Status, current.PublishedAt, now))
		}
		if _, err := s.exec(ctx, tx, b); err != nil {
			return s.postWriteError(err, current.Slug)
		}
		if in.CategoryIDs != nil {
			if err := setPostCategories(ctx, tx, id, *in.CategoryIDs); err != nil {
				return err
			}
		}
		return s.getPost(ctx, tx, id, &post)
	})
	return post, err
}

// ArchivePost soft-deletes a post and marks it archived.
func (s *Store) ArchivePost(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "ArchivePost")
	defer func() { endSpan(span, err) }()

	now := s.now()
	n, err := s.exec(ctx, s.db, sq.Update("posts").
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

// IncrementPostViews bumps the view counter of a published post.
func (s *Store) IncrementPostViews(ctx context.Context, slug string) (err error) {
	ctx, span := s.startSpan(ctx, "IncrementPostViews")
	defer func() { endSpan(span, err) }()

	_, err = s.db.ExecContext(ctx, `UPDATE posts SET views = views + 1
		WHERE slug = ? AND status = 'published' AND deleted_at IS NULL`, slug)
	return err
}

// AdjustPostLikes adds delta to the like counter of a published post, never
// going below zero, and returns the new count.
func (s *Store) AdjustPostLikes(ctx context.Context, slug string, delta int) (likes int64, err error) {
	ctx, span := s.startSpan(ctx, "AdjustPostLikes")
	defer func() { endSpan(span, err) }()

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE posts SET likes = MAX(likes + ?, 0)
			WHERE slug = ? AND status = 'published' AND deleted_at IS NULL`, delta, slug)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return tx.GetContext(ctx, &likes, `SELECT likes FROM posts
			WHERE slug = ? AND deleted_at IS NULL`, slug)
	})
	return likes, err
}

// RelatedPost is a post with its relatedness score.
type RelatedPost struct {
	Post
	Score int `db:"score" json:"score"`
}

// RelatedPosts ranks the other published posts by shared categories and
// tags with the published post slug. Ties go to the most recent post.
func (s *Store) RelatedPosts(ctx context.Context, slug string, limit int) (related []RelatedPost, err error) {
	ctx, span := s.startSpan(ctx, "RelatedPosts")
	defer func() { endSpan(span, err) }()

	if limit < 1 {
		limit = DefaultRelatedLimit
	}
	if limit > MaxRelatedLimit {
		limit = MaxRelatedLimit
	}
	var src Post
	if err := s.selectOne(ctx, s.db, &src, selectPosts().
		Where(sq.Eq{"p.slug": slug, "p.status": StatusPublished, "p.deleted_at": nil})); err != nil {
		return nil, err
	}
	tags, err := src.Tags.Value()
	if err != nil {
		return nil, err
	}
	related = []RelatedPost{}
	err = s.selectAll(ctx, s.db, &related, selectPosts().
		Column(sq.Alias(sq.Expr(relatedScore, src.ID, tags), "score")).
		Where(sq.NotEq{"p.id": src.ID}).
		Where(sq.Eq{"p.status": StatusPublished, "p.deleted_at": nil}).
		OrderBy("score DESC", "p.published_at DESC", "p.id DESC").
		Limit(uint64(limit)))
	return related, err
}

func setPostCategories(ctx context.Context, tx *sqlx.Tx, postID int64, ids []int64) error {
	ids = uniqueIDs(ids)
	if len(ids) > 0 {
		var n int
		query, args, err := sq.Select("COUNT(*)").From("categories").
			Where(sq.Eq{"id": ids, "deleted_at": nil}).ToSql()
		if err != nil {
			return err
		}
		if err := tx.GetContext(ctx, &n, query, args...); err != nil {
			return err
		}
		if n != len(ids) {
			return invalid("category_ids", "contains an unknown category")
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM post_categories WHERE post_id = ?", postID); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	ins := sq.Insert("post_categories").Columns("post_id", "category_id")
	for _, id := range ids {
		ins = ins.Values(postID, id)
	}
	if _, err := execBuilder(ctx, tx, ins); err != nil {
		return fmt.Errorf("link categories: %w", err)
	}
	return nil
}

func (s *Store) postWriteError(err error, slug string) error {
	switch {
	case isUniqueViolation(err):
		return conflictf("post slug %q", slug)
	case isForeignKeyViolation(err):
		return invalid("thumbnail_id", "references an unknown image")
	}
	return err
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
