package folio

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/eringen/folio/editor"
)

const categoryColumns = `c.id, c.name, c.slug, c.created_at, c.updated_at, c.deleted_at,
	(SELECT COUNT(*) FROM post_categories pc JOIN posts p ON p.id = pc.post_id
	  WHERE pc.category_id = c.id AND p.status = 'published' AND p.deleted_at IS NULL) AS post_count`

func selectCategories() sq.SelectBuilder {
	return sq.Select(categoryColumns).From("categories c")
}

// ListCategories returns every non-deleted category with its count of
// published posts, ordered by name.
func (s *Store) ListCategories(ctx context.Context) (categories []Category, err error) {
	ctx, span := s.startSpan(ctx, "ListCategories")
	defer func() { endSpan(span, err) }()

	categories = []Category{}
	err = s.selectAll(ctx, s.db, &categories, selectCategories().
		Where(sq.Eq{"c.deleted_at": nil}).
		OrderBy("c.name", "c.id"))
	return categories, err
}

// GetCategory returns a non-deleted category by id.
func (s *Store) GetCategory(ctx context.Context, id int64) (category Category, err error) {
	ctx, span := s.startSpan(ctx, "GetCategory")
	defer func() { endSpan(span, err) }()

	err = s.selectOne(ctx, s.db, &category, selectCategories().
		Where(sq.Eq{"c.id": id, "c.deleted_at": nil}))
	return category, err
}

// CategoryInput carries the fields of a category create or update.
type CategoryInput struct {
	Name *string `json:"name"`
	Slug *string `json:"slug"`
}

// CreateCategory inserts a category. The slug defaults to the slugified name.
func (s *Store) CreateCategory(ctx context.Context, in CategoryInput) (category Category, err error) {
	ctx, span := s.startSpan(ctx, "CreateCategory")
	defer func() { endSpan(span, err) }()

	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return category, invalid("name", "is required")
	}
	name := strings.TrimSpace(*in.Name)
	slug := editor.Slugify(name)
	if in.Slug != nil && strings.TrimSpace(*in.Slug) != "" {
		slug = editor.Slugify(*in.Slug)
	}
	if slug == "" {
		return category, invalid("slug", "is required")
	}
	now := s.now()
	res, err := execBuilder(ctx, s.db, sq.Insert("categories").
		Columns("name", "slug", "created_at", "updated_at").
		Values(name, slug, now, now))
	if isUniqueViolation(err) {
		return category, conflictf("category slug %q", slug)
	}
	if err != nil {
		return category, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return category, err
	}
	err = s.selectOne(ctx, s.db, &category, selectCategories().Where(sq.Eq{"c.id": id}))
	return category, err
}

// UpdateCategory renames a category. Unlike posts, category slugs may change.
func (s *Store) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (category Category, err error) {
	ctx, span := s.startSpan(ctx, "UpdateCategory")
	defer func() { endSpan(span, err) }()

	b := sq.Update("categories").Set("updated_at", s.now()).Where(sq.Eq{"id": id, "deleted_at": nil})
	slug := ""
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return category, invalid("name", "cannot be empty")
		}
		b = b.Set("name", name)
	}
	if in.Slug != nil {
		if slug = editor.Slugify(*in.Slug); slug == "" {
			return category, invalid("slug", "cannot be empty")
		}
		b = b.Set("slug", slug)
	}
	n, err := s.exec(ctx, s.db, b)
	if isUniqueViolation(err) {
		return category, conflictf("category slug %q", slug)
	}
	if err != nil {
		return category, err
	}
	if n == 0 {
		return category, ErrNotFound
	}
	err = s.selectOne(ctx, s.db, &category, selectCategories().Where(sq.Eq{"c.id": id}))
	return category, err
}

// DeleteCategory soft-deletes a category. Post links are kept but deleted
// categories no longer show on posts or count towards related posts.
func (s *Store) DeleteCategory(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteCategory")
	defer func() { endSpan(span, err) }()

	now := s.now()
	n, err := s.exec(ctx, s.db, sq.Update("categories").
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
