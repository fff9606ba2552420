package folio

import (
	"context"

	sq "github.com/Masterminds/squirrel"
)

const imageColumns = "id, path, alt, size, type, width, height, created_at, updated_at"

// CreateImage stores image metadata. CreatedAt and UpdatedAt are set here.
func (s *Store) CreateImage(ctx context.Context, img Image) (out Image, err error) {
	ctx, span := s.startSpan(ctx, "CreateImage")
	defer func() { endSpan(span, err) }()

	now := s.now()
	img.CreatedAt, img.UpdatedAt = now, now
	_, err = execBuilder(ctx, s.db, sq.Insert("images").
		Columns("id", "path", "alt", "size", "type", "width", "height", "created_at", "updated_at").
		Values(img.ID, img.Path, img.Alt, img.Size, img.Type, img.Width, img.Height, now, now))
	if isUniqueViolation(err) {
		return out, conflictf("image %q", img.ID)
	}
	if err != nil {
		return out, err
	}
	return img, nil
}

// GetImage returns image metadata by id.
func (s *Store) GetImage(ctx context.Context, id string) (img Image, err error) {
	ctx, span := s.startSpan(ctx, "GetImage")
	defer func() { endSpan(span, err) }()

	err = s.selectOne(ctx, s.db, &img, sq.Select(imageColumns).From("images").Where(sq.Eq{"id": id}))
	return img, err
}

// ListImages returns all images, newest first.
func (s *Store) ListImages(ctx context.Context) (images []Image, err error) {
	ctx, span := s.startSpan(ctx, "ListImages")
	defer func() { endSpan(span, err) }()

	images = []Image{}
	err = s.selectAll(ctx, s.db, &images, sq.Select(imageColumns).From("images").
		OrderBy("created_at DESC", "id"))
	return images, err
}

// DeleteImage removes the image row. Posts and projects using it as a
// thumbnail lose the reference.
func (s *Store) DeleteImage(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteImage")
	defer func() { endSpan(span, err) }()

	n, err := s.exec(ctx, s.db, sq.Delete("images").Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
