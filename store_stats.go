package folio

import (
	"context"

	sq "github.com/Masterminds/squirrel"
)

const topPostsLimit = 5

// Stats returns the dashboard summary.
func (s *Store) Stats(ctx context.Context) (stats Stats, err error) {
	ctx, span := s.startSpan(ctx, "Stats")
	defer func() { endSpan(span, err) }()

	err = s.db.GetContext(ctx, &stats, `SELECT
		(SELECT COUNT(*) FROM posts WHERE status = 'published' AND deleted_at IS NULL) AS posts_published,
		(SELECT COUNT(*) FROM posts WHERE status = 'draft' AND deleted_at IS NULL) AS posts_draft,
		(SELECT COUNT(*) FROM posts WHERE status = 'archived') AS posts_archived,
		(SELECT COUNT(*) FROM projects WHERE deleted_at IS NULL) AS projects,
		(SELECT COUNT(*) FROM projects WHERE featured = 1 AND deleted_at IS NULL) AS projects_featured,
		(SELECT COUNT(*) FROM categories WHERE deleted_at IS NULL) AS categories,
		(SELECT COUNT(*) FROM subscribers WHERE deleted_at IS NULL) AS subscribers,
		(SELECT COUNT(*) FROM contact_messages WHERE deleted_at IS NULL) AS messages,
		(SELECT COUNT(*) FROM contact_messages WHERE read_at IS NULL AND deleted_at IS NULL) AS messages_unread,
		(SELECT COALESCE(SUM(views), 0) FROM posts WHERE deleted_at IS NULL)
			+ (SELECT COALESCE(SUM(views), 0) FROM projects WHERE deleted_at IS NULL) AS total_views,
		(SELECT COALESCE(SUM(likes), 0) FROM posts WHERE deleted_at IS NULL) AS total_likes`)
	if err != nil {
		return stats, err
	}
	stats.TopPosts = []Post{}
	err = s.selectAll(ctx, s.db, &stats.TopPosts, selectPosts().
		Where(sq.Eq{"p.status": StatusPublished, "p.deleted_at": nil}).
		OrderBy("p.views DESC", "p.id DESC").
		Limit(topPostsLimit))
	return stats, err
}
