package folio

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

const contactColumns = "id, name, email, subject, content, ip, read_at, created_at, updated_at, deleted_at"

// ContactInput is a contact form submission.
type ContactInput struct {
	Name    string `json:"name" form:"name" validate:"required,max=100"`
	Email   string `json:"email" form:"email" validate:"required,email"`
	Subject string `json:"subject" form:"subject" validate:"max=200"`
	Content string `json:"content" form:"content" validate:"required,max=5000"`
}

func (in *ContactInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Content = strings.TrimSpace(in.Content)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	return validationError("", validate.Struct(in))
}

// CreateContactMessage stores a contact form submission from ip.
func (s *Store) CreateContactMessage(ctx context.Context, in ContactInput, ip string) (msg ContactMessage, err error) {
	ctx, span := s.startSpan(ctx, "CreateContactMessage")
	defer func() { endSpan(span, err) }()

	if err := in.normalize(); err != nil {
		return msg, err
	}
	now := s.now()
	res, err := execBuilder(ctx, s.db, sq.Insert("contact_messages").
		Columns("name", "email", "subject", "content", "ip", "created_at", "updated_at").
		Values(in.Name, in.Email, in.Subject, in.Content, ip, now, now))
	if err != nil {
		return msg, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return msg, err
	}
	err = s.selectOne(ctx, s.db, &msg, sq.Select(contactColumns).From("contact_messages").
		Where(sq.Eq{"id": id}))
	return msg, err
}

// ListContactMessages returns one page of the inbox, newest first.
func (s *Store) ListContactMessages(ctx context.Context, unreadOnly bool, pageNo, limit int) (page Page[ContactMessage], err error) {
	ctx, span := s.startSpan(ctx, "ListContactMessages")
	defer func() { endSpan(span, err) }()

	pageNo, limit, offset := pageBounds(pageNo, limit)
	where := sq.Eq{"deleted_at": nil}
	if unreadOnly {
		where["read_at"] = nil
	}
	total, err := s.count(ctx, sq.Select("COUNT(*)").From("contact_messages").Where(where))
	if err != nil {
		return page, err
	}
	items := []ContactMessage{}
	err = s.selectAll(ctx, s.db, &items, sq.Select(contactColumns).From("contact_messages").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(offset))
	if err != nil {
		return page, err
	}
	return Page[ContactMessage]{Items: items, Total: total, Page: pageNo, Limit: limit}, nil
}

// ReadContactMessage returns a message and marks it read on first access.
func (s *Store) ReadContactMessage(ctx context.Context, id int64) (msg ContactMessage, err error) {
	ctx, span := s.startSpan(ctx, "ReadContactMessage")
	defer func() { endSpan(span, err) }()

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		now := s.now()
		if _, err := s.exec(ctx, tx, sq.Update("contact_messages").
			Set("read_at", now).
			Where(sq.Eq{"id": id, "read_at": nil, "deleted_at": nil})); err != nil {
			return err
		}
		return s.selectOne(ctx, tx, &msg, sq.Select(contactColumns).From("contact_messages").
			Where(sq.Eq{"id": id, "deleted_at": nil}))
	})
	return msg, err
}

// DeleteContactMessage soft-deletes a message.
func (s *Store) DeleteContactMessage(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteContactMessage")
	defer func() { endSpan(span, err) }()

	now := s.now()
	n, err := s.exec(ctx, s.db, sq.Update("contact_messages").
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
