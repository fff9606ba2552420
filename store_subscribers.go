package folio

import (
	"context"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

const subscriberColumns = "id, name, email, created_at, updated_at, deleted_at"

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := checkVar("email", email, "required,email"); err != nil {
		return "", err
	}
	return email, nil
}

// Subscribe adds an email to the newsletter. An active subscription is a
// conflict; an unsubscribed email is reactivated.
func (s *Store) Subscribe(ctx context.Context, name, email string) (sub Subscriber, err error) {
	ctx, span := s.startSpan(ctx, "Subscribe")
	defer func() { endSpan(span, err) }()

	email, err = normalizeEmail(email)
	if err != nil {
		return sub, err
	}
	name = strings.TrimSpace(name)
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		var existing Subscriber
		err := s.selectOne(ctx, tx, &existing, sq.Select(subscriberColumns).From("subscribers").
			Where(sq.Eq{"email": email}))
		now := s.now()
		switch {
		case err == nil && existing.DeletedAt == nil:
			return conflictf("subscriber %q", email)
		case err == nil:
			if _, err := s.exec(ctx, tx, sq.Update("subscribers").
				Set("deleted_at", nil).
				Set("name", name).
				Set("updated_at", now).
				Where(sq.Eq{"id": existing.ID})); err != nil {
				return err
			}
			return s.selectOne(ctx, tx, &sub, sq.Select(subscriberColumns).From("subscribers").
				Where(sq.Eq{"id": existing.ID}))
		case !errors.Is(err, ErrNotFound):
			return err
		}
		res, err := execBuilder(ctx, tx, sq.Insert("subscribers").
			Columns("name", "email", "created_at", "updated_at").
			Values(name, email, now, now))
		if isUniqueViolation(err) {
			return conflictf("subscriber %q", email)
		}
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		return s.selectOne(ctx, tx, &sub, sq.Select(subscriberColumns).From("subscribers").
			Where(sq.Eq{"id": id}))
	})
	return sub, err
}

// ListSubscribers returns one page of subscribers, newest first. Unless
// includeUnsubscribed is set, only active subscribers are listed.
func (s *Store) ListSubscribers(ctx context.Context, includeUnsubscribed bool, pageNo, limit int) (page Page[Subscriber], err error) {
	ctx, span := s.startSpan(ctx, "ListSubscribers")
	defer func() { endSpan(span, err) }()

	pageNo, limit, offset := pageBounds(pageNo, limit)
	where := sq.And{}
	if !includeUnsubscribed {
		where = append(where, sq.Eq{"deleted_at": nil})
	}
	total, err := s.count(ctx, sq.Select("COUNT(*)").From("subscribers").Where(where))
	if err != nil {
		return page, err
	}
	items := []Subscriber{}
	err = s.selectAll(ctx, s.db, &items, sq.Select(subscriberColumns).From("subscribers").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(offset))
	if err != nil {
		return page, err
	}
	return Page[Subscriber]{Items: items, Total: total, Page: pageNo, Limit: limit}, nil
}

// ActiveSubscriberEmails returns the addresses a broadcast goes to.
func (s *Store) ActiveSubscriberEmails(ctx context.Context) (emails []string, err error) {
	ctx, span := s.startSpan(ctx, "ActiveSubscriberEmails")
	defer func() { endSpan(span, err) }()

	emails = []string{}
	err = s.db.SelectContext(ctx, &emails,
		"SELECT email FROM subscribers WHERE deleted_at IS NULL ORDER BY id")
	return emails, err
}

// Unsubscribe soft-deletes a subscriber.
func (s *Store) Unsubscribe(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "Unsubscribe")
	defer func() { endSpan(span, err) }()

	now := s.now()
	n, err := s.exec(ctx, s.db, sq.Update("subscribers").
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
