package folio

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

const adminColumns = "id, username, email, password_hash, created_at, updated_at, deleted_at"

// CountAdmins returns the number of active admins.
func (s *Store) CountAdmins(ctx context.Context) (n int, err error) {
	ctx, span := s.startSpan(ctx, "CountAdmins")
	defer func() { endSpan(span, err) }()

	return s.count(ctx, sq.Select("COUNT(*)").From("admins").Where(sq.Eq{"deleted_at": nil}))
}

// CreateAdmin inserts an admin with an already hashed password.
func (s *Store) CreateAdmin(ctx context.Context, username, email, passwordHash string) (admin Admin, err error) {
	ctx, span := s.startSpan(ctx, "CreateAdmin")
	defer func() { endSpan(span, err) }()

	id, err := s.insertAdmin(ctx, s.db, username, email, passwordHash)
	if err != nil {
		return admin, err
	}
	return s.GetAdmin(ctx, id)
}

// CreateFirstAdmin inserts an admin only while there is none.
func (s *Store) CreateFirstAdmin(ctx context.Context, username, email, passwordHash string) (admin Admin, err error) {
	ctx, span := s.startSpan(ctx, "CreateFirstAdmin")
	defer func() { endSpan(span, err) }()

	var id int64
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM admins WHERE deleted_at IS NULL"); err != nil {
			return err
		}
		if n > 0 {
			return conflictf("admin account")
		}
		id, err = s.insertAdmin(ctx, tx, username, email, passwordHash)
		return err
	})
	if err != nil {
		return admin, err
	}
	return s.GetAdmin(ctx, id)
}

func (s *Store) insertAdmin(ctx context.Context, e sqlx.ExecerContext, username, email, passwordHash string) (int64, error) {
	username = strings.TrimSpace(username)
	if err := checkVar("username", username, "required,max=50"); err != nil {
		return 0, err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return 0, err
	}
	now := s.now()
	res, err := execBuilder(ctx, e, sq.Insert("admins").
		Columns("username", "email", "password_hash", "created_at", "updated_at").
		Values(username, email, passwordHash, now, now))
	if isUniqueViolation(err) {
		return 0, conflictf("admin %q", username)
	}
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetAdmin returns an active admin by id.
func (s *Store) GetAdmin(ctx context.Context, id int64) (admin Admin, err error) {
	ctx, span := s.startSpan(ctx, "GetAdmin")
	defer func() { endSpan(span, err) }()

	err = s.selectOne(ctx, s.db, &admin, sq.Select(adminColumns).From("admins").
		Where(sq.Eq{"id": id, "deleted_at": nil}))
	return admin, err
}

// FindAdmin returns the active admin whose username or email is login.
func (s *Store) FindAdmin(ctx context.Context, login string) (admin Admin, err error) {
	ctx, span := s.startSpan(ctx, "FindAdmin")
	defer func() { endSpan(span, err) }()

	login = strings.TrimSpace(login)
	err = s.selectOne(ctx, s.db, &admin, sq.Select(adminColumns).From("admins").
		Where(sq.Eq{"deleted_at": nil}).
		Where(sq.Or{sq.Eq{"username": login}, sq.Eq{"email": strings.ToLower(login)}}).
		Limit(1))
	return admin, err
}
