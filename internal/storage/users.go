package storage

import (
	"context"
	"fmt"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/ledger"

	"github.com/google/uuid"
)

const userColumns = "id, first_name, last_name, email, password_hash, active, role, created_at"

func scanUser(r rowScanner) (core.User, error) {
	var (
		u       core.User
		role    string
		created dbTime
	)
	if err := r.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Active, &role, &created); err != nil {
		return core.User{}, err
	}
	u.Role = core.Role(role)
	u.CreatedAt = created.Time
	return u, nil
}

func (s *Store) userWhere(q *query, f ledger.UserFilter) {
	if f.Role != "" {
		q.and("role = " + q.arg(string(f.Role)))
	}
	if f.Active != nil {
		q.and("active = " + q.arg(*f.Active))
	}
	if f.Created != nil {
		q.and("created_at >= " + q.arg(s.d.timeArg(f.Created.From.Time)))
		q.and("created_at < " + q.arg(s.d.timeArg(f.Created.To.Time)))
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		like := "%" + search + "%"
		q.and("(LOWER(first_name) LIKE " + q.arg(like) +
			" OR LOWER(last_name) LIKE " + q.arg(like) +
			" OR LOWER(email) LIKE " + q.arg(like) + ")")
	}
}

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.stamp()
	}
	q := s.query()
	stmt := fmt.Sprintf(
		"INSERT INTO users (id, first_name, last_name, email, password_hash, active, role, created_at) VALUES (%s, %s, %s, %s, %s, %s, %s, %s)",
		q.arg(u.ID), q.arg(u.FirstName), q.arg(u.LastName), q.arg(u.Email), q.arg(u.PasswordHash), q.arg(u.Active), q.arg(string(u.Role)), q.arg(s.d.timeArg(u.CreatedAt)),
	)
	if _, err := s.db.ExecContext(ctx, stmt, q.args...); err != nil {
		if s.d.isUniqueViolation(err) {
			return &core.ConflictError{Field: "email", Message: "Email is already registered"}
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (core.User, error) {
	q := s.query()
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = "+q.arg(id), q.args...))
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", notFound(err))
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	q := s.query()
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = "+q.arg(email), q.args...))
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", notFound(err))
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context, f ledger.UserFilter) ([]core.User, error) {
	q := s.query()
	s.userWhere(q, f)
	stmt := "SELECT " + userColumns + " FROM users" + q.clause() + " ORDER BY created_at DESC, id" + limitClause(f.Limit)
	rows, err := s.db.QueryContext(ctx, stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	return collect(rows, scanUser)
}

func (s *Store) CountUsers(ctx context.Context, f ledger.UserFilter) (int, error) {
	q := s.query()
	s.userWhere(q, f)
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+q.clause(), q.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *Store) SetUserActive(ctx context.Context, id string, active bool) error {
	q := s.query()
	stmt := "UPDATE users SET active = " + q.arg(active) + " WHERE id = " + q.arg(id)
	res, err := s.db.ExecContext(ctx, stmt, q.args...)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	return nil
}
