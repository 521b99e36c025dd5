package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"pharmacy/m/domain"
	"pharmacy/m/internal/auth"
)

// MaxUsernameLength matches the users.username column.
const MaxUsernameLength = 80

// UserStore is the credential store.
type UserStore struct {
	db  *sqlx.DB
	log zerolog.Logger
}

func NewUserStore(db *sqlx.DB, log zerolog.Logger) *UserStore {
	return &UserStore{db: db, log: log.With().Str("component", "users").Logger()}
}

// Authenticate verifies a username and password. Unknown usernames and wrong
// passwords fail with the same error.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(`SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?`), username)
	if errors.Is(err, sql.ErrNoRows) {
		auth.CheckPassword("", password)
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, unavailable("load user", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	user.PasswordHash = ""
	return user, nil
}

// Create stores a new user with a bcrypt hash of password.
func (s *UserStore) Create(ctx context.Context, username, password string, role domain.Role) (int64, error) {
	if !role.Valid() {
		return 0, &domain.ValidationError{Field: "role", Reason: "must be one of admin, pharmacy_admin, staff"}
	}
	if username == "" || utf8.RuneCountInString(username) > MaxUsernameLength {
		return 0, &domain.ValidationError{Field: "username", Reason: "must be 1 to 80 characters"}
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("unable to secure password: %w", err)
	}

	var id int64
	err = s.db.GetContext(ctx, &id, s.db.Rebind(`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)
		ON CONFLICT (username) DO NOTHING RETURNING id`), username, hashed, string(role))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrDuplicateUsername
	}
	if err != nil {
		return 0, unavailable("insert user", err)
	}
	s.log.Info().Int64("user_id", id).Str("role", string(role)).Msg("user created")
	return id, nil
}

// List returns all users, newest first. Password hashes are never selected.
func (s *UserStore) List(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	if err := s.db.SelectContext(ctx, &users, `SELECT id, username, role, created_at FROM users ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, unavailable("list users", err)
	}
	return users, nil
}

// RoleOf resolves an identity to its current role.
func (s *UserStore) RoleOf(ctx context.Context, id int64) (domain.Role, error) {
	var role domain.Role
	err := s.db.GetContext(ctx, &role, s.db.Rebind(`SELECT role FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return "", unavailable("load role", err)
	}
	return role, nil
}

// Delete removes a user that is not the acting identity and has no sales.
// The row is locked first so a concurrent sale by the user either commits
// before the count or fails afterwards.
func (s *UserStore) Delete(ctx context.Context, id, actingID int64) error {
	if id == actingID {
		return domain.ErrSelfDeletion
	}
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var username string
		err := tx.GetContext(ctx, &username, lockRow(tx, `SELECT username FROM users WHERE id = ?`, "UPDATE"), id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return unavailable("load user", err)
		}

		count, err := countSales(ctx, tx, "salesperson_id", id)
		if err != nil {
			return err
		}
		if count > 0 {
			return &domain.DependentRecordsError{Entity: "user", Count: count}
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE id = ?`), id); err != nil {
			return unavailable("delete user", err)
		}
		s.log.Info().Int64("user_id", id).Str("username", username).Int64("deleted_by", actingID).Msg("user deleted")
		return nil
	})
}

// ResetPassword replaces the password hash of user id.
func (s *UserStore) ResetPassword(ctx context.Context, id int64, newPassword string) error {
	hashed, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("unable to secure password: %w", err)
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET password_hash = ? WHERE id = ?`), hashed, id)
	if err != nil {
		return unavailable("update password", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Exists reports whether username is taken.
func (s *UserStore) Exists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, s.db.Rebind(`SELECT COUNT(*) FROM users WHERE username = ?`), username); err != nil {
		return false, unavailable("count users", err)
	}
	return count > 0, nil
}
