package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"changemgmt/models"
)

func (s *Storage) RoleExists(ctx context.Context, role models.Role) (bool, error) {
	var count int
	query := `SELECT COUNT(1) FROM roles WHERE name=$1`
	if err := s.db.GetContext(ctx, &count, query, string(role)); err != nil {
		return false, fmt.Errorf("count role %s: %w", role, err)
	}
	return count > 0, nil
}

func (s *Storage) CreateRole(ctx context.Context, role models.Role) error {
	query := `INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, string(role)); err != nil {
		return fmt.Errorf("create role %s: %w", role, err)
	}
	return nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	query := `SELECT id, username, email, password_hash, created_at FROM users WHERE username=$1`
	err := s.db.GetContext(ctx, u, query, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}
	return u, nil
}

func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	query := `
        INSERT INTO users (username, email, password_hash)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query, u.Username, u.Email, u.PasswordHash).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user %q: %w", u.Username, err)
	}
	return nil
}

func (s *Storage) AddUserToRole(ctx context.Context, userID int, role models.Role) error {
	query := `
        INSERT INTO user_roles (user_id, role_id)
        SELECT $1, id FROM roles WHERE name = $2
        ON CONFLICT (user_id, role_id) DO NOTHING`
	res, err := s.db.ExecContext(ctx, query, userID, string(role))
	if err != nil {
		return fmt.Errorf("add user %d to role %s: %w", userID, role, err)
	}
	// Zero rows means either the role is missing or the link already exists.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		exists, err := s.RoleExists(ctx, role)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("role %s: %w", role, ErrNotFound)
		}
	}
	return nil
}

func (s *Storage) GetUserRoles(ctx context.Context, userID int) ([]models.Role, error) {
	query := `
        SELECT r.name
        FROM roles r
        JOIN user_roles ur ON ur.role_id = r.id
        WHERE ur.user_id = $1
        ORDER BY r.name ASC`
	var names []string
	if err := s.db.SelectContext(ctx, &names, query, userID); err != nil {
		return nil, fmt.Errorf("get roles for user %d: %w", userID, err)
	}
	roles := make([]models.Role, 0, len(names))
	for _, n := range names {
		if r := models.Role(n); r.Valid() {
			roles = append(roles, r)
		}
	}
	return roles, nil
}
