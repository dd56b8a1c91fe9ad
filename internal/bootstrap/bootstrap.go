package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"changemgmt/db"
	"changemgmt/internal/config"
	"changemgmt/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Store is the principal store the bootstrap seeds.
type Store interface {
	RoleExists(ctx context.Context, role models.Role) (bool, error)
	CreateRole(ctx context.Context, role models.Role) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	AddUserToRole(ctx context.Context, userID int, role models.Role) error
}

// Migrator applies pending schema migrations.
type Migrator func(ctx context.Context) error

// Run migrates the schema, then seeds roles and the configured admin.
// Repeated runs are no-ops once everything exists.
func Run(ctx context.Context, migrate Migrator, store Store, admin config.AdminOptions, log logrus.FieldLogger) error {
	log = log.WithField("component", "bootstrap")

	if migrate != nil {
		if err := migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	if err := EnsureRoles(ctx, store, log); err != nil {
		return err
	}

	if !admin.Configured() {
		log.Info("no admin credentials configured, skipping admin account")
		return nil
	}
	created, err := EnsureUser(ctx, store, admin.Username, admin.Email, admin.Password, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.WithField("user", admin.Username).Info("admin account created")
	}
	return nil
}

func EnsureRoles(ctx context.Context, store Store, log logrus.FieldLogger) error {
	for _, role := range models.Roles {
		exists, err := store.RoleExists(ctx, role)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := store.CreateRole(ctx, role); err != nil {
			return err
		}
		log.WithField("role", role).Info("role created")
	}
	return nil
}

// EnsureUser creates the user with role unless the username is taken.
// It reports whether a user was created.
func EnsureUser(ctx context.Context, store Store, username, email, password string, role models.Role) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("unknown role %q", role)
	}
	_, err := store.GetUserByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return false, err
	}

	if err := models.ValidatePassword(password); err != nil {
		return false, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{Username: username, Email: email, PasswordHash: string(hash)}
	if err := store.CreateUser(ctx, u); err != nil {
		return false, err
	}
	if err := store.AddUserToRole(ctx, u.ID, role); err != nil {
		return false, err
	}
	return true, nil
}
