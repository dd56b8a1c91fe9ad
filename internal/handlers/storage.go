package handlers

import (
	"context"

	"changemgmt/db"
	"changemgmt/models"
)

type StorageInterface interface {
	Ping(ctx context.Context) error

	GetRequests(ctx context.Context, f db.RequestFilter) ([]models.Request, error)
	GetRequest(ctx context.Context, f db.RequestFilter) (*models.Request, error)
	NewUnitOfWork() db.UnitOfWork

	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserRoles(ctx context.Context, userID int) ([]models.Role, error)
}

// Notifier delivers decision notifications. Implementations must not block
// the caller on failure.
type Notifier interface {
	NotifyDecision(ctx context.Context, to string, r *models.Request)
}
