package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"changemgmt/models"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Ping checks the database connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Order selects the ordering of a request listing.
type Order int

const (
	OrderByID Order = iota
	OrderByDateDesc
	OrderByApprovalDateDesc
)

func (o Order) clause() string {
	switch o {
	case OrderByDateDesc:
		return " ORDER BY date DESC, id DESC"
	case OrderByApprovalDateDesc:
		return " ORDER BY admin_approval_date DESC NULLS LAST, id DESC"
	default:
		return " ORDER BY id ASC"
	}
}

// RequestFilter is the predicate for request lookups. Zero fields match
// everything.
type RequestFilter struct {
	ID     int
	Status models.Status
	Order  Order
}

const requestColumns = `id, title, description, priority, status, date, admin_approval_date, admin_reason, submitted_by`

func (f RequestFilter) where() (string, []interface{}) {
	var (
		clause string
		args   []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		if clause == "" {
			clause = " WHERE "
		} else {
			clause += " AND "
		}
		clause += fmt.Sprintf(cond, len(args))
	}
	if f.ID != 0 {
		add("id = $%d", f.ID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	return clause, args
}

// GetRequests returns every request matching the filter.
func (s *Storage) GetRequests(ctx context.Context, f RequestFilter) ([]models.Request, error) {
	where, args := f.where()
	query := "SELECT " + requestColumns + " FROM requests" + where + f.Order.clause()

	requests := []models.Request{}
	if err := s.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("select requests: %w", err)
	}
	return requests, nil
}

// GetRequest returns the single request matching the filter, or ErrNotFound.
// A non-positive ID never matches.
func (s *Storage) GetRequest(ctx context.Context, f RequestFilter) (*models.Request, error) {
	if f.ID <= 0 {
		return nil, ErrNotFound
	}
	where, args := f.where()
	query := "SELECT " + requestColumns + " FROM requests" + where + " LIMIT 1"

	r := &models.Request{}
	err := s.db.GetContext(ctx, r, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get request %d: %w", f.ID, err)
	}
	return r, nil
}

// NewUnitOfWork starts an empty batch of request changes.
func (s *Storage) NewUnitOfWork() UnitOfWork {
	return &unitOfWork{db: s.db}
}
