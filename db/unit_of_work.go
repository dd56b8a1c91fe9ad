package db

import (
	"context"
	"fmt"

	"changemgmt/models"

	"github.com/jmoiron/sqlx"
)

// UnitOfWork collects request changes and commits them together.
type UnitOfWork interface {
	Add(r *models.Request)
	Update(r *models.Request)
	Remove(r *models.Request)
	RemoveRange(rs []models.Request)
	// Save commits every pending change in one transaction. On error nothing
	// is committed and the pending changes are kept.
	Save(ctx context.Context) error
}

type changeKind int

const (
	changeAdd changeKind = iota
	changeUpdate
	changeRemove
)

type change struct {
	kind    changeKind
	request *models.Request
}

type unitOfWork struct {
	db      *sqlx.DB
	pending []change
}

func (u *unitOfWork) Add(r *models.Request) {
	u.pending = append(u.pending, change{kind: changeAdd, request: r})
}

func (u *unitOfWork) Update(r *models.Request) {
	u.pending = append(u.pending, change{kind: changeUpdate, request: r})
}

func (u *unitOfWork) Remove(r *models.Request) {
	u.pending = append(u.pending, change{kind: changeRemove, request: r})
}

func (u *unitOfWork) RemoveRange(rs []models.Request) {
	for i := range rs {
		u.Remove(&rs[i])
	}
}

func (u *unitOfWork) Save(ctx context.Context) (err error) {
	if len(u.pending) == 0 {
		return nil
	}

	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, c := range u.pending {
		switch c.kind {
		case changeAdd:
			err = insertRequest(ctx, tx, c.request)
		case changeUpdate:
			err = updateRequest(ctx, tx, c.request)
		case changeRemove:
			err = deleteRequest(ctx, tx, c.request.ID)
		}
		if err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	u.pending = nil
	return nil
}

func insertRequest(ctx context.Context, tx *sqlx.Tx, r *models.Request) error {
	query := `
        INSERT INTO requests
            (title, description, priority, status, date, admin_approval_date, admin_reason, submitted_by)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id`
	err := tx.QueryRowContext(ctx, query,
		r.Title, r.Description, r.Priority, r.Status, r.Date, r.AdminApprovalDate, r.AdminReason, r.SubmittedBy).
		Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func updateRequest(ctx context.Context, tx *sqlx.Tx, r *models.Request) error {
	query := `
        UPDATE requests
        SET title=$1, description=$2, priority=$3, status=$4, date=$5,
            admin_approval_date=$6, admin_reason=$7, submitted_by=$8
        WHERE id=$9`
	res, err := tx.ExecContext(ctx, query,
		r.Title, r.Description, r.Priority, r.Status, r.Date, r.AdminApprovalDate, r.AdminReason, r.SubmittedBy, r.ID)
	if err != nil {
		return fmt.Errorf("update request %d: %w", r.ID, err)
	}
	return expectOneRow(res, r.ID)
}

func deleteRequest(ctx context.Context, tx *sqlx.Tx, id int) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM requests WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete request %d: %w", id, err)
	}
	return expectOneRow(res, id)
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func expectOneRow(res rowsAffecter, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for request %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("request %d: %w", id, ErrNotFound)
	}
	return nil
}
