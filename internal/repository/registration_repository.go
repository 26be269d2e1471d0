package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"workshop-service/internal/model"

	"github.com/jmoiron/sqlx"
)

var (
	ErrAlreadyRegistered = errors.New("already registered for workshop")
	ErrWorkshopFull      = errors.New("workshop capacity exceeded")
)

// Signup outcomes, reported so handlers can distinguish a fresh registration
// from a reactivated one.
const (
	ActionRegistered   = "registered"
	ActionReregistered = "re-registered"
)

type RegistrationRepository interface {
	Find(ctx context.Context, userID, workshopID int64) (*model.Registration, error)
	// Signup inserts a confirmed registration, or reactivates a cancelled
	// one. The capacity check and the write are a single guarded statement,
	// so concurrent signups at the last open slot cannot both succeed.
	Signup(ctx context.Context, userID, workshopID int64) (string, error)
	// Cancel transitions a confirmed registration to cancelled. It is
	// idempotent: cancelling an already-cancelled or never-held registration
	// succeeds without touching any row.
	Cancel(ctx context.Context, userID, workshopID int64) (*model.Registration, error)
	ConfirmedCount(ctx context.Context, workshopID int64) (int, error)
}

type sqlRegistrationRepository struct {
	db *sqlx.DB
}

func NewRegistrationRepository(db *sqlx.DB) RegistrationRepository {
	return &sqlRegistrationRepository{db: db}
}

const registrationColumns = `registration_id, workshop_id, user_id, status, registered_at`

// registrationLock returns the table hint that serializes capacity checks
// against concurrent signups. SQL Server runs READ_COMMITTED_SNAPSHOT by
// default, so without UPDLOCK/HOLDLOCK two transactions could both count the
// pre-insert snapshot and both pass the guard. sqlite needs no hint: the pool
// is pinned to a single connection, so writes serialize on their own.
func registrationLock(driver string) string {
	if driver == "sqlserver" {
		return " WITH (UPDLOCK, HOLDLOCK)"
	}
	return ""
}

func (r *sqlRegistrationRepository) Find(ctx context.Context, userID, workshopID int64) (*model.Registration, error) {
	var reg model.Registration
	query := r.db.Rebind(`SELECT ` + registrationColumns + ` FROM registration WHERE user_id = ? AND workshop_id = ?`)
	err := r.db.GetContext(ctx, &reg, query, userID, workshopID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *sqlRegistrationRepository) Signup(ctx context.Context, userID, workshopID int64) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var maxCapacity int
	err = tx.GetContext(ctx, &maxCapacity,
		r.db.Rebind(`SELECT max_capacity FROM workshop WHERE workshop_id = ?`), workshopID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrWorkshopNotFound
	}
	if err != nil {
		return "", err
	}

	lock := registrationLock(r.db.DriverName())

	var existing model.Registration
	err = tx.GetContext(ctx, &existing,
		r.db.Rebind(`SELECT `+registrationColumns+` FROM registration`+lock+` WHERE user_id = ? AND workshop_id = ?`),
		userID, workshopID)

	var action string
	switch {
	case err == nil && existing.Status == model.StatusConfirmed:
		return "", ErrAlreadyRegistered

	case err == nil:
		// Reactivate the cancelled row; the capacity guard is part of the
		// update itself.
		res, err := tx.ExecContext(ctx, r.db.Rebind(`
			UPDATE registration
			SET status = 'confirmed', registered_at = CURRENT_TIMESTAMP
			WHERE user_id = ? AND workshop_id = ? AND status = 'cancelled'
			AND (SELECT COUNT(*) FROM registration r2`+lock+`
				WHERE r2.workshop_id = ? AND r2.status = 'confirmed') < ?`),
			userID, workshopID, workshopID, maxCapacity)
		if err != nil {
			return "", err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return "", ErrWorkshopFull
		}
		action = ActionReregistered

	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, r.db.Rebind(`
			INSERT INTO registration (workshop_id, user_id, status)
			SELECT ?, ?, 'confirmed'
			WHERE NOT EXISTS (SELECT 1 FROM registration`+lock+`
				WHERE user_id = ? AND workshop_id = ?)
			AND (SELECT COUNT(*) FROM registration`+lock+`
				WHERE workshop_id = ? AND status = 'confirmed') < ?`),
			workshopID, userID, userID, workshopID, workshopID, maxCapacity)
		if err != nil {
			return "", err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			count, cerr := r.confirmedCountTx(ctx, tx, workshopID)
			if cerr == nil && count >= maxCapacity {
				return "", ErrWorkshopFull
			}
			return "", ErrAlreadyRegistered
		}
		action = ActionRegistered

	default:
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit registration: %w", err)
	}
	return action, nil
}

func (r *sqlRegistrationRepository) Cancel(ctx context.Context, userID, workshopID int64) (*model.Registration, error) {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE registration SET status = 'cancelled'
		WHERE user_id = ? AND workshop_id = ? AND status = 'confirmed'`),
		userID, workshopID)
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, userID, workshopID)
}

func (r *sqlRegistrationRepository) ConfirmedCount(ctx context.Context, workshopID int64) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM registration WHERE workshop_id = ? AND status = 'confirmed'`)
	if err := r.db.GetContext(ctx, &count, query, workshopID); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *sqlRegistrationRepository) confirmedCountTx(ctx context.Context, tx *sqlx.Tx, workshopID int64) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM registration WHERE workshop_id = ? AND status = 'confirmed'`)
	if err := tx.GetContext(ctx, &count, query, workshopID); err != nil {
		return 0, err
	}
	return count, nil
}
