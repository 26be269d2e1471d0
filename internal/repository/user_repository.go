package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"workshop-service/internal/model"

	"github.com/jmoiron/sqlx"
)

// UserProfile carries the identity claims used to create or refresh a user
// row on sign-in.
type UserProfile struct {
	Email     string
	Name      string
	SubjectID *string
	AvatarURL *string
}

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// Upsert creates the user on first sight and refreshes profile fields on
	// later sign-ins. Users are never deleted.
	Upsert(ctx context.Context, profile UserProfile) (*model.User, error)
}

type sqlUserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &sqlUserRepository{db: db}
}

const userColumns = `user_id, name, email, role, subject_id, avatar_url, created_date`

func (r *sqlUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE user_id = ?`)
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *sqlUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *sqlUserRepository) Upsert(ctx context.Context, profile UserProfile) (*model.User, error) {
	existing, err := r.FindByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		if err := r.refresh(ctx, existing, profile); err != nil {
			return nil, err
		}
		return r.FindByEmail(ctx, profile.Email)
	case errors.Is(err, sql.ErrNoRows):
		insert := r.db.Rebind(`
			INSERT INTO users (name, email, role, subject_id, avatar_url)
			VALUES (?, ?, ?, ?, ?)`)
		if _, err := r.db.ExecContext(ctx, insert,
			profile.Name, profile.Email, model.RoleParticipant, profile.SubjectID, profile.AvatarURL,
		); err != nil {
			// Two first sign-ins can race on the email unique constraint; the
			// loser falls through to the row the winner created.
			if fallback, ferr := r.FindByEmail(ctx, profile.Email); ferr == nil {
				return fallback, nil
			}
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return r.FindByEmail(ctx, profile.Email)
	default:
		return nil, err
	}
}

func (r *sqlUserRepository) refresh(ctx context.Context, existing *model.User, profile UserProfile) error {
	var setClauses []string
	var args []any

	if profile.Name != "" && profile.Name != existing.Name {
		setClauses = append(setClauses, "name = ?")
		args = append(args, profile.Name)
	}
	if profile.SubjectID != nil && existing.SubjectID == nil {
		setClauses = append(setClauses, "subject_id = ?")
		args = append(args, *profile.SubjectID)
	}
	if profile.AvatarURL != nil && (existing.AvatarURL == nil || *existing.AvatarURL != *profile.AvatarURL) {
		setClauses = append(setClauses, "avatar_url = ?")
		args = append(args, *profile.AvatarURL)
	}

	if len(setClauses) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE users SET %s WHERE user_id = ?", strings.Join(setClauses, ", "))
	args = append(args, existing.ID)

	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	return err
}
