package repository

import (
	"context"
	"database/sql"
	"errors"

	"workshop-service/internal/model"

	"github.com/jmoiron/sqlx"
)

var ErrWorkshopNotFound = errors.New("workshop not found")

type WorkshopRepository interface {
	// List returns all workshops with derived remaining capacity, optionally
	// narrowed to workshops tagged with any of the given skill names.
	List(ctx context.Context, skills []string) ([]model.WorkshopSummary, error)
	FindByID(ctx context.Context, id int64) (*model.WorkshopSummary, error)
	Vacant(ctx context.Context, id int64) (int, error)
	ListBySkill(ctx context.Context, skill string) ([]model.Workshop, error)
	// ListMatchingUserSkills returns workshops whose required skills are all
	// held by the user, including workshops with no requirements.
	ListMatchingUserSkills(ctx context.Context, userID int64) ([]model.Workshop, error)
}

type sqlWorkshopRepository struct {
	db *sqlx.DB
}

func NewWorkshopRepository(db *sqlx.DB) WorkshopRepository {
	return &sqlWorkshopRepository{db: db}
}

const workshopColumns = `w.workshop_id, w.title, w.description, w.session_datetime,
	w.duration_min, w.max_capacity, w.prerequisite, w.required_installations, w.track`

const vacantColumn = `w.max_capacity - (
		SELECT COUNT(*) FROM registration r
		WHERE r.workshop_id = w.workshop_id AND r.status = 'confirmed'
	) AS vacant`

func (r *sqlWorkshopRepository) List(ctx context.Context, skills []string) ([]model.WorkshopSummary, error) {
	query := `SELECT ` + workshopColumns + `, ` + vacantColumn + ` FROM workshop w`
	var args []any

	if len(skills) > 0 {
		query += ` WHERE w.workshop_id IN (
			SELECT ws.workshop_id FROM workshop_skill ws
			JOIN skill s ON s.skill_id = ws.skill_id
			WHERE s.name IN (?)
		)`
		var err error
		query, args, err = sqlx.In(query, skills)
		if err != nil {
			return nil, err
		}
	}

	workshops := []model.WorkshopSummary{}
	if err := r.db.SelectContext(ctx, &workshops, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return workshops, nil
}

func (r *sqlWorkshopRepository) FindByID(ctx context.Context, id int64) (*model.WorkshopSummary, error) {
	var workshop model.WorkshopSummary
	query := r.db.Rebind(`SELECT ` + workshopColumns + `, ` + vacantColumn + ` FROM workshop w WHERE w.workshop_id = ?`)
	if err := r.db.GetContext(ctx, &workshop, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWorkshopNotFound
		}
		return nil, err
	}
	return &workshop, nil
}

func (r *sqlWorkshopRepository) Vacant(ctx context.Context, id int64) (int, error) {
	workshop, err := r.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return workshop.Vacant, nil
}

func (r *sqlWorkshopRepository) ListBySkill(ctx context.Context, skill string) ([]model.Workshop, error) {
	workshops := []model.Workshop{}
	query := r.db.Rebind(`
		SELECT ` + workshopColumns + ` FROM workshop w
		JOIN workshop_skill ws ON ws.workshop_id = w.workshop_id
		JOIN skill s ON s.skill_id = ws.skill_id
		WHERE s.name = ?`)
	if err := r.db.SelectContext(ctx, &workshops, query, skill); err != nil {
		return nil, err
	}
	return workshops, nil
}

func (r *sqlWorkshopRepository) ListMatchingUserSkills(ctx context.Context, userID int64) ([]model.Workshop, error) {
	workshops := []model.Workshop{}
	query := r.db.Rebind(`
		SELECT ` + workshopColumns + ` FROM workshop w
		WHERE NOT EXISTS (
			SELECT 1 FROM workshop_skill ws
			WHERE ws.workshop_id = w.workshop_id
			AND ws.skill_id NOT IN (
				SELECT us.skill_id FROM user_skill us WHERE us.user_id = ?
			)
		)`)
	if err := r.db.SelectContext(ctx, &workshops, query, userID); err != nil {
		return nil, err
	}
	return workshops, nil
}
