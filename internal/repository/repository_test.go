package repository

import (
	"context"
	"testing"
	"time"

	"workshop-service/internal/config"
	"workshop-service/internal/storage"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	cfg := config.Config{
		DBType:   config.DBTypeSqlite,
		DBFolder: t.TempDir(),
		DBName:   "test.db",
	}

	db, err := storage.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sqlx.DB, name, email string) int64 {
	t.Helper()

	res, err := db.Exec(`INSERT INTO users (name, email, role) VALUES (?, ?, 'PARTICIPANT')`, name, email)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func seedWorkshop(t *testing.T, db *sqlx.DB, title string, capacity int) int64 {
	t.Helper()

	res, err := db.Exec(
		`INSERT INTO workshop (title, description, session_datetime, duration_min, max_capacity)
		 VALUES (?, '', ?, 90, ?)`,
		title, time.Now().Add(48*time.Hour).UTC(), capacity)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func seedSkill(t *testing.T, db *sqlx.DB, name string) int64 {
	t.Helper()

	res, err := db.Exec(`INSERT INTO skill (name) VALUES (?)`, name)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func tagWorkshopSkill(t *testing.T, db *sqlx.DB, workshopID, skillID int64) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO workshop_skill (workshop_id, skill_id) VALUES (?, ?)`, workshopID, skillID)
	require.NoError(t, err)
}

func grantUserSkill(t *testing.T, db *sqlx.DB, userID, skillID int64, grade int) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO user_skill (user_id, skill_id, grade) VALUES (?, ?, ?)`, userID, skillID, grade)
	require.NoError(t, err)
}

func testCtx() context.Context {
	return context.Background()
}
