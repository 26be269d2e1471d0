package repository

import (
	"fmt"
	"sync"
	"testing"

	"workshop-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	userID := seedUser(t, db, "Dana", "dana@example.com")
	workshopID := seedWorkshop(t, db, "Intro to SDR", 10)

	action, err := repo.Signup(testCtx(), userID, workshopID)
	require.NoError(t, err)
	assert.Equal(t, ActionRegistered, action)

	reg, err := repo.Find(testCtx(), userID, workshopID)
	require.NoError(t, err)
	require.NotNil(t, reg)
	assert.Equal(t, model.StatusConfirmed, reg.Status)
}

func TestRegistrationLockPerDriver(t *testing.T) {
	// SQL Server reads run against a row-version snapshot, so the capacity
	// guard there must take range locks; sqlite serializes on its single
	// pooled connection and must stay hint-free.
	assert.Equal(t, " WITH (UPDLOCK, HOLDLOCK)", registrationLock("sqlserver"))
	assert.Equal(t, "", registrationLock("sqlite"))
}

func TestSignupUnknownWorkshop(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	userID := seedUser(t, db, "Dana", "dana@example.com")

	_, err := repo.Signup(testCtx(), userID, 9999)
	assert.ErrorIs(t, err, ErrWorkshopNotFound)
}

func TestSignupTwiceConflicts(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	userID := seedUser(t, db, "Dana", "dana@example.com")
	workshopID := seedWorkshop(t, db, "Intro to SDR", 10)

	_, err := repo.Signup(testCtx(), userID, workshopID)
	require.NoError(t, err)

	_, err = repo.Signup(testCtx(), userID, workshopID)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestSignupRejectsWhenFull(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	workshopID := seedWorkshop(t, db, "Lockpicking 101", 1)

	first := seedUser(t, db, "Dana", "dana@example.com")
	second := seedUser(t, db, "Omer", "omer@example.com")

	_, err := repo.Signup(testCtx(), first, workshopID)
	require.NoError(t, err)

	_, err = repo.Signup(testCtx(), second, workshopID)
	assert.ErrorIs(t, err, ErrWorkshopFull)
}

func TestSignupReactivatesCancelledRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	userID := seedUser(t, db, "Dana", "dana@example.com")
	workshopID := seedWorkshop(t, db, "Intro to SDR", 10)

	_, err := repo.Signup(testCtx(), userID, workshopID)
	require.NoError(t, err)
	_, err = repo.Cancel(testCtx(), userID, workshopID)
	require.NoError(t, err)

	action, err := repo.Signup(testCtx(), userID, workshopID)
	require.NoError(t, err)
	assert.Equal(t, ActionReregistered, action)

	// Re-registering must reuse the row, not duplicate it.
	var rows int
	require.NoError(t, db.Get(&rows,
		`SELECT COUNT(*) FROM registration WHERE user_id = ? AND workshop_id = ?`, userID, workshopID))
	assert.Equal(t, 1, rows)
}

func TestCancelledSlotFreesCapacity(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	workshopID := seedWorkshop(t, db, "Lockpicking 101", 1)

	first := seedUser(t, db, "Dana", "dana@example.com")
	second := seedUser(t, db, "Omer", "omer@example.com")

	_, err := repo.Signup(testCtx(), first, workshopID)
	require.NoError(t, err)
	_, err = repo.Cancel(testCtx(), first, workshopID)
	require.NoError(t, err)

	_, err = repo.Signup(testCtx(), second, workshopID)
	require.NoError(t, err)
}

func TestCancelIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	userID := seedUser(t, db, "Dana", "dana@example.com")
	workshopID := seedWorkshop(t, db, "Intro to SDR", 10)

	_, err := repo.Signup(testCtx(), userID, workshopID)
	require.NoError(t, err)

	reg, err := repo.Cancel(testCtx(), userID, workshopID)
	require.NoError(t, err)
	require.NotNil(t, reg)
	assert.Equal(t, model.StatusCancelled, reg.Status)

	// Second cancel is a no-op success with the same final state.
	reg, err = repo.Cancel(testCtx(), userID, workshopID)
	require.NoError(t, err)
	require.NotNil(t, reg)
	assert.Equal(t, model.StatusCancelled, reg.Status)
}

func TestCancelWithoutRegistrationSucceeds(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	userID := seedUser(t, db, "Dana", "dana@example.com")
	workshopID := seedWorkshop(t, db, "Intro to SDR", 10)

	reg, err := repo.Cancel(testCtx(), userID, workshopID)
	require.NoError(t, err)
	assert.Nil(t, reg)
}

// TestConcurrentSignupNeverOversells fans 20 users out against 5 slots; the
// guarded write must admit exactly 5.
func TestConcurrentSignupNeverOversells(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegistrationRepository(db)
	workshopID := seedWorkshop(t, db, "Golang Concurrency Workshop", 5)

	const attempts = 20
	userIDs := make([]int64, attempts)
	for i := range userIDs {
		userIDs[i] = seedUser(t, db, fmt.Sprintf("User %d", i), fmt.Sprintf("user%d@example.com", i))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, fullErrors := 0, 0

	for _, userID := range userIDs {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()

			_, err := repo.Signup(testCtx(), userID, workshopID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, ErrWorkshopFull):
				fullErrors++
			}
		}(userID)
	}
	wg.Wait()

	assert.Equal(t, 5, successes)
	assert.Equal(t, attempts-5, fullErrors)

	count, err := repo.ConfirmedCount(testCtx(), workshopID)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}
