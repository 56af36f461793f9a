package questions

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OER-Forge/raisemyhand/internal/models"
	"github.com/OER-Forge/raisemyhand/pkg/database"
)

// setupTestDB connects to the database named by TEST_DATABASE_URL, runs
// migrations and clears all tables. Tests are skipped when the variable is
// unset.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool))
	_, err = pool.Exec(ctx,
		`TRUNCATE question_votes, answers, questions, meetings, classes, api_keys, instructors CASCADE`)
	require.NoError(t, err)

	return pool
}

// createTestMeeting inserts an instructor, class and active meeting, and
// returns the meeting ID.
func createTestMeeting(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	var instructorID uuid.UUID
	err := pool.QueryRow(ctx,
		`INSERT INTO instructors (username, password_hash) VALUES ($1, 'x') RETURNING id`,
		"prof_"+uuid.New().String()[:8]).Scan(&instructorID)
	require.NoError(t, err)

	var classID uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO classes (instructor_id, name) VALUES ($1, 'CS 101') RETURNING id`,
		instructorID).Scan(&classID)
	require.NoError(t, err)

	var meetingID uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO meetings (class_id, meeting_code, instructor_code, title, started_at)
			VALUES ($1, $2, $3, 'Lecture 1', NOW()) RETURNING id`,
		classID, uuid.New().String(), uuid.New().String()).Scan(&meetingID)
	require.NoError(t, err)

	return meetingID
}

func createTestQuestion(t *testing.T, repo *Repository, meetingID uuid.UUID, text string) *models.Question {
	t.Helper()
	q := &models.Question{
		MeetingID: meetingID,
		StudentID: uuid.New().String(),
		Text:      text,
		Status:    models.StatusApproved,
	}
	require.NoError(t, repo.Create(context.Background(), q))
	return q
}

func TestCreate_SequentialNumbers(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	meetingID := createTestMeeting(t, pool)

	for i := 1; i <= 5; i++ {
		q := createTestQuestion(t, repo, meetingID, fmt.Sprintf("question %d", i))
		assert.Equal(t, i, q.QuestionNumber)
		assert.NotEqual(t, uuid.Nil, q.ID)
		assert.Equal(t, 0, q.Upvotes)
	}
}

func TestCreate_NumbersScopedPerMeeting(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	meetingA := createTestMeeting(t, pool)
	meetingB := createTestMeeting(t, pool)

	createTestQuestion(t, repo, meetingA, "a1")
	createTestQuestion(t, repo, meetingA, "a2")
	qb := createTestQuestion(t, repo, meetingB, "b1")

	assert.Equal(t, 1, qb.QuestionNumber, "numbering restarts per meeting")
}

func TestCreate_ConcurrentSubmissions(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	meetingID := createTestMeeting(t, pool)

	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	var numbers []int
	errs := make([]error, 0, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := &models.Question{
				MeetingID: meetingID,
				StudentID: uuid.New().String(),
				Text:      fmt.Sprintf("concurrent question %d", i),
				Status:    models.StatusApproved,
			}
			err := repo.Create(context.Background(), q)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, q.QuestionNumber)
		}(i)
	}
	wg.Wait()

	// A submission that loses the race too many times fails with the typed
	// exhaustion error and consumes no number, so the committed numbers are
	// exactly 1..len with no gaps or duplicates.
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrConcurrencyExhausted)
	}
	require.NotEmpty(t, numbers)
	assert.Len(t, numbers, n-len(errs))
	sort.Ints(numbers)
	for i, num := range numbers {
		assert.Equal(t, i+1, num)
	}
}

func TestToggleVote_AddRemoveAdd(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	meetingID := createTestMeeting(t, pool)
	q := createTestQuestion(t, repo, meetingID, "toggle me")
	ctx := context.Background()

	res, err := repo.ToggleVote(ctx, q.ID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, ActionAdded, res.Action)
	assert.Equal(t, 1, res.Upvotes)
	assert.Equal(t, meetingID, res.MeetingID)

	res, err = repo.ToggleVote(ctx, q.ID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, ActionRemoved, res.Action)
	assert.Equal(t, 0, res.Upvotes)

	res, err = repo.ToggleVote(ctx, q.ID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, ActionAdded, res.Action)
	assert.Equal(t, 1, res.Upvotes)
}

func TestToggleVote_QuestionNotFound(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)

	_, err := repo.ToggleVote(context.Background(), uuid.New(), "student-1")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestToggleVote_ConcurrentVoters(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	meetingID := createTestMeeting(t, pool)
	q := createTestQuestion(t, repo, meetingID, "popular question")

	const n = 30
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.ToggleVote(context.Background(), q.ID, fmt.Sprintf("student-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// The tally must agree with the vote rows: no lost increments.
	updated, err := repo.GetByID(context.Background(), q.ID)
	require.NoError(t, err)
	votes, err := repo.CountVotes(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, n, updated.Upvotes)
	assert.Equal(t, n, votes)
}

func TestUpdateStatus(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	meetingID := createTestMeeting(t, pool)
	q := createTestQuestion(t, repo, meetingID, "moderate me")
	require.Nil(t, q.ReviewedAt)

	updated, err := repo.UpdateStatus(context.Background(), q.ID, models.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, updated.Status)
	assert.NotNil(t, updated.ReviewedAt)

	_, err = repo.UpdateStatus(context.Background(), uuid.New(), models.StatusApproved)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestSetAnsweredInClass(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	meetingID := createTestMeeting(t, pool)
	q := createTestQuestion(t, repo, meetingID, "answer me")

	updated, err := repo.SetAnsweredInClass(context.Background(), q.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.AnsweredInClass)

	updated, err = repo.SetAnsweredInClass(context.Background(), q.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.AnsweredInClass)
}

func TestListByMeeting_OrderAndFilter(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	meetingID := createTestMeeting(t, pool)
	ctx := context.Background()

	q1 := createTestQuestion(t, repo, meetingID, "first")
	q2 := createTestQuestion(t, repo, meetingID, "second")
	q3 := createTestQuestion(t, repo, meetingID, "third")

	// q2 gets two votes, q3 one, q1 none.
	for _, s := range []string{"s1", "s2"} {
		_, err := repo.ToggleVote(ctx, q2.ID, s)
		require.NoError(t, err)
	}
	_, err := repo.ToggleVote(ctx, q3.ID, "s1")
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, q1.ID, models.StatusRejected)
	require.NoError(t, err)

	all, err := repo.ListByMeeting(ctx, meetingID, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, q2.ID, all[0].ID, "most upvoted first")
	assert.Equal(t, q3.ID, all[1].ID)
	assert.Equal(t, q1.ID, all[2].ID)

	approved, err := repo.ListByMeeting(ctx, meetingID, true)
	require.NoError(t, err)
	require.Len(t, approved, 2)
	for _, q := range approved {
		assert.Equal(t, models.StatusApproved, q.Status)
	}
}
