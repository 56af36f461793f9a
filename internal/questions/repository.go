package questions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OER-Forge/raisemyhand/internal/models"
)

// maxNumberAttempts bounds the numbering retry loop. The unique constraint
// on (meeting_id, question_number) is the correctness backstop; the locking
// read makes collisions rare, not impossible.
const maxNumberAttempts = 3

// Vote toggle outcomes.
const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// VoteResult is the outcome of a vote toggle.
type VoteResult struct {
	QuestionID uuid.UUID `json:"question_id"`
	MeetingID  uuid.UUID `json:"-"`
	Upvotes    int       `json:"upvotes"`
	Action     string    `json:"action"`
}

// Repository handles question and vote persistence, including the
// meeting-scoped question numbering and the upvote tally.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a questions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new question with the next question number for its
// meeting. Each attempt runs in its own transaction: lock the current
// highest-numbered row, insert max+1, commit. Losing the race surfaces as a
// unique violation, which triggers a retry; exhaustion returns
// ErrConcurrencyExhausted with nothing committed.
func (r *Repository) Create(ctx context.Context, q *models.Question) error {
	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		err = r.tryCreate(ctx, q)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err, "uq_meeting_question_number") {
			return err
		}
	}
	return ErrConcurrencyExhausted
}

func (r *Repository) tryCreate(ctx context.Context, q *models.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Lock the current max row so concurrent submitters serialize here in
	// the common case. With zero rows nothing is locked and the unique
	// constraint arbitrates instead.
	const maxQuery = `SELECT question_number FROM questions
		WHERE meeting_id = $1
		ORDER BY question_number DESC LIMIT 1 FOR UPDATE`
	var max int
	err = tx.QueryRow(ctx, maxQuery, q.MeetingID).Scan(&max)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	q.QuestionNumber = max + 1

	const insert = `INSERT INTO questions (meeting_id, student_id, question_number, text, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, upvotes, answered_in_class, created_at`
	err = tx.QueryRow(ctx, insert, q.MeetingID, q.StudentID, q.QuestionNumber, q.Text, q.Status).
		Scan(&q.ID, &q.Upvotes, &q.AnsweredInClass, &q.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ToggleVote adds or removes this student's vote on a question in one
// transaction. The tally moves with a store-side relative update so
// concurrent toggles on the same question never lose increments, and the
// decrement is floored at zero in the same statement.
func (r *Repository) ToggleVote(ctx context.Context, questionID uuid.UUID, studentID string) (*VoteResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	res := &VoteResult{QuestionID: questionID}
	err = tx.QueryRow(ctx, `SELECT meeting_id FROM questions WHERE id = $1`, questionID).
		Scan(&res.MeetingID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM question_votes WHERE question_id = $1 AND student_id = $2`,
		questionID, studentID)
	if err != nil {
		return nil, err
	}

	if tag.RowsAffected() > 0 {
		res.Action = ActionRemoved
		err = tx.QueryRow(ctx,
			`UPDATE questions SET upvotes = GREATEST(upvotes - 1, 0) WHERE id = $1 RETURNING upvotes`,
			questionID).Scan(&res.Upvotes)
	} else {
		res.Action = ActionAdded
		var ins pgconn.CommandTag
		ins, err = tx.Exec(ctx,
			`INSERT INTO question_votes (question_id, student_id) VALUES ($1, $2)
			 ON CONFLICT (question_id, student_id) DO NOTHING`,
			questionID, studentID)
		if err != nil {
			return nil, err
		}
		if ins.RowsAffected() > 0 {
			err = tx.QueryRow(ctx,
				`UPDATE questions SET upvotes = upvotes + 1 WHERE id = $1 RETURNING upvotes`,
				questionID).Scan(&res.Upvotes)
		} else {
			// A concurrent request already added this exact vote; report the
			// current tally without moving it.
			err = tx.QueryRow(ctx, `SELECT upvotes FROM questions WHERE id = $1`, questionID).
				Scan(&res.Upvotes)
		}
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// GetByID returns a question by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	const query = `SELECT id, meeting_id, student_id, question_number, text, status, upvotes, answered_in_class, created_at, reviewed_at
		FROM questions WHERE id = $1`
	var q models.Question
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&q.ID, &q.MeetingID, &q.StudentID, &q.QuestionNumber, &q.Text, &q.Status,
			&q.Upvotes, &q.AnsweredInClass, &q.CreatedAt, &q.ReviewedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListByMeeting returns a meeting's questions, most upvoted first. When
// approvedOnly is set, moderated-out questions are filtered (student view).
func (r *Repository) ListByMeeting(ctx context.Context, meetingID uuid.UUID, approvedOnly bool) ([]models.Question, error) {
	query := `SELECT id, meeting_id, student_id, question_number, text, status, upvotes, answered_in_class, created_at, reviewed_at
		FROM questions WHERE meeting_id = $1`
	if approvedOnly {
		query += ` AND status = 'approved'`
	}
	query += ` ORDER BY upvotes DESC, question_number ASC`

	rows, err := r.pool.Query(ctx, query, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.MeetingID, &q.StudentID, &q.QuestionNumber, &q.Text,
			&q.Status, &q.Upvotes, &q.AnsweredInClass, &q.CreatedAt, &q.ReviewedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// UpdateStatus moves a question to a new moderation state and stamps the
// review time. Returns the updated question.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.QuestionStatus) (*models.Question, error) {
	const query = `UPDATE questions SET status = $2, reviewed_at = NOW() WHERE id = $1
		RETURNING id, meeting_id, student_id, question_number, text, status, upvotes, answered_in_class, created_at, reviewed_at`
	var q models.Question
	err := r.pool.QueryRow(ctx, query, id, status).
		Scan(&q.ID, &q.MeetingID, &q.StudentID, &q.QuestionNumber, &q.Text, &q.Status,
			&q.Upvotes, &q.AnsweredInClass, &q.CreatedAt, &q.ReviewedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// SetAnsweredInClass flips the answered-in-class flag.
func (r *Repository) SetAnsweredInClass(ctx context.Context, id uuid.UUID, answered bool) (*models.Question, error) {
	const query = `UPDATE questions SET answered_in_class = $2 WHERE id = $1
		RETURNING id, meeting_id, student_id, question_number, text, status, upvotes, answered_in_class, created_at, reviewed_at`
	var q models.Question
	err := r.pool.QueryRow(ctx, query, id, answered).
		Scan(&q.ID, &q.MeetingID, &q.StudentID, &q.QuestionNumber, &q.Text, &q.Status,
			&q.Upvotes, &q.AnsweredInClass, &q.CreatedAt, &q.ReviewedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// CountVotes returns the number of vote rows for a question.
func (r *Repository) CountVotes(ctx context.Context, questionID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM question_votes WHERE question_id = $1`, questionID).Scan(&n)
	return n, err
}
