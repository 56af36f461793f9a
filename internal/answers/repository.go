package answers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OER-Forge/raisemyhand/internal/models"
)

// ErrNotFound means no answer exists for the given question.
var ErrNotFound = errors.New("answer not found")

const answerColumns = `id, question_id, instructor_id, answer_text, is_approved, created_at, updated_at`

// Repository handles written-answer persistence. Each question has at most
// one answer; writing again replaces the text and resets approval.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an answers repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert writes the answer for a question, replacing any existing one.
func (r *Repository) Upsert(ctx context.Context, a *models.Answer) error {
	const query = `INSERT INTO answers (question_id, instructor_id, answer_text)
		VALUES ($1, $2, $3)
		ON CONFLICT (question_id) DO UPDATE
			SET answer_text = EXCLUDED.answer_text,
			    instructor_id = EXCLUDED.instructor_id,
			    is_approved = FALSE,
			    updated_at = NOW()
		RETURNING id, is_approved, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, a.QuestionID, a.InstructorID, a.AnswerText).
		Scan(&a.ID, &a.IsApproved, &a.CreatedAt, &a.UpdatedAt)
}

// GetByQuestion returns the answer for a question, if any.
func (r *Repository) GetByQuestion(ctx context.Context, questionID uuid.UUID) (*models.Answer, error) {
	var a models.Answer
	err := r.pool.QueryRow(ctx,
		`SELECT `+answerColumns+` FROM answers WHERE question_id = $1`, questionID).
		Scan(&a.ID, &a.QuestionID, &a.InstructorID, &a.AnswerText, &a.IsApproved, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SetApproved publishes or retracts an answer for student view.
func (r *Repository) SetApproved(ctx context.Context, questionID uuid.UUID, approved bool) (*models.Answer, error) {
	var a models.Answer
	err := r.pool.QueryRow(ctx,
		`UPDATE answers SET is_approved = $2, updated_at = NOW()
			WHERE question_id = $1
			RETURNING `+answerColumns, questionID, approved).
		Scan(&a.ID, &a.QuestionID, &a.InstructorID, &a.AnswerText, &a.IsApproved, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListApprovedByMeeting returns the approved answers across a meeting's
// questions, in question-number order. This is the student view.
func (r *Repository) ListApprovedByMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.Answer, error) {
	const query = `SELECT a.id, a.question_id, a.instructor_id, a.answer_text, a.is_approved, a.created_at, a.updated_at
		FROM answers a
		JOIN questions q ON q.id = a.question_id
		WHERE q.meeting_id = $1 AND a.is_approved
		ORDER BY q.question_number`
	rows, err := r.pool.Query(ctx, query, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Answer
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.InstructorID, &a.AnswerText,
			&a.IsApproved, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes a question's answer.
func (r *Repository) Delete(ctx context.Context, questionID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM answers WHERE question_id = $1`, questionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
