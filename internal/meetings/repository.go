package meetings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OER-Forge/raisemyhand/internal/models"
)

var (
	// ErrNotFound means no meeting matches the given code or ID.
	ErrNotFound = errors.New("meeting not found")
	// ErrNotActive means the meeting exists but has ended.
	ErrNotActive = errors.New("meeting not active")
)

const meetingColumns = `id, class_id, meeting_code, instructor_code, title, is_active, created_at, started_at, ended_at`

// Repository handles meeting persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a meetings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new meeting under a class.
func (r *Repository) Create(ctx context.Context, m *models.Meeting) error {
	const query = `INSERT INTO meetings (class_id, meeting_code, instructor_code, title, started_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, is_active, created_at, started_at`
	return r.pool.QueryRow(ctx, query, m.ClassID, m.MeetingCode, m.InstructorCode, m.Title).
		Scan(&m.ID, &m.IsActive, &m.CreatedAt, &m.StartedAt)
}

func (r *Repository) scanOne(row pgx.Row) (*models.Meeting, error) {
	var m models.Meeting
	err := row.Scan(&m.ID, &m.ClassID, &m.MeetingCode, &m.InstructorCode, &m.Title,
		&m.IsActive, &m.CreatedAt, &m.StartedAt, &m.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByCode returns the meeting with the given student-facing code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*models.Meeting, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE meeting_code = $1`, code))
}

// GetByInstructorCode returns the meeting with the given instructor code.
func (r *Repository) GetByInstructorCode(ctx context.Context, code string) (*models.Meeting, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE instructor_code = $1`, code))
}

// GetActiveByCode returns the meeting for a student-facing code, failing
// with ErrNotActive when it has ended. This is the validation gate for
// question submission and websocket registration.
func (r *Repository) GetActiveByCode(ctx context.Context, code string) (*models.Meeting, error) {
	m, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !m.IsActive {
		return nil, ErrNotActive
	}
	return m, nil
}

// CodeByID returns the student-facing code of a meeting.
func (r *Repository) CodeByID(ctx context.Context, id uuid.UUID) (string, error) {
	var code string
	err := r.pool.QueryRow(ctx, `SELECT meeting_code FROM meetings WHERE id = $1`, id).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return code, err
}

// OwnerID returns the instructor owning the meeting's class.
func (r *Repository) OwnerID(ctx context.Context, meetingID uuid.UUID) (uuid.UUID, error) {
	const query = `SELECT c.instructor_id FROM meetings m
		JOIN classes c ON c.id = m.class_id
		WHERE m.id = $1`
	var owner uuid.UUID
	err := r.pool.QueryRow(ctx, query, meetingID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	return owner, err
}

// End deactivates a meeting.
func (r *Repository) End(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE meetings SET is_active = FALSE, ended_at = NOW() WHERE id = $1`, id)
	return err
}

// Restart reactivates an ended meeting.
func (r *Repository) Restart(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE meetings SET is_active = TRUE, ended_at = NULL WHERE id = $1`, id)
	return err
}

// ListByClass returns a class's meetings, newest first.
func (r *Repository) ListByClass(ctx context.Context, classID uuid.UUID) ([]models.Meeting, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE class_id = $1 ORDER BY created_at DESC`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Meeting
	for rows.Next() {
		var m models.Meeting
		if err := rows.Scan(&m.ID, &m.ClassID, &m.MeetingCode, &m.InstructorCode, &m.Title,
			&m.IsActive, &m.CreatedAt, &m.StartedAt, &m.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
