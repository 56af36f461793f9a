package classes

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OER-Forge/raisemyhand/internal/models"
)

// ErrNotFound means no class matches the given ID.
var ErrNotFound = errors.New("class not found")

const classColumns = `id, instructor_id, name, description, is_archived, created_at, updated_at`

// Repository handles class persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a classes repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new class.
func (r *Repository) Create(ctx context.Context, cl *models.Class) error {
	const query = `INSERT INTO classes (instructor_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, is_archived, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, cl.InstructorID, cl.Name, cl.Description).
		Scan(&cl.ID, &cl.IsArchived, &cl.CreatedAt, &cl.UpdatedAt)
}

// GetByID returns a class by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Class, error) {
	var cl models.Class
	err := r.pool.QueryRow(ctx,
		`SELECT `+classColumns+` FROM classes WHERE id = $1`, id).
		Scan(&cl.ID, &cl.InstructorID, &cl.Name, &cl.Description, &cl.IsArchived, &cl.CreatedAt, &cl.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

// OwnerID returns the instructor owning a class.
func (r *Repository) OwnerID(ctx context.Context, classID uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT instructor_id FROM classes WHERE id = $1`, classID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	return owner, err
}

// ListByInstructor returns an instructor's classes, newest first. Archived
// classes are included so past meetings stay reachable.
func (r *Repository) ListByInstructor(ctx context.Context, instructorID uuid.UUID) ([]models.Class, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+classColumns+` FROM classes WHERE instructor_id = $1 ORDER BY created_at DESC`, instructorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Class
	for rows.Next() {
		var cl models.Class
		if err := rows.Scan(&cl.ID, &cl.InstructorID, &cl.Name, &cl.Description,
			&cl.IsArchived, &cl.CreatedAt, &cl.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, cl)
	}
	return out, rows.Err()
}

// Update changes a class's name and description.
func (r *Repository) Update(ctx context.Context, cl *models.Class) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE classes SET name = $2, description = $3, updated_at = NOW() WHERE id = $1`,
		cl.ID, cl.Name, cl.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetArchived toggles a class's archived flag.
func (r *Repository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE classes SET is_archived = $2, updated_at = NOW() WHERE id = $1`, id, archived)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
