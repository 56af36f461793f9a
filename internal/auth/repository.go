package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OER-Forge/raisemyhand/internal/models"
)

var (
	// ErrInstructorNotFound means no matching instructor account exists.
	ErrInstructorNotFound = errors.New("instructor not found")
	// ErrAPIKeyInvalid means the presented API key is unknown or revoked.
	ErrAPIKeyInvalid = errors.New("api key invalid")
)

// Repository handles instructor account and API key persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new instructor account.
func (r *Repository) Create(ctx context.Context, i *models.Instructor) error {
	const query = `INSERT INTO instructors (username, email, display_name, password_hash, role)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)
		RETURNING id, is_active, created_at`
	return r.pool.QueryRow(ctx, query, i.Username, i.Email, i.DisplayName, i.PasswordHash, i.Role).
		Scan(&i.ID, &i.IsActive, &i.CreatedAt)
}

// GetByUsername returns an active instructor by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.Instructor, error) {
	const query = `SELECT id, username, COALESCE(email, ''), COALESCE(display_name, ''), password_hash, role, is_active, created_at, last_login
		FROM instructors WHERE username = $1 AND is_active`
	return r.scanOne(r.pool.QueryRow(ctx, query, username))
}

// GetByID returns an instructor by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Instructor, error) {
	const query = `SELECT id, username, COALESCE(email, ''), COALESCE(display_name, ''), password_hash, role, is_active, created_at, last_login
		FROM instructors WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *Repository) scanOne(row pgx.Row) (*models.Instructor, error) {
	var i models.Instructor
	err := row.Scan(&i.ID, &i.Username, &i.Email, &i.DisplayName, &i.PasswordHash,
		&i.Role, &i.IsActive, &i.CreatedAt, &i.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInstructorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// TouchLastLogin stamps a successful login.
func (r *Repository) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE instructors SET last_login = NOW() WHERE id = $1`, id)
	return err
}

// CreateAPIKey stores a new API key for an instructor.
func (r *Repository) CreateAPIKey(ctx context.Context, k *models.APIKey) error {
	const query = `INSERT INTO api_keys (instructor_id, key, name)
		VALUES ($1, $2, $3)
		RETURNING id, is_active, created_at`
	return r.pool.QueryRow(ctx, query, k.InstructorID, k.Key, k.Name).
		Scan(&k.ID, &k.IsActive, &k.CreatedAt)
}

// ListAPIKeys returns an instructor's keys without the key material.
func (r *Repository) ListAPIKeys(ctx context.Context, instructorID uuid.UUID) ([]models.APIKey, error) {
	const query = `SELECT id, instructor_id, name, is_active, created_at, last_used
		FROM api_keys WHERE instructor_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, instructorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.InstructorID, &k.Name, &k.IsActive, &k.CreatedAt, &k.LastUsed); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// RevokeAPIKey deactivates one of the instructor's own keys.
func (r *Repository) RevokeAPIKey(ctx context.Context, id, instructorID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET is_active = FALSE WHERE id = $1 AND instructor_id = $2`, id, instructorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAPIKeyInvalid
	}
	return nil
}

// ValidateAPIKey resolves an active key to its instructor and touches
// last_used.
func (r *Repository) ValidateAPIKey(ctx context.Context, key string) (uuid.UUID, models.Role, error) {
	const query = `UPDATE api_keys k SET last_used = NOW()
		FROM instructors i
		WHERE k.key = $1 AND k.is_active AND i.id = k.instructor_id AND i.is_active
		RETURNING i.id, i.role`
	var id uuid.UUID
	var role models.Role
	err := r.pool.QueryRow(ctx, query, key).Scan(&id, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, "", ErrAPIKeyInvalid
	}
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, role, nil
}
