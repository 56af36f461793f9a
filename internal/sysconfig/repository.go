package sysconfig

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OER-Forge/raisemyhand/internal/models"
)

// ErrNotFound means no config entry exists for the key.
var ErrNotFound = errors.New("config key not found")

// Repository handles system_config persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sysconfig repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns one config entry.
func (r *Repository) Get(ctx context.Context, key string) (*models.SystemConfig, error) {
	var sc models.SystemConfig
	err := r.pool.QueryRow(ctx,
		`SELECT key, value, value_type, COALESCE(description, ''), COALESCE(updated_by, ''), updated_at
			FROM system_config WHERE key = $1`, key).
		Scan(&sc.Key, &sc.Value, &sc.ValueType, &sc.Description, &sc.UpdatedBy, &sc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// List returns all config entries sorted by key.
func (r *Repository) List(ctx context.Context) ([]models.SystemConfig, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT key, value, value_type, COALESCE(description, ''), COALESCE(updated_by, ''), updated_at
			FROM system_config ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SystemConfig
	for rows.Next() {
		var sc models.SystemConfig
		if err := rows.Scan(&sc.Key, &sc.Value, &sc.ValueType, &sc.Description, &sc.UpdatedBy, &sc.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Set updates an existing config entry. Unknown keys are rejected.
func (r *Repository) Set(ctx context.Context, key, value, updatedBy string) (*models.SystemConfig, error) {
	var sc models.SystemConfig
	err := r.pool.QueryRow(ctx,
		`UPDATE system_config SET value = $2, updated_by = $3, updated_at = NOW()
			WHERE key = $1
			RETURNING key, value, value_type, COALESCE(description, ''), COALESCE(updated_by, ''), updated_at`,
		key, value, updatedBy).
		Scan(&sc.Key, &sc.Value, &sc.ValueType, &sc.Description, &sc.UpdatedBy, &sc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// BoolFlag returns a boolean config value, or def when the key cannot
// be read.
func (r *Repository) BoolFlag(ctx context.Context, key string, def bool) bool {
	sc, err := r.Get(ctx, key)
	if err != nil {
		return def
	}
	return sc.BoolValue()
}
