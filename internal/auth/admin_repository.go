package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/OER-Forge/raisemyhand/internal/models"
)

var (
	// ErrAlreadyActive means the account is not deactivated.
	ErrAlreadyActive = errors.New("instructor already active")
	// ErrAlreadyInactive means the account is already deactivated.
	ErrAlreadyInactive = errors.New("instructor already inactive")
)

// Account badges for the admin listing. Placeholder accounts were created
// by an admin and have never logged in.
const (
	BadgeActive      = "active"
	BadgeInactive    = "inactive"
	BadgePlaceholder = "placeholder"
)

// InstructorOverview is an account with usage counts for the admin views.
type InstructorOverview struct {
	models.Instructor
	Badge          string `json:"badge"`
	ClassCount     int    `json:"class_count"`
	MeetingCount   int    `json:"meeting_count"`
	ActiveMeetings int    `json:"active_meetings"`
	APIKeyCount    int    `json:"api_key_count"`
}

// InstructorFilter narrows the admin instructor listing.
type InstructorFilter struct {
	Search string // matches username, email, or display name
	Status string // BadgeActive, BadgeInactive, or BadgePlaceholder
	Limit  int
	Offset int
}

const overviewColumns = `i.id, i.username, COALESCE(i.email, ''), COALESCE(i.display_name, ''),
		i.role, i.is_active, i.created_at, i.last_login,
		COUNT(DISTINCT c.id) FILTER (WHERE NOT c.is_archived),
		COUNT(DISTINCT m.id),
		COUNT(DISTINCT m.id) FILTER (WHERE m.is_active),
		COUNT(DISTINCT k.id) FILTER (WHERE k.is_active)`

const overviewJoins = `FROM instructors i
	LEFT JOIN classes c ON c.instructor_id = i.id
	LEFT JOIN meetings m ON m.class_id = c.id
	LEFT JOIN api_keys k ON k.instructor_id = i.id`

func scanOverview(row pgx.Row) (*InstructorOverview, error) {
	var o InstructorOverview
	err := row.Scan(&o.ID, &o.Username, &o.Email, &o.DisplayName,
		&o.Role, &o.IsActive, &o.CreatedAt, &o.LastLogin,
		&o.ClassCount, &o.MeetingCount, &o.ActiveMeetings, &o.APIKeyCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInstructorNotFound
	}
	if err != nil {
		return nil, err
	}
	switch {
	case o.LastLogin == nil:
		o.Badge = BadgePlaceholder
	case o.IsActive:
		o.Badge = BadgeActive
	default:
		o.Badge = BadgeInactive
	}
	return &o, nil
}

// ListInstructors returns accounts with usage counts, newest first.
func (r *Repository) ListInstructors(ctx context.Context, f InstructorFilter) ([]InstructorOverview, error) {
	const query = `SELECT ` + overviewColumns + ` ` + overviewJoins + `
		WHERE ($1 = '' OR i.username ILIKE '%' || $1 || '%'
			OR i.email ILIKE '%' || $1 || '%'
			OR i.display_name ILIKE '%' || $1 || '%')
		AND ($2 = ''
			OR ($2 = 'active' AND i.is_active AND i.last_login IS NOT NULL)
			OR ($2 = 'inactive' AND NOT i.is_active)
			OR ($2 = 'placeholder' AND i.last_login IS NULL))
		GROUP BY i.id
		ORDER BY i.created_at DESC
		LIMIT $3 OFFSET $4`

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, query, f.Search, f.Status, limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []InstructorOverview{}
	for rows.Next() {
		o, err := scanOverview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// GetInstructorOverview returns one account with its usage counts.
func (r *Repository) GetInstructorOverview(ctx context.Context, id uuid.UUID) (*InstructorOverview, error) {
	const query = `SELECT ` + overviewColumns + ` ` + overviewJoins + `
		WHERE i.id = $1
		GROUP BY i.id`
	return scanOverview(r.pool.QueryRow(ctx, query, id))
}

// DeactivateInstructor marks the account inactive and cascades in one
// transaction: its active meetings are ended, its API keys revoked, and
// its classes archived. Historical data stays readable.
func (r *Repository) DeactivateInstructor(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE instructors SET is_active = FALSE WHERE id = $1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyInactive
	}

	if _, err := tx.Exec(ctx,
		`UPDATE meetings m SET is_active = FALSE, ended_at = NOW()
		FROM classes c
		WHERE m.class_id = c.id AND c.instructor_id = $1 AND m.is_active`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE api_keys SET is_active = FALSE WHERE instructor_id = $1 AND is_active`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE classes SET is_archived = TRUE, updated_at = NOW()
		WHERE instructor_id = $1 AND NOT is_archived`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ActivateInstructor reverses a deactivation. Archived classes stay
// archived and revoked keys stay revoked; only the account flag flips.
func (r *Repository) ActivateInstructor(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE instructors SET is_active = TRUE WHERE id = $1 AND NOT is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyActive
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE instructors SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInstructorNotFound
	}
	return nil
}
