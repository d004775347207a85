// Package sessions manages the course session calendar and seat accounting.
package sessions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stride-coaching/backend/internal/models"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("session not found")

const sessionColumns = `id, name, session_date, start_time, end_time, month, capacity, created_at, updated_at`

// Repository handles course session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a session repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a session with a caller-chosen id.
func (r *Repository) Create(ctx context.Context, s *models.CourseSession) error {
	const q = `INSERT INTO course_sessions (id, name, session_date, start_time, end_time, month, capacity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, q, s.ID, s.Name, s.Date, s.StartTime, s.EndTime, s.Month, s.Capacity).
		Scan(&s.CreatedAt, &s.UpdatedAt)
}

// Update rewrites a session's schedule and capacity.
func (r *Repository) Update(ctx context.Context, s *models.CourseSession) error {
	const q = `UPDATE course_sessions SET name = $1, session_date = $2, start_time = $3, end_time = $4, month = $5, capacity = $6, updated_at = NOW()
		WHERE id = $7 RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, s.Name, s.Date, s.StartTime, s.EndTime, s.Month, s.Capacity, s.ID).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete removes a session.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM course_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns one session.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.CourseSession, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM course_sessions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// GetByIDs returns the sessions that exist among ids, keyed by id.
func (r *Repository) GetByIDs(ctx context.Context, ids []string) (map[string]models.CourseSession, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM course_sessions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]models.CourseSession, len(ids))
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out[s.ID] = *s
	}
	return out, rows.Err()
}

// List returns all sessions ordered by date and start time.
func (r *Repository) List(ctx context.Context) ([]models.CourseSession, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM course_sessions ORDER BY session_date, start_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.CourseSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// SeatsTaken sums attendees over registrations that hold the session and have not failed payment.
func (r *Repository) SeatsTaken(ctx context.Context, sessionID string) (int, error) {
	const q = `SELECT COALESCE(SUM(jsonb_array_length(attendees)), 0)
		FROM course_registrations
		WHERE $1 = ANY(session_ids) AND payment_status <> 'failed'`
	var n int
	err := r.pool.QueryRow(ctx, q, sessionID).Scan(&n)
	return n, err
}

func scanSession(row pgx.Row) (*models.CourseSession, error) {
	var s models.CourseSession
	if err := row.Scan(&s.ID, &s.Name, &s.Date, &s.StartTime, &s.EndTime, &s.Month, &s.Capacity, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
