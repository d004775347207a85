package notifications

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stride-coaching/backend/internal/models"
)

// ErrNotFound is returned when no log row matches.
var ErrNotFound = errors.New("notification log not found")

const logColumns = `id, event_type, target_url, reference_id, payload, status, attempt, response_code, error_message, sent_at, created_at`

// Repository handles notification_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notification log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create records one delivery attempt.
func (r *Repository) Create(ctx context.Context, l *models.NotificationLog) error {
	const q = `INSERT INTO notification_logs (event_type, target_url, reference_id, payload, status, attempt, response_code, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, l.EventType, l.TargetURL, l.ReferenceID, []byte(l.Payload), l.Status, l.Attempt, l.ResponseCode, l.ErrorMessage, l.SentAt).
		Scan(&l.ID, &l.CreatedAt)
}

// GetByID returns one log row.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.NotificationLog, error) {
	l, err := scanLog(r.pool.QueryRow(ctx, `SELECT `+logColumns+` FROM notification_logs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

// List returns log rows newest first, optionally only one status.
func (r *Repository) List(ctx context.Context, status string, limit, offset int) ([]models.NotificationLog, error) {
	q := `SELECT ` + logColumns + ` FROM notification_logs`
	args := []interface{}{limit, offset}
	if status != "" {
		q += ` WHERE status = $3`
		args = append(args, status)
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.NotificationLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *l)
	}
	return list, rows.Err()
}

func scanLog(row pgx.Row) (*models.NotificationLog, error) {
	var l models.NotificationLog
	var payload []byte
	if err := row.Scan(&l.ID, &l.EventType, &l.TargetURL, &l.ReferenceID, &payload, &l.Status, &l.Attempt, &l.ResponseCode,
		&l.ErrorMessage, &l.SentAt, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Payload = payload
	return &l, nil
}
