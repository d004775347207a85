package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/pkg/database"
)

const (
	eventColumns        = `id, title, slug, description, location, starts_at, ends_at, price, capacity, published, created_at, updated_at`
	registrationColumns = `id, event_id, code, name, email, phone, promo_code, payment_method, original_price, final_price, payment_status, created_at, updated_at`
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (title, slug, description, location, starts_at, ends_at, price, capacity, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, e.Title, e.Slug, e.Description, e.Location, e.StartsAt, e.EndsAt, e.Price, e.Capacity, e.Published).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
	return err
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// List returns events by start time, newest first. publishedOnly hides drafts.
func (r *Repository) List(ctx context.Context, publishedOnly bool) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events`
	if publishedOnly {
		q += ` WHERE published`
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY starts_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Update rewrites an event.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET title = $1, slug = $2, description = $3, location = $4, starts_at = $5, ends_at = $6,
		price = $7, capacity = $8, published = $9, updated_at = NOW()
		WHERE id = $10 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, e.Title, e.Slug, e.Description, e.Location, e.StartsAt, e.EndsAt, e.Price, e.Capacity, e.Published, e.ID).
		Scan(&e.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrSlugTaken
	}
	return err
}

// Delete removes an event by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateRegistration inserts a registration while holding the event row, so the capacity check
// and the insert cannot interleave with another registration for the same event. Failed
// registrations neither hold a seat nor block the same email from trying again.
func (r *Repository) CreateRegistration(ctx context.Context, reg *models.EventRegistration, capacity int) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, reg.EventID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if capacity > 0 {
			var taken int
			const count = `SELECT COUNT(*) FROM event_registrations WHERE event_id = $1 AND payment_status <> 'failed'`
			if err := tx.QueryRow(ctx, count, reg.EventID).Scan(&taken); err != nil {
				return err
			}
			if taken >= capacity {
				return ErrEventFull
			}
		}
		const q = `INSERT INTO event_registrations (event_id, code, name, email, phone, promo_code, payment_method, original_price, final_price, payment_status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, created_at, updated_at`
		err := tx.QueryRow(ctx, q, reg.EventID, reg.Code, reg.Name, reg.Email, reg.Phone, reg.PromoCode, reg.PaymentMethod,
			reg.OriginalPrice, reg.FinalPrice, reg.PaymentStatus).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
		if isUniqueViolation(err) {
			return ErrAlreadyRegistered
		}
		return err
	})
}

// ListRegistrations returns an event's registrations, oldest first.
func (r *Repository) ListRegistrations(ctx context.Context, eventID uuid.UUID) ([]models.EventRegistration, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+registrationColumns+` FROM event_registrations WHERE event_id = $1 ORDER BY created_at`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EventRegistration
	for rows.Next() {
		var reg models.EventRegistration
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.Code, &reg.Name, &reg.Email, &reg.Phone, &reg.PromoCode, &reg.PaymentMethod,
			&reg.OriginalPrice, &reg.FinalPrice, &reg.PaymentStatus, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// DeleteRegistration removes a registration whose checkout never started.
func (r *Repository) DeleteRegistration(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM event_registrations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePaymentStatus sets an event registration's payment status.
func (r *Repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE event_registrations SET payment_status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	var endsAt *time.Time
	if err := row.Scan(&e.ID, &e.Title, &e.Slug, &e.Description, &e.Location, &e.StartsAt, &endsAt, &e.Price, &e.Capacity,
		&e.Published, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.EndsAt = endsAt
	return &e, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
