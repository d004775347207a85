package promocodes

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stride-coaching/backend/internal/models"
)

const promoColumns = `id, code, event_id, discount_type, discount_value, description, max_uses, used_count, valid_from, valid_until, active, created_at, updated_at`

// Repository handles promo code persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a promo code repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a code.
func (r *Repository) Create(ctx context.Context, p *models.PromoCode) error {
	const q = `INSERT INTO promo_codes (code, event_id, discount_type, discount_value, description, max_uses, valid_from, valid_until, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, used_count, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.Code, p.EventID, p.DiscountType, p.DiscountValue, p.Description, p.MaxUses, p.ValidFrom, p.ValidUntil, p.Active).
		Scan(&p.ID, &p.UsedCount, &p.CreatedAt, &p.UpdatedAt)
}

// Update rewrites a code's definition. used_count is left alone.
func (r *Repository) Update(ctx context.Context, p *models.PromoCode) error {
	const q = `UPDATE promo_codes SET code = $1, event_id = $2, discount_type = $3, discount_value = $4, description = $5,
		max_uses = $6, valid_from = COALESCE($7, valid_from), valid_until = $8, active = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING used_count, created_at, updated_at`
	var validFrom interface{}
	if !p.ValidFrom.IsZero() {
		validFrom = p.ValidFrom
	}
	err := r.pool.QueryRow(ctx, q, p.Code, p.EventID, p.DiscountType, p.DiscountValue, p.Description, p.MaxUses, validFrom, p.ValidUntil, p.Active, p.ID).
		Scan(&p.UsedCount, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete removes a code.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM promo_codes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns a code by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.PromoCode, error) {
	return r.getOne(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE id = $1`, id)
}

// GetByCode returns a code by its (upper-case) text.
func (r *Repository) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	return r.getOne(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE code = $1`, code)
}

func (r *Repository) getOne(ctx context.Context, q string, arg interface{}) (*models.PromoCode, error) {
	p, err := scanPromo(r.pool.QueryRow(ctx, q, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// List returns all codes newest first.
func (r *Repository) List(ctx context.Context) ([]models.PromoCode, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+promoColumns+` FROM promo_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.PromoCode
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// Redeem increments used_count if the code still has uses left.
func (r *Repository) Redeem(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE promo_codes SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND (max_uses = 0 OR used_count < max_uses)`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExhausted
	}
	return nil
}

// RedemptionCount sums used_count over all codes.
func (r *Repository) RedemptionCount(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(used_count), 0) FROM promo_codes`).Scan(&n)
	return n, err
}

func scanPromo(row pgx.Row) (*models.PromoCode, error) {
	var p models.PromoCode
	err := row.Scan(&p.ID, &p.Code, &p.EventID, &p.DiscountType, &p.DiscountValue, &p.Description, &p.MaxUses, &p.UsedCount,
		&p.ValidFrom, &p.ValidUntil, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
