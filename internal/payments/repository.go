package payments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stride-coaching/backend/internal/models"
)

const paymentColumns = `id, kind, reference_id, merchant_order_no, provider, amount, status, trade_no, payment_type, message, paid_at, created_at, updated_at`

// Repository handles payment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a payments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending payment.
func (r *Repository) Create(ctx context.Context, p *models.Payment) error {
	const q = `INSERT INTO payments (kind, reference_id, merchant_order_no, provider, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.Kind, p.ReferenceID, p.MerchantOrderNo, p.Provider, p.Amount, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByMerchantOrderNo returns the payment for a gateway order number.
func (r *Repository) GetByMerchantOrderNo(ctx context.Context, orderNo string) (*models.Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE merchant_order_no = $1`, orderNo)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// UpdateResult stores the gateway outcome.
func (r *Repository) UpdateResult(ctx context.Context, p *models.Payment) error {
	const q = `UPDATE payments SET status = $1, trade_no = $2, payment_type = $3, message = $4, paid_at = $5, updated_at = NOW()
		WHERE id = $6`
	tag, err := r.pool.Exec(ctx, q, p.Status, p.TradeNo, p.PaymentType, p.Message, p.PaidAt, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns payments newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.Kind, &p.ReferenceID, &p.MerchantOrderNo, &p.Provider, &p.Amount, &p.Status,
		&p.TradeNo, &p.PaymentType, &p.Message, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
