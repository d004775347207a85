package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries behind the admin dashboard.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Counts returns course registrations grouped by plan and by payment status.
func (r *Repository) Counts(ctx context.Context) (byPlan, byStatus map[string]int, err error) {
	byPlan, err = r.groupCount(ctx, `SELECT plan, COUNT(*) FROM course_registrations GROUP BY plan`)
	if err != nil {
		return nil, nil, fmt.Errorf("count by plan: %w", err)
	}
	byStatus, err = r.groupCount(ctx, `SELECT payment_status, COUNT(*) FROM course_registrations GROUP BY payment_status`)
	if err != nil {
		return nil, nil, fmt.Errorf("count by status: %w", err)
	}
	return byPlan, byStatus, nil
}

// PaidRevenue sums final prices of paid course and event registrations.
func (r *Repository) PaidRevenue(ctx context.Context) (course, event int, err error) {
	const q = `SELECT
		(SELECT COALESCE(SUM(final_price), 0) FROM course_registrations WHERE payment_status = 'paid'),
		(SELECT COALESCE(SUM(final_price), 0) FROM event_registrations WHERE payment_status = 'paid')`
	err = r.pool.QueryRow(ctx, q).Scan(&course, &event)
	return course, event, err
}

// PromoRedemptions returns how many registrations used a promo code, and total stored-code redemptions.
func (r *Repository) PromoRedemptions(ctx context.Context) (courseWithCode, storedUses int, err error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM course_registrations WHERE promo_code <> ''),
		(SELECT COALESCE(SUM(used_count), 0) FROM promo_codes)`
	err = r.pool.QueryRow(ctx, q).Scan(&courseWithCode, &storedUses)
	return courseWithCode, storedUses, err
}

// EventRegistrations counts event registrations that have not failed payment.
func (r *Repository) EventRegistrations(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM event_registrations WHERE payment_status <> 'failed'`).Scan(&n)
	return n, err
}

func (r *Repository) groupCount(ctx context.Context, q string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}
