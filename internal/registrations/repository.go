package registrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stride-coaching/backend/internal/models"
)

const registrationColumns = `id, code, user_type, plan, session_ids, attendees, payment_method, promo_code, need_invoice, tax_id,
	invoice_title, newsletter, original_price, final_price, payment_status, notes, checked_in_at, created_at, updated_at`

// Repository handles course registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registration repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a registration.
func (r *Repository) Create(ctx context.Context, reg *models.CourseRegistration) error {
	attendees, err := json.Marshal(reg.Attendees)
	if err != nil {
		return fmt.Errorf("marshal attendees: %w", err)
	}
	const q = `INSERT INTO course_registrations (code, user_type, plan, session_ids, attendees, payment_method, promo_code,
		need_invoice, tax_id, invoice_title, newsletter, original_price, final_price, payment_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, reg.Code, reg.UserType, reg.Plan, reg.SessionIDs, attendees, reg.PaymentMethod, reg.PromoCode,
		reg.NeedInvoice, reg.TaxID, reg.InvoiceTitle, reg.Newsletter, reg.OriginalPrice, reg.FinalPrice, reg.PaymentStatus, reg.Notes).
		Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
}

// GetByID returns a registration by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.CourseRegistration, error) {
	return r.getOne(ctx, `SELECT `+registrationColumns+` FROM course_registrations WHERE id = $1`, id)
}

// GetByCode returns a registration by its human code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*models.CourseRegistration, error) {
	return r.getOne(ctx, `SELECT `+registrationColumns+` FROM course_registrations WHERE code = $1`, code)
}

func (r *Repository) getOne(ctx context.Context, q string, arg interface{}) (*models.CourseRegistration, error) {
	reg, err := scanRegistration(r.pool.QueryRow(ctx, q, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return reg, err
}

// List returns registrations newest first, optionally filtered by status or session.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.CourseRegistration, error) {
	q := `SELECT ` + registrationColumns + ` FROM course_registrations WHERE 1=1`
	var args []interface{}
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(" AND payment_status = $%d", len(args))
	}
	if f.SessionID != "" {
		args = append(args, f.SessionID)
		q += fmt.Sprintf(" AND $%d = ANY(session_ids)", len(args))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.CourseRegistration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *reg)
	}
	return list, rows.Err()
}

// UpdatePaymentStatus sets payment_status.
func (r *Repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.exec(ctx, `UPDATE course_registrations SET payment_status = $1, updated_at = NOW() WHERE id = $2`, status, id)
}

// UpdateSessions replaces the session list and notes.
func (r *Repository) UpdateSessions(ctx context.Context, id uuid.UUID, sessionIDs []string, notes string) error {
	return r.exec(ctx, `UPDATE course_registrations SET session_ids = $1, notes = $2, updated_at = NOW() WHERE id = $3`, sessionIDs, notes, id)
}

// MarkCheckedIn stamps checked_in_at unless already set.
func (r *Repository) MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.exec(ctx, `UPDATE course_registrations SET checked_in_at = COALESCE(checked_in_at, $1), updated_at = NOW() WHERE id = $2`, at, id)
}

// Delete removes a registration whose checkout never started.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `DELETE FROM course_registrations WHERE id = $1`, id)
}

func (r *Repository) exec(ctx context.Context, q string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRegistration(row pgx.Row) (*models.CourseRegistration, error) {
	var reg models.CourseRegistration
	var attendees []byte
	err := row.Scan(&reg.ID, &reg.Code, &reg.UserType, &reg.Plan, &reg.SessionIDs, &attendees, &reg.PaymentMethod, &reg.PromoCode,
		&reg.NeedInvoice, &reg.TaxID, &reg.InvoiceTitle, &reg.Newsletter, &reg.OriginalPrice, &reg.FinalPrice, &reg.PaymentStatus,
		&reg.Notes, &reg.CheckedInAt, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attendees, &reg.Attendees); err != nil {
		return nil, fmt.Errorf("decode attendees: %w", err)
	}
	return &reg, nil
}
