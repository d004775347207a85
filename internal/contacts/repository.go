package contacts

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stride-coaching/backend/internal/models"
)

// Repository handles contact message persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a contact repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a message.
func (r *Repository) Create(ctx context.Context, m *models.Contact) error {
	const q = `INSERT INTO contacts (name, email, phone, message) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, m.Name, m.Email, m.Phone, m.Message).Scan(&m.ID, &m.CreatedAt)
}

// List returns messages newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.Contact, error) {
	const q = `SELECT id, name, email, phone, message, created_at FROM contacts ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Contact
	for rows.Next() {
		var m models.Contact
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
