// Package posts serves the blog.
package posts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stride-coaching/backend/internal/models"
)

var (
	ErrNotFound  = errors.New("post not found")
	ErrSlugTaken = errors.New("a post with this slug already exists")
)

const postColumns = `id, title, slug, excerpt, content, cover_image_url, published, published_at, created_at, updated_at`

// Repository handles post persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a post repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a post.
func (r *Repository) Create(ctx context.Context, p *models.Post) error {
	const q = `INSERT INTO posts (title, slug, excerpt, content, cover_image_url, published, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, p.Title, p.Slug, p.Excerpt, p.Content, p.CoverImageURL, p.Published, p.PublishedAt).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return translate(err)
}

// Update rewrites a post.
func (r *Repository) Update(ctx context.Context, p *models.Post) error {
	const q = `UPDATE posts SET title = $1, slug = $2, excerpt = $3, content = $4, cover_image_url = $5, published = $6,
		published_at = $7, updated_at = NOW()
		WHERE id = $8 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, p.Title, p.Slug, p.Excerpt, p.Content, p.CoverImageURL, p.Published, p.PublishedAt, p.ID).
		Scan(&p.UpdatedAt)
	return translate(err)
}

// Delete removes a post.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns a post by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	return p, translate(err)
}

// GetBySlug returns a post by slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	p, err := scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = $1`, slug))
	return p, translate(err)
}

// List returns posts newest first. publishedOnly orders by publication time and hides drafts.
func (r *Repository) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]models.Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if publishedOnly {
		q = `SELECT ` + postColumns + ` FROM posts WHERE published ORDER BY published_at DESC NULLS LAST LIMIT $1 OFFSET $2`
	}
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.CoverImageURL, &p.Published, &p.PublishedAt,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		return ErrSlugTaken
	}
	return err
}
