package posts

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/pkg/response"
	"github.com/stride-coaching/backend/pkg/storage"
	"github.com/stride-coaching/backend/pkg/utils"
)

// Store persists posts.
type Store interface {
	Create(ctx context.Context, p *models.Post) error
	Update(ctx context.Context, p *models.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	List(ctx context.Context, publishedOnly bool, limit, offset int) ([]models.Post, error)
}

// ImageStore is the object storage used for cover images.
type ImageStore interface {
	GeneratePresignedUploadURL(ctx context.Context, key, contentType string) (string, error)
	PresignExpire() time.Duration
	PublicObjectURL(key string) string
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	DeleteObject(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

// UpsertRequest is the body for admin create and update.
type UpsertRequest struct {
	Title         string `json:"title" binding:"required"`
	Slug          string `json:"slug"`
	Excerpt       string `json:"excerpt"`
	Content       string `json:"content"`
	CoverImageURL string `json:"cover_image_url"`
	Published     bool   `json:"published"`
}

// UploadURLRequest is the body for POST /admin/posts/:id/cover/upload-url.
type UploadURLRequest struct {
	ContentType string `json:"content_type" binding:"required"`
	FileSize    int64  `json:"file_size" binding:"required,gt=0"`
}

// Handler handles blog endpoints.
type Handler struct {
	store  Store
	images ImageStore
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a post handler. images may be nil when S3 is not configured.
func NewHandler(store Store, images ImageStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, images: images, logger: logger, now: time.Now}
}

// List handles GET /posts.
func (h *Handler) List(c *gin.Context) {
	h.list(c, true)
}

// AdminList handles GET /admin/posts (drafts included).
func (h *Handler) AdminList(c *gin.Context) {
	h.list(c, false)
}

func (h *Handler) list(c *gin.Context, publishedOnly bool) {
	limit, offset := response.Page(c)
	list, err := h.store.List(c.Request.Context(), publishedOnly, limit, offset)
	if err != nil {
		h.logger.Error("list posts failed", zap.Error(err))
		response.Internal(c, "failed to list posts")
		return
	}
	if list == nil {
		list = []models.Post{}
	}
	if publishedOnly {
		for i := range list {
			list[i].Content = ""
		}
	}
	response.OK(c, list)
}

// GetBySlug handles GET /posts/:slug.
func (h *Handler) GetBySlug(c *gin.Context) {
	p, err := h.store.GetBySlug(c.Request.Context(), strings.ToLower(c.Param("slug")))
	if err != nil || !p.Published {
		response.NotFound(c, "post not found")
		return
	}
	response.OK(c, p)
}

// Create handles POST /admin/posts.
func (h *Handler) Create(c *gin.Context) {
	var req UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p := &models.Post{}
	if !h.apply(c, p, req) {
		return
	}
	if err := h.store.Create(c.Request.Context(), p); err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, p)
}

// Update handles PUT /admin/posts/:id.
func (h *Handler) Update(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	var req UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !h.apply(c, p, req) {
		return
	}
	if err := h.store.Update(c.Request.Context(), p); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, p)
}

// Delete handles DELETE /admin/posts/:id. The cover image is removed too.
func (h *Handler) Delete(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), p.ID); err != nil {
		h.fail(c, err)
		return
	}
	h.removeCover(c.Request.Context(), p.CoverImageURL)
	response.NoContent(c)
}

// CoverUploadURL handles POST /admin/posts/:id/cover/upload-url. The client PUTs the image to
// upload_url and then saves file_url as cover_image_url.
func (h *Handler) CoverUploadURL(c *gin.Context) {
	if h.images == nil {
		response.ServiceUnavailable(c, "image storage not configured")
		return
	}
	p, ok := h.load(c)
	if !ok {
		return
	}
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.FileSize > storage.MaxImageSize {
		response.BadRequest(c, "file size exceeds 5MB limit")
		return
	}
	if !storage.ValidImageType(req.ContentType) {
		response.BadRequest(c, "invalid file type: only jpg, png, webp and gif images allowed")
		return
	}

	key := storage.PostImageKey(p.ID.String(), req.ContentType)
	url, err := h.images.GeneratePresignedUploadURL(c.Request.Context(), key, req.ContentType)
	if err != nil {
		h.logger.Error("generate presigned upload URL failed", zap.Error(err), zap.String("post_id", p.ID.String()))
		response.Internal(c, "image upload unavailable")
		return
	}
	response.OK(c, gin.H{
		"upload_url":   url,
		"s3_key":       key,
		"file_url":     h.images.PublicObjectURL(key),
		"content_type": req.ContentType,
		"expires_in":   int(h.images.PresignExpire().Seconds()),
	})
}

// UploadCover handles POST /admin/posts/:id/cover (multipart field "file"). The server uploads the
// image and sets it as the cover, replacing any previous one.
func (h *Handler) UploadCover(c *gin.Context) {
	if h.images == nil {
		response.ServiceUnavailable(c, "image storage not configured")
		return
	}
	p, ok := h.load(c)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if file.Size > storage.MaxImageSize {
		response.BadRequest(c, "file size exceeds 5MB limit")
		return
	}
	if !storage.ValidImageType(contentType) {
		response.BadRequest(c, "invalid file type: only jpg, png, webp and gif images allowed")
		return
	}
	rc, err := file.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		response.Internal(c, "failed to read file")
		return
	}
	defer rc.Close()

	key := storage.PostImageKey(p.ID.String(), contentType)
	url, err := h.images.Upload(c.Request.Context(), key, contentType, rc)
	if err != nil {
		h.logger.Error("S3 upload failed", zap.Error(err), zap.String("post_id", p.ID.String()), zap.String("key", key))
		response.Internal(c, "failed to upload file to storage")
		return
	}
	previous := p.CoverImageURL
	p.CoverImageURL = url
	if err := h.store.Update(c.Request.Context(), p); err != nil {
		h.fail(c, err)
		return
	}
	if previous != url {
		h.removeCover(c.Request.Context(), previous)
	}
	response.OK(c, p)
}

func (h *Handler) apply(c *gin.Context, p *models.Post, req UpsertRequest) bool {
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" {
		slug = utils.Slugify(req.Title)
	}
	if !utils.ValidSlug(slug) {
		response.BadRequest(c, "slug must be 2-64 chars, lowercase letters, numbers, hyphens only")
		return false
	}
	p.Title = strings.TrimSpace(req.Title)
	p.Slug = slug
	p.Excerpt = req.Excerpt
	p.Content = req.Content
	p.CoverImageURL = req.CoverImageURL
	if req.Published && p.PublishedAt == nil {
		now := h.now()
		p.PublishedAt = &now
	}
	p.Published = req.Published
	return true
}

func (h *Handler) load(c *gin.Context) (*models.Post, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid post id")
		return nil, false
	}
	p, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return p, true
}

func (h *Handler) removeCover(ctx context.Context, url string) {
	if h.images == nil || url == "" {
		return
	}
	key, ok := h.images.KeyFromURL(url)
	if !ok {
		return
	}
	if err := h.images.DeleteObject(ctx, key); err != nil {
		h.logger.Warn("delete old cover failed", zap.Error(err), zap.String("key", key))
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrSlugTaken):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error("post request failed", zap.Error(err))
		response.Internal(c, "failed to save post")
	}
}
