package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stride-coaching/backend/internal/models"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)
	id := uuid.New()
	token, err := svc.Generate(id, "coach@example.com", "admin")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, Issuer, claims.Issuer)

	uid, role, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id.String(), uid)
	assert.Equal(t, "admin", role)
}

func TestJWTRejects(t *testing.T) {
	svc := NewJWTService("secret", 1)
	token, err := svc.Generate(uuid.New(), "a@example.com", "editor")
	require.NoError(t, err)

	_, err = NewJWTService("other", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWTService("secret", 1)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" Admin ")
	assert.True(t, ok)
	assert.Equal(t, models.RoleAdmin, r)
	_, ok = ParseRole("member")
	assert.False(t, ok)
}

type memStore struct {
	users map[uuid.UUID]*models.User
}

func newMemStore() *memStore { return &memStore{users: map[uuid.UUID]*models.User{}} }

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) List(context.Context) ([]models.UserPublic, error) {
	var out []models.UserPublic
	for _, u := range m.users {
		out = append(out, u.ToPublic())
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, u *models.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	u.ID = uuid.New()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Password = hash
	return nil
}

func postJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginAndAccountEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newMemStore()
	jwtSvc := NewJWTService("secret", 1)
	h := NewHandler(store, jwtSvc, nil)

	user, err := CreateUser(context.Background(), store, "coach@example.com", "correct-horse", "Coach", models.RoleAdmin)
	require.NoError(t, err)

	asUser := func(c *gin.Context) {
		c.Set(ContextUserID, user.ID)
		c.Next()
	}
	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.GET("/auth/me", asUser, h.Me)
	r.PUT("/auth/password", asUser, h.ChangePassword)
	r.POST("/admin/users", h.Create)
	r.GET("/admin/users", h.List)

	w := postJSON(r, http.MethodPost, "/auth/login", LoginRequest{Email: "coach@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = postJSON(r, http.MethodPost, "/auth/login", LoginRequest{Email: "nobody@example.com", Password: "whatever1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(r, http.MethodPost, "/auth/login", LoginRequest{Email: "coach@example.com", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	claims, err := jwtSvc.Validate(resp.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.NotContains(t, w.Body.String(), "correct-horse")

	me := httptest.NewRecorder()
	r.ServeHTTP(me, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), "coach@example.com")

	w = postJSON(r, http.MethodPut, "/auth/password", ChangePasswordRequest{CurrentPassword: "nope-nope", NewPassword: "battery-staple"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = postJSON(r, http.MethodPut, "/auth/password", ChangePasswordRequest{CurrentPassword: "correct-horse", NewPassword: "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = postJSON(r, http.MethodPut, "/auth/password", ChangePasswordRequest{CurrentPassword: "correct-horse", NewPassword: "battery-staple"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = postJSON(r, http.MethodPost, "/auth/login", LoginRequest{Email: "coach@example.com", Password: "battery-staple"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(r, http.MethodPost, "/admin/users", CreateUserRequest{Email: "writer@example.com", Password: "long-enough", FullName: "Writer"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"editor"`)
	w = postJSON(r, http.MethodPost, "/admin/users", CreateUserRequest{Email: "writer@example.com", Password: "long-enough", FullName: "Writer"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = postJSON(r, http.MethodPost, "/admin/users", CreateUserRequest{Email: "x@example.com", Password: "long-enough", FullName: "X", Role: "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	list := httptest.NewRecorder()
	r.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	assert.Contains(t, list.Body.String(), "writer@example.com")
}
