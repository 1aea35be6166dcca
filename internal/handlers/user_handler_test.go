package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pulse/internal/middleware"
	"pulse/internal/models"
	"pulse/internal/repository"
)

type mockUserRepo struct {
	users map[string]*models.User
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error { return nil }
func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, repository.ErrUserNotFound
}
func (m *mockUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	return nil, repository.ErrUserNotFound
}
func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u := m.users[id]
	if u == nil {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}
func (m *mockUserRepo) ListAll(ctx context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}
func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, req *models.UpdateUserRequest) error {
	u := m.users[id]
	if u == nil {
		return repository.ErrUserNotFound
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	return nil
}
func (m *mockUserRepo) UpdatePasswordHash(ctx context.Context, userID string, passwordHash string) error {
	return nil
}
func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if m.users[id] == nil {
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func userRequest(method, target string, body []byte, userID string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(context.WithValue(req.Context(), middleware.CtxUserID, userID))
}

func TestMeReturnsProfile(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "a@b.com", Name: "A", CreatedAt: time.Now().UTC()},
	}}
	h := NewUserHandler(repo)

	w := httptest.NewRecorder()
	h.Me(w, userRequest(http.MethodGet, "/api/v1/users/me", nil, "u1"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var u models.User
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if u.ID != "u1" || u.Email != "a@b.com" {
		t.Fatalf("unexpected profile: %+v", u)
	}
}

func TestMeUnknownUser(t *testing.T) {
	h := NewUserHandler(&mockUserRepo{users: map[string]*models.User{}})

	w := httptest.NewRecorder()
	h.Me(w, userRequest(http.MethodGet, "/api/v1/users/me", nil, "ghost"))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestUpdateMe(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "a@b.com", Name: "A"},
	}}
	h := NewUserHandler(repo)

	body, _ := json.Marshal(map[string]any{"name": "B"})
	w := httptest.NewRecorder()
	h.UpdateMe(w, userRequest(http.MethodPatch, "/api/v1/users/me", body, "u1"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if repo.users["u1"].Name != "B" {
		t.Fatalf("expected name updated, got %+v", repo.users["u1"])
	}
}

func TestDeleteMe(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "a@b.com"},
	}}
	h := NewUserHandler(repo)

	w := httptest.NewRecorder()
	h.DeleteMe(w, userRequest(http.MethodDelete, "/api/v1/users/me", nil, "u1"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if repo.users["u1"] != nil {
		t.Fatalf("expected user removed")
	}
}
