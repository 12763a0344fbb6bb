package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/tilemark/mapeditor/internal/db"
)

type memStore struct {
	users map[string]db.User
	owned map[string]int64
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]db.User), owned: make(map[string]int64)}
}

func (m *memStore) CountMapsByOwner(_ context.Context, ownerID string) (int64, error) {
	return m.owned[ownerID], nil
}

func (m *memStore) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	for _, u := range m.users {
		if u.Email == arg.Email {
			return db.User{}, &pgconn.PgError{Code: "23505"}
		}
	}
	u := db.User{ID: arg.ID, Email: arg.Email, Password: arg.Password, DisplayName: arg.DisplayName, CreatedAt: time.Now()}
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (m *memStore) GetUserByID(_ context.Context, id string) (db.User, error) {
	u, ok := m.users[id]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func newTestService() *Service {
	s, _ := newTestServiceStore()
	return s
}

func newTestServiceStore() (*Service, *memStore) {
	store := newMemStore()
	s := NewService(store, "test-secret")
	s.cost = bcrypt.MinCost
	return s, store
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	reg, err := s.Register(ctx, Credentials{Email: "ada@example.com", Password: "hunter22", DisplayName: "Ada"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !strings.HasPrefix(reg.User.ID, "user_") {
		t.Errorf("Expected user_ id, got %q", reg.User.ID)
	}

	if _, err := s.Register(ctx, Credentials{Email: "ada@example.com", Password: "another1", DisplayName: "Ada 2"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Expected ErrEmailTaken, got %v", err)
	}

	login, err := s.Login(ctx, Credentials{Email: "ada@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	uid, err := s.ValidateToken(login.Token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if uid != reg.User.ID {
		t.Errorf("Expected subject %q, got %q", reg.User.ID, uid)
	}

	if _, err := s.Login(ctx, Credentials{Email: "ada@example.com", Password: "wrong-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := s.Login(ctx, Credentials{Email: "nobody@example.com", Password: "hunter22"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	s := newTestService()

	other := NewService(newMemStore(), "other-secret")
	foreign, err := other.issueToken("user_01h2xcejqtf2nbrexx3vqjhp41")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ValidateToken(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong secret, got %v", err)
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user_01h2xcejqtf2nbrexx3vqjhp41",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, _ := expired.SignedString(s.jwtSecret)
	if _, err := s.ValidateToken(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for expired token, got %v", err)
	}

	if _, err := s.ValidateToken("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestGetUser(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	reg, err := s.Register(ctx, Credentials{Email: "bo@example.com", Password: "password1", DisplayName: "Bo"})
	if err != nil {
		t.Fatal(err)
	}
	u, err := s.GetUser(ctx, reg.User.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if u.DisplayName != "Bo" {
		t.Errorf("Expected display name Bo, got %q", u.DisplayName)
	}
	if _, err := s.GetUser(ctx, "user_missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestHandlerRegisterValidation(t *testing.T) {
	h := NewHandler(newTestService())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing name", `{"email":"a@b.c","password":"12345678"}`, http.StatusBadRequest},
		{"short password", `{"email":"a@b.c","password":"123","displayName":"A"}`, http.StatusBadRequest},
		{"ok", `{"email":"A@B.c","password":"12345678","displayName":"A"}`, http.StatusCreated},
		{"duplicate", `{"email":"a@b.c","password":"12345678","displayName":"A"}`, http.StatusConflict},
		{"duplicate padded", `{"email":"  A@b.C ","password":"12345678","displayName":"A"}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Register(rec, req)
			if rec.Code != tt.want {
				t.Errorf("Expected status %d, got %d (%s)", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		in   Credentials
	}{
		{"empty", Credentials{}},
		{"blank name", Credentials{Email: "a@b.c", Password: "12345678", DisplayName: "   "}},
		{"blank email", Credentials{Email: "  ", Password: "12345678", DisplayName: "A"}},
		{"no at sign", Credentials{Email: "ab.c", Password: "12345678", DisplayName: "A"}},
		{"short password", Credentials{Email: "a@b.c", Password: "1234567", DisplayName: "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Register(ctx, tt.in); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}

	reg, err := s.Register(ctx, Credentials{Email: " Fay@Example.COM ", Password: "12345678", DisplayName: " Fay "})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if reg.User.Email != "fay@example.com" || reg.User.DisplayName != "Fay" {
		t.Errorf("Expected normalised user, got %+v", reg.User)
	}
	if _, err := s.Login(ctx, Credentials{Email: "FAY@example.com", Password: "12345678"}); err != nil {
		t.Errorf("Login with different case failed: %v", err)
	}
	if _, err := s.Login(ctx, Credentials{Email: "fay@example.com"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for missing password, got %v", err)
	}
}

func TestHandlerLogin(t *testing.T) {
	s := newTestService()
	h := NewHandler(s)
	if _, err := s.Register(context.Background(), Credentials{Email: "gus@example.com", Password: "password1", DisplayName: "Gus"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `[`, http.StatusBadRequest},
		{"missing password", `{"email":"gus@example.com"}`, http.StatusBadRequest},
		{"wrong password", `{"email":"gus@example.com","password":"password2"}`, http.StatusUnauthorized},
		{"ok", `{"email":"GUS@example.com","password":"password1"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Login(rec, req)
			if rec.Code != tt.want {
				t.Errorf("Expected status %d, got %d (%s)", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestService()
	reg, err := s.Register(context.Background(), Credentials{Email: "cy@example.com", Password: "password1", DisplayName: "Cy"})
	if err != nil {
		t.Fatal(err)
	}

	var seen string
	protected := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized},
		{"header", "Bearer " + reg.Token, "", http.StatusNoContent},
		{"query", "", "?token=" + reg.Token, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("Expected status %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusNoContent && seen != reg.User.ID {
				t.Errorf("Expected user %q in context, got %q", reg.User.ID, seen)
			}
		})
	}
}

func TestHandlerMe(t *testing.T) {
	s, store := newTestServiceStore()
	h := NewHandler(s)
	reg, err := s.Register(context.Background(), Credentials{Email: "di@example.com", Password: "password1", DisplayName: "Di"})
	if err != nil {
		t.Fatal(err)
	}
	store.owned[reg.User.ID] = 3

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(WithUserID(req.Context(), reg.User.ID))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var got Profile
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Email != "di@example.com" || got.MapCount != 3 {
		t.Errorf("Expected di@example.com with 3 maps, got %+v", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(WithUserID(req.Context(), "user_gone"))
	rec = httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown user, got %d", rec.Code)
	}
}

func TestOptionalAuth(t *testing.T) {
	s := newTestService()
	reg, err := s.Register(context.Background(), Credentials{Email: "ed@example.com", Password: "password1", DisplayName: "Ed"})
	if err != nil {
		t.Fatal(err)
	}

	var seen string
	h := s.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/maps", nil))
	if rec.Code != http.StatusOK || seen != "" {
		t.Errorf("Expected anonymous pass-through, got %d user=%q", rec.Code, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/maps", nil)
	req.Header.Set("Authorization", "Bearer "+reg.Token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != reg.User.ID {
		t.Errorf("Expected user %q, got %q", reg.User.ID, seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/maps", nil)
	req.Header.Set("Authorization", "Bearer junk")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for junk token, got %d", rec.Code)
	}
}
