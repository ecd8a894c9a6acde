package account

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bhis/bhis/internal/platform/auth"
)

type mockRepo struct {
	byID map[uuid.UUID]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

type testEnv struct {
	svc     *Service
	repo    *mockRepo
	tokens  *auth.TokenManager
	revoked *auth.TokenRevocationStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret: []byte("account-test-secret-key-32-bytes-long"),
		Issuer: "bhis-test",
		TTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	repo := newMockRepo()
	revoked := auth.NewTokenRevocationStore(nil)
	svc := NewService(repo, tokens, revoked, zerolog.Nop())
	svc.SetHashCost(bcrypt.MinCost)
	return &testEnv{svc: svc, repo: repo, tokens: tokens, revoked: revoked}
}

func (env *testEnv) seedUser(t *testing.T) *User {
	t.Helper()
	u, err := env.svc.CreateUser(context.Background(), "Nurse.Joy@Example.com", "Joy Dizon", auth.RoleNurse, "s3cret-pass")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t)

	if u.Email != "nurse.joy@example.com" {
		t.Errorf("expected lowercased email, got %s", u.Email)
	}
	if !u.Active {
		t.Error("expected new user to be active")
	}
	if u.PasswordHash == "s3cret-pass" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")) != nil {
		t.Error("expected bcrypt hash of the password")
	}
}

func TestCreateUser_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tests := []struct {
		name     string
		email    string
		uname    string
		role     string
		password string
		want     error
	}{
		{"bad email", "nope", "A", auth.RoleNurse, "longenough", nil},
		{"missing name", "a@example.com", " ", auth.RoleNurse, "longenough", nil},
		{"bad role", "a@example.com", "A", "janitor", "longenough", ErrInvalidRole},
		{"short password", "a@example.com", "A", auth.RoleNurse, "short", ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateUser(ctx, tt.email, tt.uname, tt.role, tt.password)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t)
	_, err := env.svc.CreateUser(context.Background(), "nurse.joy@example.com", "Other", auth.RoleBHW, "another-pass")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t)

	res, err := env.svc.Login(context.Background(), " NURSE.JOY@example.com ", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.TokenType != "Bearer" {
		t.Errorf("expected Bearer token type, got %s", res.TokenType)
	}
	if res.User.ID != u.ID || res.User.Role != auth.RoleNurse {
		t.Errorf("unexpected user profile %+v", res.User)
	}
	claims, err := env.tokens.Verify(res.AccessToken)
	if err != nil {
		t.Fatalf("issued token should verify: %v", err)
	}
	if claims.Subject != u.ID.String() || len(claims.Roles) != 1 || claims.Roles[0] != auth.RoleNurse {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t)
	ctx := context.Background()

	if _, err := env.svc.Login(ctx, "nurse.joy@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.svc.Login(ctx, "ghost@example.com", "whatever1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.svc.Login(ctx, "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("blank credentials: expected ErrInvalidCredentials, got %v", err)
	}

	env.repo.byID[u.ID].Active = false
	if _, err := env.svc.Login(ctx, "nurse.joy@example.com", "s3cret-pass"); !errors.Is(err, ErrInactive) {
		t.Errorf("inactive: expected ErrInactive, got %v", err)
	}
}

func TestCurrent(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t)

	got, err := env.svc.Current(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got.Name != "Joy Dizon" {
		t.Errorf("unexpected user %+v", got)
	}
	if _, err := env.svc.Current(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t)
	res, _ := env.svc.Login(context.Background(), u.Email, "s3cret-pass")
	claims, _ := env.tokens.Verify(res.AccessToken)

	if err := env.svc.Logout(context.Background(), claims.ID, u.ID.String(), claims.ExpiresAt.Time); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !env.revoked.IsRevoked(claims.ID) {
		t.Error("expected token to be revoked")
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t)
	ctx := context.Background()

	if err := env.svc.ChangePassword(ctx, u.ID, "wrong", "brand-new-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := env.svc.ChangePassword(ctx, u.ID, "s3cret-pass", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
	if err := env.svc.ChangePassword(ctx, u.ID, "s3cret-pass", "brand-new-pass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := env.svc.Login(ctx, u.Email, "brand-new-pass"); err != nil {
		t.Errorf("expected login with new password, got %v", err)
	}
}
