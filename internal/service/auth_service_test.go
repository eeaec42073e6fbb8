package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"vitalsync-auth/internal/domain"
	"vitalsync-auth/internal/repository"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	usersByUID   map[string]string
	updateErr    error
	flagErr      error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
		usersByUID:   make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	if user.Email != "" {
		if _, exists := m.usersByEmail[user.Email]; exists {
			return fmt.Errorf("%w: users_email_key", repository.ErrDuplicate)
		}
		m.usersByEmail[user.Email] = user.ID
	}
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUserRepo) UpdateTokens(_ context.Context, id, accessToken, refreshToken string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.AccessToken = accessToken
	user.RefreshToken = refreshToken
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) SetEmailVerified(_ context.Context, id string) error {
	if m.flagErr != nil {
		return m.flagErr
	}
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.EmailVerified = true
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) SetPhoneVerified(_ context.Context, id string) error {
	if m.flagErr != nil {
		return m.flagErr
	}
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PhoneVerified = true
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) UpsertFederated(_ context.Context, user domain.User) (domain.User, bool, error) {
	if id, ok := m.usersByUID[user.GoogleUID]; ok {
		existing := m.usersByID[id]
		existing.Name = user.Name
		existing.PhoneNumber = user.PhoneNumber
		m.usersByID[id] = existing
		return existing, false, nil
	}
	m.usersByID[user.ID] = user
	m.usersByUID[user.GoogleUID] = user.ID
	return user, true, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.usersByID[id]; !ok {
		return pgx.ErrNoRows
	}
	user := m.usersByID[id]
	delete(m.usersByID, id)
	delete(m.usersByEmail, user.Email)
	return nil
}

func TestAuthServiceRegister_Duplicate(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(zap.NewNop(), repo)

	id, err := svc.Register(context.Background(), "Ada", "ada@x.com", "pw123456", "15550100")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id == "" {
		t.Fatalf("expected user id")
	}

	_, err = svc.Register(context.Background(), "Ada", "ada@x.com", "pw123456", "15550100")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(zap.NewNop(), repo)

	id, err := svc.Register(context.Background(), "Ada", "ada@x.com", "pw123456", "15550100")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Login(context.Background(), "ADA@x.com", "pw123456")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != id {
		t.Fatalf("expected user %s, got %s", id, user.ID)
	}

	if _, err := svc.Login(context.Background(), "ada@x.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@x.com", "pw123456"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestAuthServicePersistTokens(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(zap.NewNop(), repo)

	id, err := svc.Register(context.Background(), "Ada", "ada@x.com", "pw123456", "15550100")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	pair := TokenPair{AccessToken: "a", RefreshToken: "r"}
	if err := svc.PersistTokens(context.Background(), id, pair); err != nil {
		t.Fatalf("persist tokens: %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), id)
	if stored.AccessToken != "a" || stored.RefreshToken != "r" {
		t.Fatalf("expected tokens persisted, got %+v", stored)
	}

	if err := svc.PersistTokens(context.Background(), "missing", pair); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	repo.updateErr = errors.New("connection reset")
	if err := svc.PersistTokens(context.Background(), id, pair); !errors.Is(err, ErrTokenPersist) {
		t.Fatalf("expected ErrTokenPersist, got %v", err)
	}
}
