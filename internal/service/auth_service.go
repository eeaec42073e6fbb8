package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"vitalsync-auth/internal/domain"
	"vitalsync-auth/internal/repository"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenPersist       = errors.New("token persist failed")
)

// dummyHash absorbe el coste de bcrypt cuando el email no existe, para que
// el camino de "usuario desconocido" no sea distinguible por tiempo.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("vitalsync-dummy"), bcrypt.DefaultCost)

// AuthService coordina registro, login y persistencia de tokens.
type AuthService struct {
	logger *zap.Logger
	users  repository.UserRepository
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository) *AuthService {
	return &AuthService{
		logger: logger,
		users:  users,
	}
}

func (s *AuthService) Register(ctx context.Context, name, email, password, phoneNumber string) (string, error) {
	if s.users == nil {
		return "", errors.New("auth service not configured")
	}

	email = normalizeEmail(email)
	if email == "" {
		return "", ErrInvalidEmail
	}
	name = strings.TrimSpace(name)
	phoneNumber = strings.TrimSpace(phoneNumber)

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hashBytes),
		PhoneNumber:  phoneNumber,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", ErrDuplicateEmail
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	return user.ID, nil
}

// Login reporta el mismo error para email desconocido y password incorrecta.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("auth service not configured")
	}

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// PersistTokens guarda el ultimo par emitido. Un fallo aqui no deja un par
// viejo a medias: la fila queda como estaba y el caller recibe ErrTokenPersist.
func (s *AuthService) PersistTokens(ctx context.Context, userID string, pair TokenPair) error {
	if s.users == nil {
		return errors.New("auth service not configured")
	}
	if err := s.users.UpdateTokens(ctx, userID, pair.AccessToken, pair.RefreshToken); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrTokenPersist, err)
	}
	return nil
}

func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if s.users == nil {
		return errors.New("auth service not configured")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
