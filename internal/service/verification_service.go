package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"vitalsync-auth/internal/domain"
	"vitalsync-auth/internal/email"
	"vitalsync-auth/internal/repository"
	"vitalsync-auth/internal/sms"
)

var (
	ErrCodeNotFound    = errors.New("code not requested")
	ErrCodeExpired     = errors.New("code expired")
	ErrCodeInvalid     = errors.New("code invalid")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrRateLimited     = errors.New("rate limited")
	ErrDispatchFailed  = errors.New("dispatch failed")
)

const (
	codeTTL         = 10 * time.Minute
	maxCodeAttempts = 5
	dispatchTimeout = 10 * time.Second
)

// VerificationService genera, guarda y comprueba codigos de un solo uso
// para probar propiedad de email y telefono.
type VerificationService struct {
	logger      *zap.Logger
	codes       repository.CodeRepository
	users       repository.UserRepository
	emailSender email.Sender
	smsSender   sms.Sender
	limiter     SendRateLimiter
	ttl         time.Duration
	maxAttempts int
}

func NewVerificationService(
	logger *zap.Logger,
	codes repository.CodeRepository,
	users repository.UserRepository,
	emailSender email.Sender,
	smsSender sms.Sender,
	limiter SendRateLimiter,
) *VerificationService {
	if limiter == nil {
		limiter = NewSendRateLimiter(codeTTL, 3)
	}
	return &VerificationService{
		logger:      logger,
		codes:       codes,
		users:       users,
		emailSender: emailSender,
		smsSender:   smsSender,
		limiter:     limiter,
		ttl:         codeTTL,
		maxAttempts: maxCodeAttempts,
	}
}

// SendEmailCode guarda un codigo nuevo para (userID, email) y lo envia.
// El codigo se persiste antes del envio: un fallo de canal deja a lo sumo
// un codigo sin confirmar, nunca estado a medias.
func (s *VerificationService) SendEmailCode(ctx context.Context, userID, toEmail string) error {
	toEmail = normalizeEmail(toEmail)
	if toEmail == "" {
		return ErrInvalidEmail
	}
	if !s.limiter.Allow(toEmail) {
		return ErrRateLimited
	}

	code, err := s.issueCode(ctx, userID, domain.ChannelEmail)
	if err != nil {
		return err
	}

	if s.emailSender == nil {
		return ErrDispatchFailed
	}
	sendCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	body := fmt.Sprintf("Your verification code is: %s", code)
	if err := s.emailSender.Send(sendCtx, toEmail, "Email Verification", body); err != nil {
		if s.logger != nil {
			s.logger.Warn("send email code failed", zap.Error(err), zap.String("email", toEmail))
		}
		return ErrDispatchFailed
	}
	return nil
}

// SendSMSCode guarda un codigo nuevo para (userID, sms) y lo envia.
func (s *VerificationService) SendSMSCode(ctx context.Context, userID, phoneNumber string) error {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return ErrCodeInvalid
	}
	if !s.limiter.Allow(phoneNumber) {
		return ErrRateLimited
	}

	code, err := s.issueCode(ctx, userID, domain.ChannelSMS)
	if err != nil {
		return err
	}

	if s.smsSender == nil {
		return ErrDispatchFailed
	}
	sendCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	body := fmt.Sprintf("Your verification code is: %s", code)
	if err := s.smsSender.Send(sendCtx, phoneNumber, body); err != nil {
		if s.logger != nil {
			s.logger.Warn("send sms code failed", zap.Error(err), zap.String("phone", phoneNumber))
		}
		return ErrDispatchFailed
	}
	return nil
}

// ConfirmEmail comprueba el codigo y marca el email como verificado. El
// codigo se consume solo despues de actualizar el flag: si la actualizacion
// falla, el codigo sigue vivo y un reintento puede completar la verificacion.
func (s *VerificationService) ConfirmEmail(ctx context.Context, userID, code string) error {
	if err := s.check(ctx, userID, domain.ChannelEmail, code); err != nil {
		return err
	}
	if err := s.users.SetEmailVerified(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set email verified: %w", err)
	}
	s.consume(ctx, userID, domain.ChannelEmail)
	return nil
}

// ConfirmPhone comprueba el codigo y marca el telefono como verificado.
func (s *VerificationService) ConfirmPhone(ctx context.Context, userID, code string) error {
	if err := s.check(ctx, userID, domain.ChannelSMS, code); err != nil {
		return err
	}
	if err := s.users.SetPhoneVerified(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set phone verified: %w", err)
	}
	s.consume(ctx, userID, domain.ChannelSMS)
	return nil
}

// issueCode reemplaza cualquier codigo previo del mismo (usuario, canal).
func (s *VerificationService) issueCode(ctx context.Context, userID string, channel domain.Channel) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	hash, err := hashCode(code)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	record := domain.VerificationCode{
		UserID:    userID,
		Channel:   channel,
		CodeHash:  hash,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.codes.Upsert(ctx, record); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	return code, nil
}

// check valida el codigo sin consumirlo; el caller lo consume una vez que
// la verificacion quedo registrada. Los desaciertos si cuentan intentos.
func (s *VerificationService) check(ctx context.Context, userID string, channel domain.Channel, submitted string) error {
	submitted = strings.TrimSpace(submitted)
	if !isValidCodeShape(submitted) {
		return ErrCodeInvalid
	}

	record, err := s.codes.Get(ctx, userID, channel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCodeNotFound
		}
		return fmt.Errorf("get code: %w", err)
	}
	if record.Expired(time.Now().UTC()) {
		return ErrCodeExpired
	}
	if !verifyCodeHash(submitted, record.CodeHash) {
		attempts, err := s.codes.IncrementAttempts(ctx, userID, channel)
		if err != nil {
			return fmt.Errorf("count attempt: %w", err)
		}
		if attempts >= s.maxAttempts {
			_ = s.codes.Delete(ctx, userID, channel)
			return ErrTooManyAttempts
		}
		return ErrCodeInvalid
	}
	return nil
}

// consume borra el codigo ya usado. Un fallo aqui no deshace la
// verificacion: el codigo sobrante solo puede reconfirmar el mismo hecho.
func (s *VerificationService) consume(ctx context.Context, userID string, channel domain.Channel) {
	if err := s.codes.Delete(ctx, userID, channel); err != nil && s.logger != nil {
		s.logger.Warn("delete used code failed",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("channel", string(channel)),
		)
	}
}

// generateCode devuelve un entero uniforme de 6 digitos en [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func hashCode(code string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	hashBytes := sha256.Sum256([]byte(saltStr + ":" + code))
	return saltStr + ":" + base64.StdEncoding.EncodeToString(hashBytes[:]), nil
}

func verifyCodeHash(code, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return false
	}
	hashBytes := sha256.Sum256([]byte(parts[0] + ":" + code))
	hash := base64.StdEncoding.EncodeToString(hashBytes[:])
	return subtle.ConstantTimeCompare([]byte(hash), []byte(parts[1])) == 1
}

func isValidCodeShape(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
