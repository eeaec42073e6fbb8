package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vitalsync-auth/internal/service"
)

// VerificationHandler mantiene dependencias para endpoints de verificacion
// de email y telefono.
type VerificationHandler struct {
	logger    *zap.Logger
	verifServ *service.VerificationService
}

func NewVerificationHandler(logger *zap.Logger, verifServ *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{
		logger:    logger,
		verifServ: verifServ,
	}
}

// SendEmailCode maneja POST /auth/email/send.
func (h *VerificationHandler) SendEmailCode(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
		Email  string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid email send request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.verifServ.SendEmailCode(c.Request.Context(), req.UserID, req.Email); err != nil {
		h.respondSendError(c, err, "error sending email")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification email sent"})
}

// VerifyEmail maneja POST /auth/email/verify.
func (h *VerificationHandler) VerifyEmail(c *gin.Context) {
	var req struct {
		UserID     string `json:"user_id" binding:"required"`
		EmailToken string `json:"email_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid email verify request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.verifServ.ConfirmEmail(c.Request.Context(), req.UserID, req.EmailToken); err != nil {
		h.respondVerifyError(c, err, "invalid email token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email verified successfully"})
}

// SendSMSCode maneja POST /auth/phone/send.
func (h *VerificationHandler) SendSMSCode(c *gin.Context) {
	var req struct {
		UserID      string `json:"user_id" binding:"required"`
		PhoneNumber string `json:"phone_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid sms send request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.verifServ.SendSMSCode(c.Request.Context(), req.UserID, req.PhoneNumber); err != nil {
		h.respondSendError(c, err, "error sending sms")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification sms sent"})
}

// VerifyPhone maneja POST /auth/phone/verify.
func (h *VerificationHandler) VerifyPhone(c *gin.Context) {
	var req struct {
		UserID   string `json:"user_id" binding:"required"`
		SMSToken string `json:"sms_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid phone verify request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.verifServ.ConfirmPhone(c.Request.Context(), req.UserID, req.SMSToken); err != nil {
		h.respondVerifyError(c, err, "invalid sms token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "phone number verified successfully"})
}

// respondSendError distingue fallos de canal (reintentables) de fallos de
// validacion y de limite de envios.
func (h *VerificationHandler) respondSendError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	case errors.Is(err, service.ErrDispatchFailed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "delivery unavailable"})
	case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrCodeInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	default:
		h.logger.Error("send verification code failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// Los desajustes de codigo se reportan especificamente para que el usuario
// pueda reintentar; los fallos de store quedan en 500 generico.
func (h *VerificationHandler) respondVerifyError(c *gin.Context, err error, invalidMsg string) {
	switch {
	case errors.Is(err, service.ErrCodeNotFound),
		errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrCodeInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidMsg})
	case errors.Is(err, service.ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		h.logger.Error("verify code failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify code"})
	}
}
