package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vitalsync-auth/internal/service"
)

// FederatedHandler mantiene dependencias para endpoints de identidad federada.
type FederatedHandler struct {
	logger  *zap.Logger
	fedServ *service.FederatedService
}

func NewFederatedHandler(logger *zap.Logger, fedServ *service.FederatedService) *FederatedHandler {
	return &FederatedHandler{
		logger:  logger,
		fedServ: fedServ,
	}
}

// VerifyIDToken maneja POST /auth/google/verify.
func (h *FederatedHandler) VerifyIDToken(c *gin.Context) {
	var req struct {
		IDToken string `json:"id_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid id token request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	identity, err := h.fedServ.VerifyIDToken(c.Request.Context(), req.IDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid id token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"uid":    identity.Subject,
		"email":  identity.Email,
		"name":   identity.Name,
	})
}

// CustomToken maneja POST /auth/google/token.
func (h *FederatedHandler) CustomToken(c *gin.Context) {
	var req struct {
		UID string `json:"uid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid custom token request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, err := h.fedServ.IssueCustomToken(req.UID)
	if err != nil {
		h.logger.Warn("custom token issue failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not issue custom token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"custom_token": token})
}

// UpsertUser maneja POST /auth/google/user.
func (h *FederatedHandler) UpsertUser(c *gin.Context) {
	var req struct {
		UID         string `json:"uid" binding:"required"`
		Name        string `json:"name"`
		PhoneNumber string `json:"phone_number"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid federated upsert request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, created, err := h.fedServ.LinkOrCreate(c.Request.Context(), req.UID, req.Name, req.PhoneNumber)
	if err != nil {
		if errors.Is(err, service.ErrFederatedTokenInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		h.logger.Error("federated upsert failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error updating user"})
		return
	}

	if created {
		c.JSON(http.StatusCreated, gin.H{"message": "new user created successfully", "user_id": user.ID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user already exists", "user_id": user.ID})
}
