package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"vitalsync-auth/internal/domain"
	"vitalsync-auth/internal/repository"
	"vitalsync-auth/internal/service"
)

// DetailHandler mantiene dependencias para endpoints de perfil del usuario
// autenticado.
type DetailHandler struct {
	logger   *zap.Logger
	details  repository.DetailRepository
	authServ *service.AuthService
}

func NewDetailHandler(logger *zap.Logger, details repository.DetailRepository, authServ *service.AuthService) *DetailHandler {
	return &DetailHandler{
		logger:   logger,
		details:  details,
		authServ: authServ,
	}
}

// GetDetails maneja GET /users/me/details.
func (h *DetailHandler) GetDetails(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	detail, err := h.details.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "details not found"})
			return
		}
		h.logger.Error("get details failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load details"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"details": detail})
}

// UpdateDetails maneja PUT /users/me/details.
func (h *DetailHandler) UpdateDetails(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		DOB      *time.Time `json:"dob"`
		HeightCm float64    `json:"height_cm"`
		WaistCm  float64    `json:"waist_cm"`
		WeightKg float64    `json:"weight_kg"`
		Gender   string     `json:"gender"`
		Allergen string     `json:"allergen"`
		Disease  string     `json:"disease"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid details request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	detail := domain.UserDetail{
		DetailID: uuid.NewString(),
		UserID:   claims.UserID,
		DOB:      req.DOB,
		HeightCm: req.HeightCm,
		WaistCm:  req.WaistCm,
		WeightKg: req.WeightKg,
		Gender:   req.Gender,
		Allergen: req.Allergen,
		Disease:  req.Disease,
	}
	if err := h.details.Upsert(c.Request.Context(), detail); err != nil {
		h.logger.Error("update details failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update details"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "details updated"})
}

// DeleteAccount maneja DELETE /users/me. Elimina detalles dependientes y
// despues la fila de usuario.
func (h *DetailHandler) DeleteAccount(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	if err := h.authServ.DeleteAccount(c.Request.Context(), claims.UserID); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("delete account failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete account"})
		return
	}
	c.Status(http.StatusNoContent)
}
