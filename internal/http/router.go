package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vitalsync-auth/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	tokenSvc *service.TokenService,
	authH *AuthHandler,
	verifH *VerificationHandler,
	fedH *FederatedHandler,
	detailH *DetailHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	auth := r.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/refresh", authH.Refresh)
	auth.POST("/logout", authH.Logout)

	auth.POST("/email/send", verifH.SendEmailCode)
	auth.POST("/email/verify", verifH.VerifyEmail)
	auth.POST("/phone/send", verifH.SendSMSCode)
	auth.POST("/phone/verify", verifH.VerifyPhone)

	google := auth.Group("/google")
	google.POST("/verify", fedH.VerifyIDToken)
	google.POST("/token", fedH.CustomToken)
	google.POST("/user", fedH.UpsertUser)

	users := r.Group("/users")
	users.Use(JWTAuthMiddleware(tokenSvc))
	users.GET("/me/details", detailH.GetDetails)
	users.PUT("/me/details", detailH.UpdateDetails)
	users.DELETE("/me", detailH.DeleteAccount)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
