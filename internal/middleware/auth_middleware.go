package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/assessly/assessment-api/internal/pkg/access"
	"github.com/assessly/assessment-api/pkg/auth"
)

// Ключи контекста Gin, выставляемые аутентификацией
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов.
// Identity берётся из JWT-клеймов: собственного хранилища пользователей
// у сервиса нет, токены выпускает внешний identity-провайдер.
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware создает новый middleware аутентификации
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// RequireAuth проверяет заголовок Authorization и кладёт identity в контекст
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required", "error_type": "token_missing"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}", "error_type": "token_format"})
			c.Abort()
			return
		}

		claims, err := m.jwtService.ParseToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		// Неизвестная роль молча понижается до student
		c.Set(ContextRole, access.ParseRole(claims.Role))

		c.Next()
	}
}

// UserID извлекает id аутентифицированного пользователя из контекста
func UserID(c *gin.Context) uint {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// UserRole извлекает роль аутентифицированного пользователя из контекста
func UserRole(c *gin.Context) access.Role {
	if v, ok := c.Get(ContextRole); ok {
		if role, ok := v.(access.Role); ok {
			return role
		}
	}
	return access.RoleStudent
}
