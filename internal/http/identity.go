package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"medcase/internal/domain"
	"medcase/internal/service"
)

const userContextKey = "user_context"

// IdentityMiddleware atribuye cada request a un usuario. Con JWT habilitado y un Bearer
// token valido usa sus claims; sin token cae en el usuario por defecto.
func IdentityMiddleware(jwtSvc *service.JWTService, fallback domain.UserContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !jwtSvc.Enabled() {
			c.Set(userContextKey, fallback)
			c.Next()
			return
		}
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondUnauthorized(c, "authorization header must be a Bearer token")
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		claims, err := jwtSvc.ParseAccessToken(token)
		if err != nil {
			respondUnauthorized(c, "invalid token")
			return
		}
		c.Set(userContextKey, domain.UserContext{UserID: claims.UserID, Username: claims.Username})
		c.Next()
	}
}

// CurrentUser devuelve la identidad resuelta por IdentityMiddleware.
func CurrentUser(c *gin.Context) (domain.UserContext, bool) {
	val, ok := c.Get(userContextKey)
	if !ok {
		return domain.UserContext{}, false
	}
	uc, ok := val.(domain.UserContext)
	return uc, ok
}
