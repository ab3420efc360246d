package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// NewRouter configura el router de Gin con middlewares y rutas /api.
func NewRouter(
	logger *zap.Logger,
	allowedOrigins []string,
	identity gin.HandlerFunc,
	caseH *CaseHandler,
	chatH *ChatHandler,
	completionH *CompletionHandler,
	feedbackH *FeedbackHandler,
	userH *UserHandler,
) *gin.Engine {
	registerJSONTagNames()

	r := gin.New()
	r.Use(
		requestIDMiddleware(),
		zapLoggerMiddleware(logger),
		gin.Recovery(),
		corsMiddleware(allowedOrigins),
		jsonContentTypeMiddleware(),
	)
	r.NoRoute(func(c *gin.Context) {
		respondNotFound(c, "route not found")
	})

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	auth := api.Group("/auth")
	auth.POST("/token", userH.IssueToken)
	auth.POST("/refresh", userH.Refresh)
	auth.POST("/logout", userH.Logout)

	// Todo lo que sigue se atribuye a un usuario.
	scoped := api.Group("", identity)
	scoped.GET("/me", userH.Me)

	cases := scoped.Group("/cases")
	cases.GET("", caseH.List)
	cases.GET("/next", caseH.Next)
	cases.GET("/difficulty/:difficulty", caseH.ListByDifficulty)
	cases.GET("/:id", caseH.Get)
	cases.GET("/:id/similar", caseH.Similar)

	chats := scoped.Group("/chats")
	chats.POST("", chatH.CreateChat)
	chats.GET("/:id", chatH.GetChat)
	chats.POST("/:id/messages", chatH.PostMessage)
	chats.DELETE("/:id/messages/last-user", chatH.DeleteLastUserMessage)
	scoped.DELETE("/messages/:id/last-user", chatH.DeleteLastUserMessage)

	completions := scoped.Group("/completions")
	completions.POST("", completionH.Complete)
	completions.DELETE("/retry/:chatId", completionH.Retry)
	completions.GET("/stats", completionH.Stats)
	completions.GET("/completed-cases", completionH.CompletedCases)

	scoped.GET("/feedback/:chatId", feedbackH.Get)

	return r
}

// requestIDMiddleware reutiliza el X-Request-ID entrante o genera uno nuevo.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("request_id", c.GetString(requestIDHeader)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	})
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
