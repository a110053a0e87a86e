package http

import (
	"github.com/gin-gonic/gin"

	"studybuddy/internal/bootstrap"
	"studybuddy/internal/transport/http/handler"
	"studybuddy/internal/transport/http/middleware"
)

// multipartMemory bounds the in-memory part of a parsed upload; the rest
// spills to temp files.
const multipartMemory = 32 << 20

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.MaxMultipartMemory = multipartMemory
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(app.Log),
		gin.Recovery(),
		middleware.CORS(app.Config.CORS.AllowOrigins),
	)

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	authHandler := handler.NewAuthHandler(app.Auth)
	sessionHandler := handler.NewSessionHandler(app.Chat, app.Documents)
	documentHandler := handler.NewDocumentHandler(app.Documents, app.MaxUploadBytes())
	chatHandler := handler.NewChatHandler(app.Chat)
	requireAuth := middleware.AuthJWT(app.Config.Auth.JWTSecret)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", requireAuth, authHandler.Me)

	sessions := v1.Group("/sessions", requireAuth)
	sessions.GET("", sessionHandler.List)
	sessions.POST("", sessionHandler.Create)
	sessions.PATCH("/:id", sessionHandler.Rename)
	sessions.DELETE("/:id", sessionHandler.Delete)
	sessions.GET("/:id/messages", sessionHandler.Messages)
	sessions.GET("/:id/stats", sessionHandler.Stats)
	sessions.GET("/:id/documents", sessionHandler.Documents)

	documents := v1.Group("/documents", requireAuth)
	documents.POST("", documentHandler.Upload)
	documents.DELETE("/:id", documentHandler.Delete)
	documents.GET("/:id/pages/:page", documentHandler.Page)

	chat := v1.Group("/chat", requireAuth)
	chat.POST("/ask", chatHandler.Ask)
	chat.POST("/page", chatHandler.AskPage)

	return router
}
