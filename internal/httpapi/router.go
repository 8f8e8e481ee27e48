package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiroku-app/kiroku/internal/common"
	"github.com/kiroku-app/kiroku/internal/config"
	"github.com/kiroku-app/kiroku/internal/httpapi/handlers"
	"github.com/kiroku-app/kiroku/internal/httpapi/middleware"
	"github.com/kiroku-app/kiroku/internal/journal"
	"github.com/kiroku-app/kiroku/internal/store/rabbitmq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewRouter(db *gorm.DB, cfg config.Config, svc *journal.Service, store *journal.Store, rabbit *rabbitmq.Publisher, logger *zap.Logger) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(db, cfg, svc, store, rabbit, logger)

	r.GET("/ping", h.Ping)

	// downloaded session illustrations
	if cfg.ImagesDir != "" {
		r.Static("/images", cfg.ImagesDir)
	}

	api := r.Group("/api")
	{
		api.POST("/session/start", h.StartSession)
		api.POST("/session/end", h.EndSession)
		api.GET("/session/check/:userId/:week", h.CheckSession)
		api.POST("/session/resume", h.ResumeSession)
		api.POST("/session/save", h.SaveSession)
		api.GET("/session/report/:userId/:week", h.GetReport)
		api.GET("/sessions/:userId", h.ListSessions)

		api.POST("/chat/greeting", h.Greeting)
		api.POST("/chat", h.Chat)
		if rabbit != nil {
			api.POST("/chat/async", h.ChatAsync)
			api.GET("/chat/jobs/:job_id", h.GetChatJob)
		}

		api.GET("/fortune-types", h.FortuneTypes)
		api.POST("/session/set-fortune", h.SetFortune)
		api.POST("/session/omakase-fortune", h.OmakaseFortune)

		api.POST("/users", h.CreateUser)
		api.POST("/login", h.Login)

		authGroup := api.Group("/")
		authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
		authGroup.GET("/me", h.Me)
	}

	return r
}
