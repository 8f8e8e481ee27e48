package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/kiroku-app/kiroku/internal/common"
	"github.com/kiroku-app/kiroku/internal/config"
	"github.com/kiroku-app/kiroku/internal/journal"
	"github.com/kiroku-app/kiroku/internal/store/rabbitmq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Handler struct {
	DB     *gorm.DB
	Cfg    config.Config
	Svc    *journal.Service
	Store  *journal.Store
	Rabbit *rabbitmq.Publisher
	Logger *zap.Logger
}

func NewHandler(db *gorm.DB, cfg config.Config, svc *journal.Service, store *journal.Store, rabbit *rabbitmq.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		DB:     db,
		Cfg:    cfg,
		Svc:    svc,
		Store:  store,
		Rabbit: rabbit,
		Logger: logger,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"message": "pong"})
}
