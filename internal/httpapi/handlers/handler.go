package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/order-assistant/internal/chat"
	"github.com/suPer8Hu/order-assistant/internal/common"
	"github.com/suPer8Hu/order-assistant/internal/config"
	"github.com/suPer8Hu/order-assistant/internal/email"
	"github.com/suPer8Hu/order-assistant/internal/httpapi/middleware"
	"github.com/suPer8Hu/order-assistant/internal/order"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Mailer sends plain text mail; nil disables the welcome email.
type Mailer func(cfg email.SMTPConfig, to, subject, body string) error

type Handler struct {
	DB          *gorm.DB
	Cfg         config.Config
	Log         *zap.Logger
	SMTPSetting email.SMTPConfig
	SendMail    Mailer
	ChatSvc     *chat.Service
	Orders      *order.Repo
}

func NewHandler(db *gorm.DB, cfg config.Config, log *zap.Logger, chatSvc *chat.Service, orders *order.Repo) *Handler {
	return &Handler{
		DB:  db,
		Cfg: cfg,
		Log: log,
		SMTPSetting: email.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		},
		SendMail: email.SendText,
		ChatSvc:  chatSvc,
		Orders:   orders,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
