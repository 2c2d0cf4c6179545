package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/order-assistant/internal/common"
	"github.com/suPer8Hu/order-assistant/internal/httpapi/handlers"
	"github.com/suPer8Hu/order-assistant/internal/httpapi/middleware"
	"go.uber.org/zap"
)

func NewRouter(h *handlers.Handler, jwtSecret string, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(log))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(log))

	r.GET("/ping", h.Ping)

	// users
	r.POST("/users", h.CreateUser)
	r.POST("/login", h.Login)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(jwtSecret))
	authGroup.GET("/me", h.Me)

	// chat, open to anonymous shoppers
	chatGroup := r.Group("/chat")
	chatGroup.Use(middleware.AuthOptional(jwtSecret))
	chatGroup.POST("/sessions", h.CreateChatSession)
	chatGroup.POST("/messages", h.SendChatMessage)
	chatGroup.GET("/sessions/:session_id/messages", h.ListChatMessages)

	// orders
	authGroup.GET("/orders", h.ListOrders)
	authGroup.GET("/orders/:id", h.GetOrder)
	authGroup.POST("/orders/:id/cancel", h.CancelOrder)
	return r
}
