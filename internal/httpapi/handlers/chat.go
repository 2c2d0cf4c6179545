package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/order-assistant/internal/chat"
	"github.com/suPer8Hu/order-assistant/internal/common"
	"go.uber.org/zap"
)

// chatUser is "" for anonymous shoppers. Their sessions work, but the
// assistant asks them to sign in before ordering or tracking.
func chatUser(c *gin.Context) string {
	uid, ok := userIDFromContext(c)
	if !ok {
		return ""
	}
	return strconv.FormatUint(uid, 10)
}

func (h *Handler) CreateChatSession(c *gin.Context) {
	uid := chatUser(c)

	sess, msgs, err := h.ChatSvc.CreateSession(c.Request.Context(), uid)
	if err != nil {
		h.Log.Error("create chat session", zap.String("user_id", uid), zap.Error(err))
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create session")
		return
	}

	common.OK(c, gin.H{
		"session_id": sess.SessionID,
		"messages":   msgs,
	})
}

type sendMessageReq struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	uid := chatUser(c)

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	msgs, err := h.ChatSvc.SendMessage(c.Request.Context(), uid, req.SessionID, req.Message)
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		common.Fail(c, http.StatusNotFound, 40004, "session not found")
		return
	case errors.Is(err, chat.ErrEmptyMessage):
		common.Fail(c, http.StatusBadRequest, 10002, "message required")
		return
	case err != nil:
		h.Log.Error("send chat message",
			zap.String("user_id", uid),
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to send message")
		return
	}

	common.OK(c, gin.H{
		"session_id": req.SessionID,
		"messages":   msgs,
	})
}

func (h *Handler) ListChatMessages(c *gin.Context) {
	uid := chatUser(c)

	sessionID := c.Param("session_id")

	limit, _ := strconv.Atoi(c.Query("limit"))
	var beforeID uint64
	if s := c.Query("before_id"); s != "" {
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			beforeID = n
		}
	}

	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), uid, sessionID, limit, beforeID)
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			common.Fail(c, http.StatusNotFound, 40004, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}

	var nextBeforeID uint64
	if len(msgs) > 0 {
		nextBeforeID = msgs[len(msgs)-1].ID
	}

	common.OK(c, gin.H{
		"messages":       msgs,
		"next_before_id": nextBeforeID,
	})
}
