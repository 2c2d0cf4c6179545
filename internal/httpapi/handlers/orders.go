package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/order-assistant/internal/common"
	"github.com/suPer8Hu/order-assistant/internal/order"
	"go.uber.org/zap"
)

func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	recs, err := h.Orders.ListByUser(c.Request.Context(), strconv.FormatUint(uid, 10), limit)
	if err != nil {
		h.Log.Error("list orders", zap.Uint64("user_id", uid), zap.Error(err))
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to list orders")
		return
	}
	common.OK(c, gin.H{"orders": recs})
}

func (h *Handler) GetOrder(c *gin.Context) {
	rec, ok := h.ownedOrder(c)
	if !ok {
		return
	}
	common.OK(c, gin.H{"order": rec})
}

// CancelOrder only moves pending orders.
func (h *Handler) CancelOrder(c *gin.Context) {
	rec, ok := h.ownedOrder(c)
	if !ok {
		return
	}
	if rec.Status != order.StatusPending {
		common.Fail(c, http.StatusConflict, 40901, "only pending orders can be cancelled")
		return
	}
	if err := h.Orders.CancelPending(c.Request.Context(), rec.ID, rec.UserID); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			common.Fail(c, http.StatusConflict, 40901, "only pending orders can be cancelled")
			return
		}
		h.Log.Error("cancel order", zap.String("order_id", rec.ID), zap.Error(err))
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to cancel order")
		return
	}
	common.OK(c, gin.H{"id": rec.ID, "status": order.StatusCancelled})
}

// ownedOrder writes the failure response itself. Orders of other users
// are reported as missing.
func (h *Handler) ownedOrder(c *gin.Context) (*order.Record, bool) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return nil, false
	}
	rec, err := h.Orders.GetByID(c.Request.Context(), c.Param("id"))
	if err == nil && rec.UserID != strconv.FormatUint(uid, 10) {
		err = order.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40403, "order not found")
			return nil, false
		}
		h.Log.Error("get order", zap.String("order_id", c.Param("id")), zap.Error(err))
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to load order")
		return nil, false
	}
	return rec, true
}
