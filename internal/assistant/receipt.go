package assistant

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

var affirmatives = map[string]bool{
	"yes":          true,
	"send receipt": true,
	"send":         true,
	"sure":         true,
}

func isAffirmative(text string) bool {
	return affirmatives[strings.ToLower(strings.TrimSpace(text))]
}

// sendReceipt runs after the prompt has already been disarmed.
func (e *Engine) sendReceipt(ctx context.Context, orderID string) {
	e.emit.Say(msgReceiptSend)
	if err := e.notifier.SendReceipt(ctx, orderID); err != nil {
		e.log.Warn("receipt email failed", zap.String("order_id", orderID), zap.Error(err))
		e.emit.SayRef(msgReceiptFailed, orderID)
		return
	}
	e.emit.SayRef(msgReceiptSent, orderID)
}
