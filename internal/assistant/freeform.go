package assistant

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

var (
	productWords   = []string{"product", "item", "apparel", "gear"}
	steeringPhrase = []string{"place an order", "track your order", "track an order"}
)

func (e *Engine) freeform(ctx context.Context, text string) {
	if e.gen == nil {
		e.emit.Say(msgGenerateFail)
		return
	}
	reply, err := e.gen.Generate(ctx, clean(text), orderContext(e.state))
	if err != nil || strings.TrimSpace(reply) == "" {
		e.log.Warn("freeform generation failed", zap.Error(err))
		e.emit.Say(msgGenerateFail)
		return
	}

	if e.offCatalog(reply) {
		e.emit.Say(onlyCarryReply(e.cat))
		return
	}
	e.emit.Say(reply)

	lower := strings.ToLower(reply)
	for _, p := range steeringPhrase {
		if strings.Contains(lower, p) {
			return
		}
	}
	e.emit.After(reminderDelay, msgReminder)
}

// offCatalog flags replies that talk about products without naming any
// product we carry.
func (e *Engine) offCatalog(reply string) bool {
	if e.cat.MentionsAny(reply) {
		return false
	}
	lower := strings.ToLower(reply)
	for _, w := range productWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func orderContext(s State) string {
	if ar, ok := s.(AwaitingReceipt); ok {
		s = ar.Resume
	}
	co, ok := s.(CollectingOrder)
	if !ok || len(co.Draft.Products) == 0 {
		return ""
	}
	return "User is interested in: " + strings.Join(co.Draft.Products, ", ")
}
