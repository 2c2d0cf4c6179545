package assistant

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/suPer8Hu/order-assistant/internal/common"
	"github.com/suPer8Hu/order-assistant/internal/order"
	"go.uber.org/zap"
)

type commandKind int

const (
	cmdSelfTest commandKind = iota + 1
	cmdCheckSchema
	cmdSendReceipt
	cmdTestEmail
)

func (k commandKind) String() string {
	switch k {
	case cmdSelfTest:
		return "self_test"
	case cmdCheckSchema:
		return "check_schema"
	case cmdSendReceipt:
		return "send_receipt"
	case cmdTestEmail:
		return "test_email"
	}
	return "unknown"
}

type command struct {
	kind commandKind
	arg  string
}

var receiptArgRe = regexp.MustCompile(`(?i)receipt\s+(\S+)`)

// matchCommand recognizes the debug surface. A bare "send receipt" while a
// receipt prompt is armed is an answer to the prompt, not a command.
func matchCommand(text string, receiptArmed bool) (command, bool) {
	raw := strings.TrimSpace(text)
	lower := strings.ToLower(raw)
	switch lower {
	case "!test supabase", "!testdb":
		return command{kind: cmdSelfTest}, true
	case "!check table", "!check schema":
		return command{kind: cmdCheckSchema}, true
	case "!test email":
		return command{kind: cmdTestEmail}, true
	}

	if strings.HasPrefix(lower, "!send receipt") || strings.HasPrefix(lower, "send receipt") {
		var arg string
		if m := receiptArgRe.FindStringSubmatch(raw); m != nil {
			arg = m[1]
		}
		if arg == "" && receiptArmed && !strings.HasPrefix(lower, "!") {
			return command{}, false
		}
		return command{kind: cmdSendReceipt, arg: arg}, true
	}
	return command{}, false
}

func (e *Engine) dispatchCommand(ctx context.Context, text string) bool {
	_, armed := e.state.(AwaitingReceipt)
	cmd, ok := matchCommand(text, armed)
	if !ok {
		return false
	}
	e.log.Info("debug command", zap.String("command", cmd.kind.String()))

	switch cmd.kind {
	case cmdSelfTest:
		e.emit.Say("Testing database connection...")
		if err := e.store.SelfTest(ctx); err != nil {
			e.log.Warn("store self test failed", zap.Error(err))
			e.emit.Say("❌ There was an issue connecting to the database (" + failureClass(err) + ").")
			return true
		}
		e.emit.Say("✅ Database connection successful! Reads and writes are working.")

	case cmdCheckSchema:
		e.emit.Say("Checking the order tables...")
		if err := e.store.CheckSchema(ctx); err != nil {
			e.log.Warn("schema check failed", zap.Error(err))
			e.emit.Say("❌ There are issues with the order tables: " + err.Error())
			return true
		}
		e.emit.Say("✅ The order tables exist and appear to be working correctly.")

	case cmdSendReceipt:
		if cmd.arg == "" {
			e.emit.Say("Please specify an order ID to send a receipt for, e.g. '!send receipt ORD123'")
			return true
		}
		if _, ok := e.requireIdentity(ctx); !ok {
			return true
		}
		if _, err := e.lookupOwned(ctx, cmd.arg); err != nil {
			if errors.Is(err, order.ErrNotFound) {
				e.emit.Say(msgTrackNotFound)
				return true
			}
			e.log.Warn("receipt command lookup failed",
				zap.String("order_id", cmd.arg),
				zap.String("class", failureClass(err)),
				zap.Error(err),
			)
			e.emit.Say(msgTrackError)
			return true
		}
		e.emit.Say("Sending receipt email for order " + cmd.arg + "...")
		if err := e.notifier.SendReceipt(ctx, cmd.arg); err != nil {
			e.log.Warn("receipt command failed", zap.String("order_id", cmd.arg), zap.Error(err))
			e.emit.SayRef("❌ There was an issue sending the receipt email. Please try again later.", cmd.arg)
			return true
		}
		e.emit.SayRef("✅ Receipt email sent successfully!", cmd.arg)

	case cmdTestEmail:
		e.testEmail(ctx)
	}
	return true
}

// testEmail sends a confirmation for a synthetic order to the signed-in
// shopper.
func (e *Engine) testEmail(ctx context.Context) {
	who, ok := e.ident.Current(ctx)
	if !ok || strings.TrimSpace(who.Email) == "" {
		e.emit.Say("❌ No email address found. Please make sure you're logged in.")
		return
	}
	e.emit.Say("Sending test email to: " + who.Email)

	now := e.now()
	id, err := common.NewPrefixedID("test-", now)
	if err != nil {
		e.emit.Say("❌ Could not build the test order.")
		return
	}
	first := e.cat.List()[0]
	rec := &order.Record{
		ID:              id,
		UserID:          who.ID,
		UserName:        who.Name,
		Email:           who.Email,
		Items:           []order.Item{{OrderID: id, Product: first.Name, Size: first.Sizes[0], Quantity: 1, UnitPrice: first.UnitPrice}},
		TotalPrice:      first.UnitPrice,
		ShippingAddress: "123 Test St, TestCity, TS 12345",
		Status:          order.StatusPending,
		CreatedAt:       now,
	}
	if err := e.notifier.SendConfirmation(ctx, rec); err != nil {
		e.log.Warn("test email failed", zap.Error(err))
		e.emit.Say("❌ There was a problem sending the test email. Check the server logs for details.")
		return
	}
	e.emit.Say("✅ Test email sent! Please check your inbox (and spam folder).")
}
