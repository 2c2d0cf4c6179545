package assistant

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/suPer8Hu/order-assistant/internal/common"
	"github.com/suPer8Hu/order-assistant/internal/order"
	"go.uber.org/zap"
)

// Fallback id prefixes, one per persistence failure class.
const (
	prefixSetup    = "setup-"
	prefixPerm     = "perm-"
	prefixFallback = "fallback-"
)

func failureClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, order.ErrTableNotFound):
		return "table_not_found"
	case errors.Is(err, order.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, order.ErrNotFound):
		return "not_found"
	}
	return "other"
}

// submit always ends with one order summary unless the shopper is not
// signed in. Store failures degrade to a locally synthesized record.
func (e *Engine) submit(ctx context.Context, d Draft) *order.Record {
	who, ok := e.ident.Current(ctx)
	if !ok {
		e.emit.Say("You need to be logged in to place an order.")
		e.emit.Say(msgSignInHow)
		e.state = Idle{}
		return nil
	}

	d.UserID = who.ID
	d.UserName = strings.TrimSpace(who.Name)
	if d.UserName == "" {
		d.UserName = "Guest User"
	}
	if strings.TrimSpace(d.Email) == "" {
		d.Email = who.Email
	}
	if missing := d.Missing(); missing != "" {
		e.restartOrder(ctx, missingReason(missing))
		return nil
	}

	units, total, err := Price(e.cat, d.Products, d.Quantities)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			e.restartOrder(ctx, ve.Msg+" Let's start again.")
			return nil
		}
		e.restartOrder(ctx, missingReason(StepProduct))
		return nil
	}
	d.UnitPrices, d.TotalPrice = units, total

	e.emit.Say(msgSubmitting)

	in := order.NewOrder{
		UserID:          d.UserID,
		UserName:        d.UserName,
		Email:           d.Email,
		Items:           d.Items(),
		ShippingAddress: d.ShippingAddress,
	}
	rec, err := e.store.Create(ctx, in)
	if err != nil {
		rec = e.degrade(ctx, in, err)
	} else {
		e.log.Info("order placed",
			zap.String("order_id", rec.ID),
			zap.String("user_id", rec.UserID),
			zap.Int64("total_cents", rec.TotalPrice),
		)
	}

	if err := e.notifier.SendConfirmation(ctx, rec); err != nil {
		e.log.Warn("confirmation email failed", zap.String("order_id", rec.ID), zap.Error(err))
	}

	e.emit.SayRef("Success! Your order has been placed. Your order ID is: "+rec.ID, rec.ID)
	e.emit.SayRef(orderSummary(rec), rec.ID)

	e.state = armReceipt(Idle{}, rec.ID)
	e.emit.AfterRef(offerDelay, msgReceiptOffer, rec.ID)
	return rec
}

func (e *Engine) degrade(ctx context.Context, in order.NewOrder, cause error) *order.Record {
	prefix := prefixFallback
	switch {
	case errors.Is(cause, order.ErrTableNotFound):
		prefix = prefixSetup
		e.emit.Say(msgSetupError)
		e.emit.Say(msgSetupHint)
	case errors.Is(cause, order.ErrPermissionDenied):
		prefix = prefixPerm
		e.emit.Say(msgPermError)
		e.emit.Say(msgPermHint)
	}

	now := e.now()
	id, err := common.NewPrefixedID(prefix, now)
	if err != nil {
		id = prefix + strconv.FormatInt(now.UnixNano(), 36)
	}

	rec := &order.Record{
		ID:              id,
		UserID:          in.UserID,
		UserName:        in.UserName,
		Email:           in.Email,
		ShippingAddress: in.ShippingAddress,
		Status:          order.StatusPending,
		EmailSent:       false,
		CreatedAt:       now,
	}
	for _, it := range in.Items {
		it.OrderID = id
		rec.Items = append(rec.Items, it)
	}
	rec.TotalPrice = rec.Sum()

	e.log.Error("order store create failed, using fallback record",
		zap.String("order_id", id),
		zap.String("user_id", in.UserID),
		zap.String("class", failureClass(cause)),
		zap.Error(cause),
	)

	if r, ok := e.notifier.(Reconciler); ok {
		if err := r.Reconcile(ctx, rec); err != nil {
			e.log.Warn("schedule reconcile failed", zap.String("order_id", id), zap.Any("order", rec), zap.Error(err))
		}
	} else {
		e.log.Warn("fallback order not reconciled", zap.String("order_id", id), zap.Any("order", rec))
	}
	return rec
}
