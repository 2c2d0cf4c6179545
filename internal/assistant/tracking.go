package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/suPer8Hu/order-assistant/internal/order"
	"go.uber.org/zap"
)

func (e *Engine) startTracking(ctx context.Context) {
	if _, ok := e.requireIdentity(ctx); !ok {
		e.state = Idle{}
		return
	}
	e.state = Tracking{Phase: TrackAwaitingID}
	e.emit.Say(msgStartTracking)
}

// continueTracking looks the id up once. Found or not, the dialogue ends;
// a found order arms the receipt prompt.
func (e *Engine) continueTracking(ctx context.Context, text string) {
	id := strings.TrimPrefix(strings.TrimSpace(text), "#")
	e.state = Tracking{Phase: TrackShowingResult}
	e.emit.Say(fmt.Sprintf("Looking up order %s...", id))

	rec, err := e.lookupOwned(ctx, id)
	switch {
	case errors.Is(err, order.ErrNotFound):
		e.emit.Say(msgTrackNotFound)
		e.state = Idle{}
	case err != nil:
		e.log.Warn("order lookup failed",
			zap.String("order_id", id),
			zap.String("class", failureClass(err)),
			zap.Error(err),
		)
		e.emit.Say(msgTrackError)
		e.state = Idle{}
	default:
		e.emit.SayRef(trackingDetails(rec), rec.ID)
		e.state = armReceipt(Idle{}, rec.ID)
	}
}

// lookupOwned hides orders that belong to someone else.
func (e *Engine) lookupOwned(ctx context.Context, id string) (*order.Record, error) {
	who, ok := e.ident.Current(ctx)
	if !ok {
		return nil, order.ErrNotFound
	}
	rec, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != who.ID {
		return nil, order.ErrNotFound
	}
	return rec, nil
}
