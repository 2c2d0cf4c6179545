// Package assistant is the conversational order engine: it classifies each
// inbound message, drives the order and tracking dialogues, submits orders
// and emits the assistant's replies.
package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/suPer8Hu/order-assistant/internal/catalog"
	"github.com/suPer8Hu/order-assistant/internal/identity"
	"github.com/suPer8Hu/order-assistant/internal/order"
	"go.uber.org/zap"
)

type IdentitySource interface {
	Current(ctx context.Context) (identity.Identity, bool)
}

type OrderStore interface {
	Create(ctx context.Context, in order.NewOrder) (*order.Record, error)
	GetByID(ctx context.Context, id string) (*order.Record, error)
	SelfTest(ctx context.Context) error
	CheckSchema(ctx context.Context) error
}

// OrderCounter is optionally implemented by the store for the welcome line.
type OrderCounter interface {
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// Notifier failures are logged and never change an order's outcome.
type Notifier interface {
	SendConfirmation(ctx context.Context, rec *order.Record) error
	SendReceipt(ctx context.Context, orderID string) error
}

// Reconciler is optionally implemented by notifiers that can retry
// persisting a degraded order later.
type Reconciler interface {
	Reconcile(ctx context.Context, rec *order.Record) error
}

type Generator interface {
	Generate(ctx context.Context, text, orderContext string) (string, error)
}

type Deps struct {
	Catalog   *catalog.Catalog
	Identity  IdentitySource
	Store     OrderStore
	Notifier  Notifier
	Generator Generator // optional
	Log       *zap.Logger
	Now       func() time.Time
	StoreName string
}

// Engine runs one conversation. Handle is serialized: a message's store
// and notifier calls finish before the next message is looked at.
type Engine struct {
	mu sync.Mutex

	cat       *catalog.Catalog
	classify  Classifier
	ident     IdentitySource
	store     OrderStore
	notifier  Notifier
	gen       Generator
	log       *zap.Logger
	now       func() time.Time
	storeName string

	state State
	emit  *Emitter
}

func New(d Deps) (*Engine, error) {
	switch {
	case d.Catalog == nil:
		return nil, errors.New("assistant: catalog is required")
	case d.Identity == nil:
		return nil, errors.New("assistant: identity source is required")
	case d.Store == nil:
		return nil, errors.New("assistant: order store is required")
	case d.Notifier == nil:
		return nil, errors.New("assistant: notifier is required")
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.StoreName == "" {
		d.StoreName = "YourFit"
	}
	return &Engine{
		cat:       d.Catalog,
		classify:  NewClassifier(d.Catalog),
		ident:     d.Identity,
		store:     d.Store,
		notifier:  d.Notifier,
		gen:       d.Generator,
		log:       d.Log,
		now:       d.Now,
		storeName: d.StoreName,
		state:     Idle{},
		emit:      NewEmitter(d.Now),
	}, nil
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Restore replaces the dialogue state, e.g. after loading it from redis.
func (e *Engine) Restore(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s == nil {
		s = Idle{}
	}
	e.state = s
}

func (e *Engine) Transcript() []ChatMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emit.Transcript()
}

// Welcome opens a conversation, mentioning existing orders when the
// shopper is signed in.
func (e *Engine) Welcome(ctx context.Context) []ChatMessage {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.emit.BeginTurn()
	e.emit.Say(msgWelcome)
	if who, ok := e.ident.Current(ctx); ok {
		if c, ok := e.store.(OrderCounter); ok {
			n, err := c.CountByUser(ctx, who.ID)
			if err != nil {
				e.log.Warn("count orders", zap.String("user_id", who.ID), zap.Error(err))
			} else if n > 0 {
				e.emit.Say(existingOrders(n))
			}
		}
	}
	return e.emit.Flush()
}

// Handle processes one inbound message and returns the messages emitted
// for it, the echoed user message first.
func (e *Engine) Handle(ctx context.Context, text string) []ChatMessage {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.emit.BeginTurn()
	e.emit.User(text)

	text = strings.TrimSpace(text)
	if text != "" {
		e.process(ctx, text)
	}
	return e.emit.Flush()
}

// process is the pipeline: command dispatch, then the receipt overlay,
// then classification. A message that disarms the receipt overlay goes
// through the pipeline a second time.
func (e *Engine) process(ctx context.Context, text string) {
	for pass := 0; pass < 2; pass++ {
		if e.dispatchCommand(ctx, text) {
			return
		}
		if ar, ok := e.state.(AwaitingReceipt); ok {
			e.state = ar.Resume
			if isAffirmative(text) {
				e.sendReceipt(ctx, ar.OrderID)
				return
			}
			e.log.Debug("receipt prompt disarmed", zap.String("order_id", ar.OrderID))
			continue
		}
		e.route(ctx, text)
		return
	}
}

func (e *Engine) route(ctx context.Context, text string) {
	intent := e.classify.Classify(text, e.state)
	e.log.Debug("intent",
		zap.String("intent", intent.String()),
		zap.String("state", StateName(e.state)),
	)

	switch intent {
	case IntentGreeting:
		e.emit.Say(msgGreeting)
	case IntentPlaceOrder:
		e.startOrder(ctx)
	case IntentTrackOrder:
		e.startTracking(ctx)
	case IntentContinuation:
		switch st := e.state.(type) {
		case CollectingOrder:
			e.continueOrder(ctx, st, text)
		case Tracking:
			e.continueTracking(ctx, text)
		}
	case IntentProductMention:
		if p, ok := e.cat.Match(clean(text)); ok {
			e.emit.Say(productOffer(p))
			e.emit.After(offerDelay, msgOrderHint)
		}
	case IntentUnrelated:
		e.emit.Say(unrelatedReply(e.storeName))
	default:
		e.freeform(ctx, text)
	}
}

// requireIdentity reports sign-in failures to the shopper.
func (e *Engine) requireIdentity(ctx context.Context) (identity.Identity, bool) {
	who, ok := e.ident.Current(ctx)
	if !ok {
		e.emit.Say(msgSignInNeeded)
		e.emit.Say(msgSignInHow)
	}
	return who, ok
}
