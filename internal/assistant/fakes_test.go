package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/order-assistant/internal/catalog"
	"github.com/suPer8Hu/order-assistant/internal/identity"
	"github.com/suPer8Hu/order-assistant/internal/order"
)

type fakeIdentity struct {
	who *identity.Identity
}

func (f *fakeIdentity) Current(ctx context.Context) (identity.Identity, bool) {
	if f.who == nil {
		return identity.Identity{}, false
	}
	return *f.who, true
}

type fakeStore struct {
	orders    map[string]*order.Record
	created   []order.NewOrder
	createErr error
	getErr    error
	testErr   error
	seq       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: map[string]*order.Record{}}
}

func (s *fakeStore) Create(ctx context.Context, in order.NewOrder) (*order.Record, error) {
	s.created = append(s.created, in)
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.seq++
	rec := &order.Record{
		ID:              fmt.Sprintf("ord-%d", s.seq),
		UserID:          in.UserID,
		UserName:        in.UserName,
		Email:           in.Email,
		Items:           in.Items,
		ShippingAddress: in.ShippingAddress,
		Status:          order.StatusPending,
	}
	rec.TotalPrice = rec.Sum()
	s.orders[rec.ID] = rec
	return rec, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*order.Record, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	rec, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return rec, nil
}

func (s *fakeStore) SelfTest(ctx context.Context) error    { return s.testErr }
func (s *fakeStore) CheckSchema(ctx context.Context) error { return s.testErr }

func (s *fakeStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	for _, r := range s.orders {
		if r.UserID == userID {
			n++
		}
	}
	return n, nil
}

type fakeNotifier struct {
	confirmations []*order.Record
	receipts      []string
	confirmErr    error
	receiptErr    error
}

func (n *fakeNotifier) SendConfirmation(ctx context.Context, rec *order.Record) error {
	n.confirmations = append(n.confirmations, rec)
	return n.confirmErr
}

func (n *fakeNotifier) SendReceipt(ctx context.Context, orderID string) error {
	n.receipts = append(n.receipts, orderID)
	return n.receiptErr
}

type reconcilingNotifier struct {
	fakeNotifier
	reconciled []*order.Record
}

func (n *reconcilingNotifier) Reconcile(ctx context.Context, rec *order.Record) error {
	n.reconciled = append(n.reconciled, rec)
	return nil
}

type fakeGenerator struct {
	reply string
	err   error
	calls []string
}

func (g *fakeGenerator) Generate(ctx context.Context, text, orderContext string) (string, error) {
	g.calls = append(g.calls, text)
	return g.reply, g.err
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	eng      *Engine
	ident    *fakeIdentity
	store    *fakeStore
	notifier Notifier
	gen      *fakeGenerator
}

func shopper() *identity.Identity {
	return &identity.Identity{ID: "u-1", Name: "Sam Runner", Email: "sam@example.com"}
}

func newHarness(t *testing.T, who *identity.Identity, n Notifier) *harness {
	t.Helper()
	if n == nil {
		n = &fakeNotifier{}
	}
	h := &harness{
		ident:    &fakeIdentity{who: who},
		store:    newFakeStore(),
		notifier: n,
		gen:      &fakeGenerator{reply: "We have great gear for runners. Would you like to place an order?"},
	}
	eng, err := New(Deps{
		Catalog:   catalog.Default(),
		Identity:  h.ident,
		Store:     h.store,
		Notifier:  n,
		Generator: h.gen,
		Now:       func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	h.eng = eng
	return h
}

func (h *harness) say(text string) []ChatMessage {
	return h.eng.Handle(context.Background(), text)
}

func (h *harness) notes() *fakeNotifier {
	switch n := h.notifier.(type) {
	case *fakeNotifier:
		return n
	case *reconcilingNotifier:
		return &n.fakeNotifier
	}
	return nil
}

// texts returns the assistant replies of a turn.
func texts(msgs []ChatMessage) []string {
	var out []string
	for _, m := range msgs {
		if m.Sender == SenderAssistant {
			out = append(out, m.Text)
		}
	}
	return out
}

func joined(msgs []ChatMessage) string {
	return strings.Join(texts(msgs), "\n")
}

func countContaining(msgs []ChatMessage, sub string) int {
	n := 0
	for _, t := range texts(msgs) {
		if strings.Contains(t, sub) {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")
