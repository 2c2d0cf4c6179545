// Package notify delivers order confirmation and receipt emails, either
// inline over SMTP or through the rabbitmq worker.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/suPer8Hu/order-assistant/internal/catalog"
	"github.com/suPer8Hu/order-assistant/internal/email"
	"github.com/suPer8Hu/order-assistant/internal/order"
	"go.uber.org/zap"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends through email.SendText.
type SMTPSender struct {
	Cfg email.SMTPConfig
}

func (s SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return email.SendText(s.Cfg, to, subject, body)
}

type OrderLookup interface {
	GetByID(ctx context.Context, id string) (*order.Record, error)
	MarkEmailSent(ctx context.Context, id string) error
}

// Mailer renders and sends order emails. It is the direct mode notifier.
type Mailer struct {
	sender    Sender
	orders    OrderLookup
	storeName string
	log       *zap.Logger
}

func NewMailer(sender Sender, orders OrderLookup, storeName string, log *zap.Logger) *Mailer {
	if storeName == "" {
		storeName = "YourFit"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Mailer{sender: sender, orders: orders, storeName: storeName, log: log}
}

func (m *Mailer) SendConfirmation(ctx context.Context, rec *order.Record) error {
	if rec == nil || strings.TrimSpace(rec.Email) == "" {
		return errors.New("confirmation: order without email")
	}
	subject := fmt.Sprintf("Your %s Order Confirmation #%s", m.storeName, rec.ID)
	if err := m.sender.Send(ctx, rec.Email, subject, ConfirmationBody(m.storeName, rec)); err != nil {
		return fmt.Errorf("confirmation %s: %w", rec.ID, err)
	}

	// fallback and test records are not in the table
	if err := m.orders.MarkEmailSent(ctx, rec.ID); err != nil && !errors.Is(err, order.ErrNotFound) {
		m.log.Warn("mark email_sent failed", zap.String("order_id", rec.ID), zap.Error(err))
	}
	return nil
}

func (m *Mailer) SendReceipt(ctx context.Context, orderID string) error {
	rec, err := m.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("receipt %s: %w", orderID, err)
	}
	return m.SendReceiptFor(ctx, rec)
}

func (m *Mailer) SendReceiptFor(ctx context.Context, rec *order.Record) error {
	if strings.TrimSpace(rec.Email) == "" {
		return fmt.Errorf("receipt %s: order without email", rec.ID)
	}
	subject := fmt.Sprintf("Your %s Receipt - Order #%s", m.storeName, rec.ID)
	if err := m.sender.Send(ctx, rec.Email, subject, ReceiptBody(m.storeName, rec)); err != nil {
		return fmt.Errorf("receipt %s: %w", rec.ID, err)
	}
	return nil
}

// Summary lists one line per item, shared by both emails.
func Summary(rec *order.Record) string {
	var b strings.Builder
	for _, it := range rec.Items {
		fmt.Fprintf(&b, "%s (size %s) x %d @ $%s = $%s\n",
			it.Product, it.Size, it.Quantity,
			catalog.FormatPrice(it.UnitPrice), catalog.FormatPrice(it.LineTotal()))
	}
	fmt.Fprintf(&b, "Total: $%s", catalog.FormatPrice(rec.TotalPrice))
	return b.String()
}

func ConfirmationBody(storeName string, rec *order.Record) string {
	var b strings.Builder
	b.WriteString("Thank You for Your Order!\n\n")
	fmt.Fprintf(&b, "Dear %s,\n\n", greetingName(rec))
	b.WriteString("We've received your order and are processing it now.\n\n")
	fmt.Fprintf(&b, "Order ID: %s\n", rec.ID)
	b.WriteString(Summary(rec))
	b.WriteString("\n\nYou will receive another email when your order ships.\n")
	b.WriteString("If you have any questions, please reply to this email.\n\n")
	fmt.Fprintf(&b, "Thank you for shopping with %s!\nThe %s Team\n", storeName, storeName)
	return b.String()
}

func ReceiptBody(storeName string, rec *order.Record) string {
	var b strings.Builder
	b.WriteString("Your Order Receipt\n\n")
	fmt.Fprintf(&b, "Hello %s,\n\n", greetingName(rec))
	b.WriteString("Thank you for your order! Here's your receipt:\n\n")
	fmt.Fprintf(&b, "Order ID: %s\n", rec.ID)
	if !rec.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Order Date: %s\n", rec.CreatedAt.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "Status: %s\n", rec.Status)
	fmt.Fprintf(&b, "Shipping Address: %s\n\n", rec.ShippingAddress)
	b.WriteString(Summary(rec))
	fmt.Fprintf(&b, "\n\nThe %s Team\n", storeName)
	return b.String()
}

func greetingName(rec *order.Record) string {
	if n := strings.TrimSpace(rec.UserName); n != "" {
		return n
	}
	return "Customer"
}
