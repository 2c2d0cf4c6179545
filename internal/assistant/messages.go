package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/suPer8Hu/order-assistant/internal/catalog"
	"github.com/suPer8Hu/order-assistant/internal/order"
)

// Follow-up pacing.
const (
	promptDelay   = 800 * time.Millisecond
	offerDelay    = 1500 * time.Millisecond
	reminderDelay = 3 * time.Second
)

const (
	msgWelcome       = "Hi there! I can help you place an order or track an existing one. What would you like to do today?"
	msgGreeting      = "Hello! I can help you place an order or track an existing one. What would you like to do today?"
	msgSignInNeeded  = "You need to be logged in to place an order or track your orders."
	msgSignInHow     = "Please sign in, then come back to continue."
	msgStartOrder    = "Great! Let's place an order together. I'll guide you through the process."
	msgStartTracking = "I can help you track your order. Please provide your order ID."
	msgOrderHint     = "Just say 'I want to place an order' and I'll guide you through the process."
	msgReminder      = "I'm here to help you place an order or track an existing one. What would you like to do?"
	msgGenerateFail  = "I'm sorry, I'm having trouble understanding. Would you like to place an order or track an existing one?"

	msgEmailPrompt   = "Please provide your email address for order confirmation:"
	msgAddressPrompt = "What's your shipping address? Please include street, city, and zip code."

	msgSubmitting    = "Submitting your order..."
	msgSetupError    = "There was an issue with the database setup."
	msgSetupHint     = "Please ask the store administrator to create the order tables. Your order has still been recorded."
	msgPermError     = "Our order service could not save your order due to a permissions problem."
	msgPermHint      = "The store team has been notified. Your order has still been recorded."
	msgReceiptOffer  = "Would you like me to send you a detailed receipt email for this order? Reply with 'Yes' to send the receipt."
	msgReceiptSend   = "I'll send you a detailed receipt email right away."
	msgReceiptSent   = "Great! I've sent a detailed receipt email to your registered email address."
	msgReceiptFailed = "I'm sorry, I wasn't able to send the receipt email. Please try again later."

	msgTrackNotFound = "I couldn't find an order with that ID. Please check the ID and try again."
	msgTrackError    = "I'm sorry, there was an issue retrieving your order details. Please try again later."
)

func productPrompt(cat *catalog.Catalog) string {
	return "What product would you like to order? We currently have: " + humanList(cat.Names()) + "."
}

// humanList joins "a, b, and c".
func humanList(names []string) string {
	n := len(names)
	if n < 2 {
		return strings.Join(names, "")
	}
	return strings.Join(names[:n-1], ", ") + ", and " + names[n-1]
}

func sizePrompt(entries []catalog.Entry) string {
	if len(entries) == 1 {
		return fmt.Sprintf("What size would you like for this product? Available sizes: %s.", strings.Join(entries[0].Sizes, ", "))
	}
	var b strings.Builder
	b.WriteString("What size would you like for each product? Please list them separated by commas, in the same order.")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%s: %s", e.Name, strings.Join(e.Sizes, ", "))
	}
	return b.String()
}

func quantityPrompt(n int) string {
	if n == 1 {
		return "How many would you like to order?"
	}
	return "How many of each would you like to order? Please list the quantities separated by commas, in the same order."
}

func productOffer(e catalog.Entry) string {
	return fmt.Sprintf("Would you like to order the %s? It costs $%s and comes in sizes %s.",
		e.Name, catalog.FormatPrice(e.UnitPrice), strings.Join(e.Sizes, ", "))
}

func unrelatedReply(storeName string) string {
	return fmt.Sprintf("Sorry, I'm a %s chat assistant. I can only help you with placing orders or tracking existing ones. How can I assist you with your fitness apparel needs today?", storeName)
}

func onlyCarryReply(cat *catalog.Catalog) string {
	return fmt.Sprintf("I'm sorry, we only carry %s at the moment. Would you like to order one of these items?", humanList(cat.Names()))
}

func existingOrders(n int64) string {
	return fmt.Sprintf("I see you have %d existing order(s). You can ask me to track them anytime.", n)
}

// orderSummary renders the single summary block shown after submission.
func orderSummary(rec *order.Record) string {
	var products, sizes []string
	var qty []int
	for _, it := range rec.Items {
		products = append(products, it.Product)
		sizes = append(sizes, it.Size)
		qty = append(qty, it.Quantity)
	}
	return fmt.Sprintf("Order Summary:\nProduct: %s\nSize: %s\nQuantity: %s\nTotal: $%s\n\nA confirmation email will be sent to %s.",
		strings.Join(products, ", "), strings.Join(sizes, ", "), joinInts(qty),
		catalog.FormatPrice(rec.TotalPrice), rec.Email)
}

// trackingDetails shows a stored order. The total is recomputed from the
// items rather than read from the record.
func trackingDetails(rec *order.Record) string {
	var products, sizes, prices []string
	var qty []int
	for _, it := range rec.Items {
		products = append(products, it.Product)
		sizes = append(sizes, it.Size)
		qty = append(qty, it.Quantity)
		prices = append(prices, "$"+catalog.FormatPrice(it.UnitPrice))
	}
	status := string(rec.Status)
	if status == "" {
		status = string(order.StatusProcessing)
	}
	return fmt.Sprintf("Here are the details for your order:\n\nOrder ID: %s\nProduct: %s\nSize: %s\nQuantity: %s\nPrice: %s each (Total: $%s)\nStatus: %s\nShipping to: %s\n\nWould you like me to send you a detailed receipt email for this order? Reply with \"Yes\" to send the receipt, or continue with any other question.",
		rec.ID,
		strings.Join(products, ", "), strings.Join(sizes, ", "), joinInts(qty),
		strings.Join(prices, ", "), catalog.FormatPrice(rec.Sum()),
		status, rec.ShippingAddress)
}
