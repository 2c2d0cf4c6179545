package ai

import (
	"context"
	"fmt"
	"strings"
)

// Canned replies used when the model is unavailable or wanders off topic.
const (
	RedirectReply = "I'm here to help you place orders for our fitness products or track your existing orders. Would you like to place an order or track an order today?"
)

var refusalMarkers = []string{"can't help", "cannot help", "don't offer", "do not offer"}

// StoreGenerator produces freeform shop assistant replies through a
// registry provider. The system prompt pins the model to the catalog.
type StoreGenerator struct {
	reg       *Registry
	provider  string
	model     string
	storeName string
	products  []string
}

func NewStoreGenerator(reg *Registry, provider, model, storeName string, products []string) *StoreGenerator {
	return &StoreGenerator{
		reg:       reg,
		provider:  provider,
		model:     model,
		storeName: storeName,
		products:  append([]string(nil), products...),
	}
}

func (g *StoreGenerator) Generate(ctx context.Context, text, orderContext string) (string, error) {
	p, err := g.reg.Get(ctx, g.provider, g.model)
	if err != nil {
		return "", err
	}
	reply, err := p.Chat(ctx, []Message{
		{Role: RoleSystem, Content: g.SystemPrompt(orderContext)},
		{Role: RoleUser, Content: text},
	})
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)

	lower := strings.ToLower(reply)
	if strings.Contains(lower, "sorry") {
		for _, m := range refusalMarkers {
			if strings.Contains(lower, m) {
				return RedirectReply, nil
			}
		}
	}
	return reply, nil
}

func (g *StoreGenerator) SystemPrompt(orderContext string) string {
	var b strings.Builder
	shop := "a fitness apparel store"
	if g.storeName != "" {
		shop = fmt.Sprintf("%s, a fitness apparel store", g.storeName)
	}
	fmt.Fprintf(&b, "You are a helpful shopping assistant for %s.\n", shop)
	b.WriteString("Be friendly, helpful, and concise. Keep responses under 150 words.\n")
	fmt.Fprintf(&b, "IMPORTANT: You can ONLY help with placing orders for: %s, OR tracking existing orders.\n",
		strings.Join(g.products, ", "))
	b.WriteString("Do not suggest features, products, or services that aren't related to ordering these specific products or tracking orders.\n")
	b.WriteString("If asked about other products, say they are out of stock.\n")
	b.WriteString("If asked to do anything outside ordering or tracking, politely redirect to these main functions.\n")
	if orderContext != "" {
		fmt.Fprintf(&b, "\nCurrent order context: %s\n", orderContext)
	}
	return b.String()
}
