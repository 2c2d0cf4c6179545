package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

func (e *Engine) startOrder(ctx context.Context) {
	who, ok := e.requireIdentity(ctx)
	if !ok {
		e.state = Idle{}
		return
	}
	d := Draft{UserID: who.ID, UserName: who.Name}
	if strings.TrimSpace(who.Email) != "" {
		d.Email = who.Email
		d.EmailVerified = true
	}
	e.state = CollectingOrder{Step: StepProduct, Draft: d}
	e.emit.Say(msgStartOrder)
	e.emit.After(promptDelay, productPrompt(e.cat))
}

// restartOrder is used when a precondition turns out to be missing late.
func (e *Engine) restartOrder(ctx context.Context, reason string) {
	e.emit.Say(reason)
	e.startOrder(ctx)
}

func (e *Engine) continueOrder(ctx context.Context, st CollectingOrder, text string) {
	d := st.Draft.Clone()
	switch st.Step {
	case StepProduct:
		e.productStep(d, text)
	case StepSize:
		e.sizeStep(d, text)
	case StepQuantity:
		e.quantityStep(d, text)
	case StepEmail:
		e.emailStep(d, text)
	case StepAddress:
		e.addressStep(ctx, d, text)
	}
}

func (e *Engine) reject(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		e.emit.Say(ve.Msg)
		return true
	}
	if err != nil {
		e.log.Error("order step", zap.Error(err))
		e.emit.Say(msgGenerateFail)
		return true
	}
	return false
}

func (e *Engine) productStep(d Draft, text string) {
	sel := ParseProducts(e.cat, text)

	if len(sel.Available) > 0 {
		d.Products = d.Products[:0]
		for _, p := range sel.Available {
			d.Products = append(d.Products, p.Name)
		}
		d.Sizes, d.Quantities, d.UnitPrices, d.TotalPrice = nil, nil, nil, 0

		if len(sel.Available) == 1 {
			e.emit.Say(fmt.Sprintf("Great choice! The product %s is available.", d.Products[0]))
		} else {
			e.emit.Say(fmt.Sprintf("Great choice! The following products are available: %s.", strings.Join(d.Products, ", ")))
		}
		e.emit.After(promptDelay, sizePrompt(sel.Available))
		e.state = CollectingOrder{Step: StepSize, Draft: d}
	}

	if len(sel.Unavailable) > 0 {
		e.emit.Say(fmt.Sprintf("I'm sorry, the following products are not available or out of stock: %s.", strings.Join(sel.Unavailable, ", ")))
	}
	if len(sel.Available) == 0 {
		e.emit.After(promptDelay, productPrompt(e.cat))
	}
}

func (e *Engine) sizeStep(d Draft, text string) {
	sizes, err := ParseSizes(e.cat, d.Products, text)
	if e.reject(err) {
		return
	}
	d.Sizes = sizes
	e.state = CollectingOrder{Step: StepQuantity, Draft: d}
	e.emit.After(promptDelay, quantityPrompt(len(d.Products)))
}

func (e *Engine) quantityStep(d Draft, text string) {
	qty, err := ParseQuantities(d.Products, text)
	if e.reject(err) {
		return
	}
	units, total, err := Price(e.cat, d.Products, qty)
	if e.reject(err) {
		return
	}
	d.Quantities, d.UnitPrices, d.TotalPrice = qty, units, total

	if d.EmailVerified && d.Email != "" {
		e.state = CollectingOrder{Step: StepAddress, Draft: d}
		e.emit.After(promptDelay, fmt.Sprintf("I'll use your account email (%s) for order confirmation.", d.Email))
		e.emit.After(promptDelay, msgAddressPrompt)
		return
	}
	e.state = CollectingOrder{Step: StepEmail, Draft: d}
	e.emit.After(promptDelay, msgEmailPrompt)
}

func (e *Engine) emailStep(d Draft, text string) {
	addr, err := ValidateEmail(text)
	if e.reject(err) {
		return
	}
	d.Email = addr
	e.state = CollectingOrder{Step: StepAddress, Draft: d}
	e.emit.After(promptDelay, msgAddressPrompt)
}

func (e *Engine) addressStep(ctx context.Context, d Draft, text string) {
	addr, err := ValidateAddress(text)
	if e.reject(err) {
		return
	}
	e.emit.Say(fmt.Sprintf("Thank you! I've recorded your shipping address as: \"%s\"", addr))

	// submit from this snapshot, not from whatever the state holds
	snap := d.Clone()
	snap.ShippingAddress = addr
	e.submit(ctx, snap)
}

func missingReason(s Step) string {
	switch s {
	case StepProduct:
		return "I'm missing the product you want to order. Let's start again."
	case StepSize:
		return "I'm missing the size you want. Let's start again."
	case StepQuantity:
		return "I'm missing the quantity you want to order. Let's start again."
	case StepEmail:
		return "I'm missing your email address for sending order confirmation. Let's start again."
	}
	return "I'm missing your shipping address or it's too short. Let's start again."
}
