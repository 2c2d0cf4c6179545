package assistant

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/suPer8Hu/order-assistant/internal/order"
)

// Draft is the order being assembled. Products, Sizes, Quantities and
// UnitPrices are parallel lists.
type Draft struct {
	Products   []string `json:"products,omitempty"`
	Sizes      []string `json:"sizes,omitempty"`
	Quantities []int    `json:"quantities,omitempty"`
	UnitPrices []int64  `json:"unit_prices,omitempty"`
	TotalPrice int64    `json:"total_price,omitempty"`

	Email           string `json:"email,omitempty"`
	EmailVerified   bool   `json:"email_verified,omitempty"`
	ShippingAddress string `json:"shipping_address,omitempty"`

	UserID   string `json:"user_id,omitempty"`
	UserName string `json:"user_name,omitempty"`
}

func (d Draft) Clone() Draft {
	d.Products = append([]string(nil), d.Products...)
	d.Sizes = append([]string(nil), d.Sizes...)
	d.Quantities = append([]int(nil), d.Quantities...)
	d.UnitPrices = append([]int64(nil), d.UnitPrices...)
	return d
}

// Items zips the parallel lists. Callers check Missing first.
func (d Draft) Items() []order.Item {
	items := make([]order.Item, 0, len(d.Products))
	for i, p := range d.Products {
		it := order.Item{Product: p, Position: i}
		if i < len(d.Sizes) {
			it.Size = d.Sizes[i]
		}
		if i < len(d.Quantities) {
			it.Quantity = d.Quantities[i]
		}
		if i < len(d.UnitPrices) {
			it.UnitPrice = d.UnitPrices[i]
		}
		items = append(items, it)
	}
	return items
}

// Missing names the first required field that is absent, or "".
func (d Draft) Missing() Step {
	n := len(d.Products)
	switch {
	case n == 0:
		return StepProduct
	case len(d.Sizes) != n:
		return StepSize
	case len(d.Quantities) != n:
		return StepQuantity
	case strings.TrimSpace(d.Email) == "":
		return StepEmail
	case utf8.RuneCountInString(strings.TrimSpace(d.ShippingAddress)) < minAddressLen:
		return StepAddress
	}
	return ""
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
