package assistant

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/suPer8Hu/order-assistant/internal/catalog"
	"github.com/suPer8Hu/order-assistant/internal/order"
)

// ValidationError is a field level problem reported back to the shopper.
// The dialogue stays on the same step.
type ValidationError struct {
	Field Step
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(field Step, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

const minAddressLen = order.MinAddressLen

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	productSplitRe = regexp.MustCompile(`(?i),|\band\b`)
)

// ProductSelection is the outcome of the product step.
type ProductSelection struct {
	Available   []catalog.Entry
	Unavailable []string
}

// ParseProducts splits text on commas and the word "and" and matches every
// candidate against the catalog. Duplicates collapse to their first
// occurrence.
func ParseProducts(cat *catalog.Catalog, text string) ProductSelection {
	var sel ProductSelection
	seen := map[string]bool{}
	for _, raw := range productSplitRe.Split(text, -1) {
		cand := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "."))
		if cand == "" {
			continue
		}
		e, ok := cat.Match(cand)
		if !ok {
			sel.Unavailable = append(sel.Unavailable, cand)
			continue
		}
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		sel.Available = append(sel.Available, e)
	}
	return sel
}

func splitList(text string) []string {
	parts := strings.Split(text, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ParseSizes expects one comma separated size per product, in order.
func ParseSizes(cat *catalog.Catalog, products []string, text string) ([]string, error) {
	sizes := splitList(text)
	if len(sizes) != len(products) {
		return nil, invalid(StepSize, "Please provide one size for each product, separated by commas (%d expected).", len(products))
	}

	var bad []string
	for i, p := range products {
		sizes[i] = strings.ToUpper(sizes[i])
		e, ok := cat.Lookup(p)
		if !ok || !e.HasSize(sizes[i]) {
			bad = append(bad, fmt.Sprintf("%s for %s", displaySize(sizes[i]), p))
		}
	}
	if len(bad) > 0 {
		return nil, invalid(StepSize, "I'm sorry, the following sizes are not available: %s. Please provide valid sizes.", strings.Join(bad, ", "))
	}
	return sizes, nil
}

func displaySize(s string) string {
	if s == "" {
		return "(blank)"
	}
	return s
}

// ParseQuantities expects exactly n comma separated integers between 1 and
// order.MaxQuantity. Every bad token is reported, nothing is accepted
// partially.
func ParseQuantities(products []string, text string) ([]int, error) {
	toks := splitList(text)
	if len(toks) != len(products) {
		return nil, invalid(StepQuantity, "Please provide a quantity for each product.")
	}

	out := make([]int, len(toks))
	var bad []string
	for i, tok := range toks {
		n, err := strconv.Atoi(tok)
		if err != nil || n < 1 || n > order.MaxQuantity {
			bad = append(bad, fmt.Sprintf("%s for %s", displaySize(tok), products[i]))
			continue
		}
		out[i] = n
	}
	if len(bad) > 0 {
		return nil, invalid(StepQuantity, "Please enter valid quantities for each product: %s.", strings.Join(bad, ", "))
	}
	return out, nil
}

func ValidateEmail(text string) (string, error) {
	v := strings.TrimSpace(text)
	if !emailPattern.MatchString(v) {
		return "", invalid(StepEmail, "Please enter a valid email address. This is where we'll send your order confirmation.")
	}
	return v, nil
}

func ValidateAddress(text string) (string, error) {
	v := strings.TrimSpace(text)
	if utf8.RuneCountInString(v) < minAddressLen {
		return "", invalid(StepAddress, "Your shipping address seems too short. Please provide a complete address including street, city, and zip code.")
	}
	return v, nil
}

// Price looks every product up again and returns unit prices and the
// total. A product missing from the catalog is a validation error.
func Price(cat *catalog.Catalog, products []string, quantities []int) ([]int64, int64, error) {
	if len(products) != len(quantities) {
		return nil, 0, invalid(StepQuantity, "Please provide a quantity for each product.")
	}
	units := make([]int64, len(products))
	var total int64
	for i, p := range products {
		e, ok := cat.Lookup(p)
		if !ok {
			return nil, 0, invalid(StepProduct, "I'm sorry, %s is no longer available.", p)
		}
		q := int64(quantities[i])
		if q < 1 || q > order.MaxQuantity || e.UnitPrice > (math.MaxInt64-total)/q {
			return nil, 0, invalid(StepQuantity, "Please enter a quantity between 1 and %d for %s.", order.MaxQuantity, p)
		}
		units[i] = e.UnitPrice
		total += e.UnitPrice * q
	}
	return units, total, nil
}
