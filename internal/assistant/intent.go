package assistant

import (
	"regexp"
	"strings"

	"github.com/suPer8Hu/order-assistant/internal/catalog"
)

type Intent int

const (
	IntentCommand Intent = iota
	IntentGreeting
	IntentPlaceOrder
	IntentTrackOrder
	IntentContinuation
	IntentProductMention
	IntentUnrelated
	IntentFreeform
)

func (i Intent) String() string {
	switch i {
	case IntentCommand:
		return "command"
	case IntentGreeting:
		return "greeting"
	case IntentPlaceOrder:
		return "place_order"
	case IntentTrackOrder:
		return "track_order"
	case IntentContinuation:
		return "continuation"
	case IntentProductMention:
		return "product_mention"
	case IntentUnrelated:
		return "unrelated"
	}
	return "freeform"
}

var (
	greetingWords   = []string{"hi", "hello", "hey", "greetings", "howdy", "hola", "yo"}
	greetingPhrases = []string{"what's up", "good morning", "good afternoon", "good evening"}

	storeTerms = []string{
		"order", "track", "product", "item", "shirt", "tee", "shorts", "bra", "shoe",
		"running", "price", "cost", "delivery", "shipping", "size", "payment",
		"traintech", "flexfit", "aeroflow", "strideflex",
	}

	punctRe = regexp.MustCompile(`[.,]+`)
)

// clean lowercases and drops periods and commas.
func clean(text string) string {
	return strings.TrimSpace(punctRe.ReplaceAllString(strings.ToLower(text), ""))
}

// Classifier is a pure function of text and the current state.
type Classifier struct {
	cat *catalog.Catalog
}

func NewClassifier(cat *catalog.Catalog) Classifier {
	return Classifier{cat: cat}
}

func (c Classifier) Classify(text string, st State) Intent {
	if _, ok := matchCommand(text, false); ok {
		return IntentCommand
	}

	t := clean(text)
	has := func(s string) bool { return strings.Contains(t, s) }
	anyOf := func(words ...string) bool {
		for _, w := range words {
			if has(w) {
				return true
			}
		}
		return false
	}

	switch {
	case isGreeting(t):
		return IntentGreeting
	case has("place") && has("order"),
		anyOf("buy", "purchase", "order") && anyOf("product", "item"),
		has("get") && anyOf("shirt", "shorts", "bra", "shoe"):
		return IntentPlaceOrder
	case anyOf("track", "where", "status", "find") && has("order"):
		return IntentTrackOrder
	}

	switch st.(type) {
	case CollectingOrder, Tracking:
		return IntentContinuation
	}

	if _, ok := c.cat.Match(t); ok {
		return IntentProductMention
	}
	if len(strings.Fields(t)) > 3 && !anyOf(storeTerms...) {
		return IntentUnrelated
	}
	return IntentFreeform
}

// isGreeting matches whole words and whole phrases only, so addresses
// like "1 High St" and emails like "hi@x.com" do not count.
func isGreeting(cleaned string) bool {
	words := strings.Fields(cleaned)
	for i, w := range words {
		w = strings.Trim(w, "!?")
		words[i] = w
		for _, g := range greetingWords {
			if w == g {
				return true
			}
		}
	}
	padded := " " + strings.Join(words, " ") + " "
	for _, p := range greetingPhrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}
