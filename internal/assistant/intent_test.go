package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/suPer8Hu/order-assistant/internal/catalog"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(catalog.Default())
	collecting := CollectingOrder{Step: StepAddress}

	cases := []struct {
		text string
		st   State
		want Intent
	}{
		{"!testdb", Idle{}, IntentCommand},
		{"send receipt ord-1", Idle{}, IntentCommand},
		{"hi", Idle{}, IntentGreeting},
		{"Hey!", Idle{}, IntentGreeting},
		{"good morning there", Idle{}, IntentGreeting},
		{"I want to place an order", Idle{}, IntentPlaceOrder},
		{"can I buy a product", Idle{}, IntentPlaceOrder},
		{"I'd like to get a shirt", Idle{}, IntentPlaceOrder},
		{"where is my order?", Idle{}, IntentTrackOrder},
		{"track order", collecting, IntentTrackOrder},
		{"place an order", collecting, IntentPlaceOrder},
		{"1 High St, Springfield, 12345", collecting, IntentContinuation},
		{"hi@example.com", CollectingOrder{Step: StepEmail}, IntentContinuation},
		{"ord-42", Tracking{Phase: TrackAwaitingID}, IntentContinuation},
		{"aeroflow", Idle{}, IntentProductMention},
		{"tell me about the Aeroflow sports bra", Idle{}, IntentProductMention},
		{"what is the weather like today", Idle{}, IntentUnrelated},
		{"what does shipping cost to canada", Idle{}, IntentFreeform},
		{"thanks", Idle{}, IntentFreeform},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.text, tc.st))
		})
	}
}

func TestIsGreeting_WholeWordsOnly(t *testing.T) {
	assert.True(t, isGreeting("hello there"))
	assert.True(t, isGreeting("well what's up"))
	assert.False(t, isGreeting("this is my address"))
	assert.False(t, isGreeting("high street"))
	assert.False(t, isGreeting("they said"))
}

func TestClean(t *testing.T) {
	assert.Equal(t, "1 main st city", clean("  1 Main St., City "))
}
