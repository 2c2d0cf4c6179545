package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	states := []State{
		Idle{},
		CollectingOrder{Step: StepQuantity, Draft: Draft{
			Products:      []string{"TrainTech Performance Tee"},
			Sizes:         []string{"M"},
			Email:         "sam@example.com",
			EmailVerified: true,
			UserID:        "u-1",
		}},
		Tracking{Phase: TrackAwaitingID},
		AwaitingReceipt{OrderID: "ord-1", Resume: Idle{}},
		AwaitingReceipt{OrderID: "ord-2", Resume: CollectingOrder{Step: StepProduct}},
	}
	for _, s := range states {
		t.Run(StateName(s), func(t *testing.T) {
			b, err := MarshalState(s)
			require.NoError(t, err)
			got, err := UnmarshalState(b)
			require.NoError(t, err)
			assert.Equal(t, s, got)
		})
	}
}

func TestUnmarshalState_Rejects(t *testing.T) {
	for _, raw := range []string{
		`{"kind":"collecting_order","step":"colour"}`,
		`{"kind":"tracking","phase":"later"}`,
		`{"kind":"awaiting_receipt","resume":{"kind":"idle"}}`,
		`{"kind":"dancing"}`,
		`not json`,
	} {
		_, err := UnmarshalState([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestUnmarshalState_EmptyIsIdle(t *testing.T) {
	s, err := UnmarshalState(nil)
	require.NoError(t, err)
	assert.Equal(t, Idle{}, s)
}

func TestArmReceiptNeverNests(t *testing.T) {
	base := CollectingOrder{Step: StepSize}
	first := armReceipt(base, "a")
	second := armReceipt(first, "b")

	assert.Equal(t, AwaitingReceipt{OrderID: "b", Resume: base}, second)
	assert.Equal(t, AwaitingReceipt{OrderID: "c", Resume: Idle{}}, armReceipt(nil, "c"))
}

func TestUnmarshalState_FlattensNestedReceipt(t *testing.T) {
	raw := `{"kind":"awaiting_receipt","order_id":"b","resume":{"kind":"awaiting_receipt","order_id":"a","resume":{"kind":"idle"}}}`
	s, err := UnmarshalState([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, AwaitingReceipt{OrderID: "b", Resume: Idle{}}, s)
}
