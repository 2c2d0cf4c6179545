package assistant

import (
	"encoding/json"
	"fmt"
)

// State is the single dialogue mode of a conversation. Exactly one of
// Idle, CollectingOrder, Tracking or AwaitingReceipt is active.
type State interface {
	stateKind() string
}

type Step string

const (
	StepProduct  Step = "product"
	StepSize     Step = "size"
	StepQuantity Step = "quantity"
	StepEmail    Step = "email"
	StepAddress  Step = "shipping_address"
)

type TrackPhase string

const (
	TrackAwaitingID    TrackPhase = "awaiting_id"
	TrackShowingResult TrackPhase = "showing_result"
)

type Idle struct{}

type CollectingOrder struct {
	Step  Step
	Draft Draft
}

type Tracking struct {
	Phase TrackPhase
}

// AwaitingReceipt overlays Resume until the next inbound message decides
// whether a receipt is sent.
type AwaitingReceipt struct {
	OrderID string
	Resume  State
}

func (Idle) stateKind() string            { return "idle" }
func (CollectingOrder) stateKind() string { return "collecting_order" }
func (Tracking) stateKind() string        { return "tracking" }
func (AwaitingReceipt) stateKind() string { return "awaiting_receipt" }

// StateName is the wire name of s, used in logs.
func StateName(s State) string {
	if s == nil {
		return "idle"
	}
	return s.stateKind()
}

// armReceipt wraps base, never nesting one receipt prompt inside another.
func armReceipt(base State, orderID string) State {
	if ar, ok := base.(AwaitingReceipt); ok {
		base = ar.Resume
	}
	if base == nil {
		base = Idle{}
	}
	return AwaitingReceipt{OrderID: orderID, Resume: base}
}

type stateEnvelope struct {
	Kind    string          `json:"kind"`
	Step    Step            `json:"step,omitempty"`
	Draft   *Draft          `json:"draft,omitempty"`
	Phase   TrackPhase      `json:"phase,omitempty"`
	OrderID string          `json:"order_id,omitempty"`
	Resume  json.RawMessage `json:"resume,omitempty"`
}

func MarshalState(s State) ([]byte, error) {
	env := stateEnvelope{Kind: StateName(s)}
	switch v := s.(type) {
	case nil, Idle:
	case CollectingOrder:
		d := v.Draft.Clone()
		env.Step = v.Step
		env.Draft = &d
	case Tracking:
		env.Phase = v.Phase
	case AwaitingReceipt:
		inner, err := MarshalState(v.Resume)
		if err != nil {
			return nil, err
		}
		env.OrderID = v.OrderID
		env.Resume = inner
	default:
		return nil, fmt.Errorf("assistant: unknown state %T", s)
	}
	return json.Marshal(env)
}

// UnmarshalState decodes MarshalState output. Empty input is Idle.
func UnmarshalState(b []byte) (State, error) {
	if len(b) == 0 {
		return Idle{}, nil
	}
	var env stateEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "", "idle":
		return Idle{}, nil
	case "collecting_order":
		if !validStep(env.Step) {
			return nil, fmt.Errorf("assistant: bad order step %q", env.Step)
		}
		var d Draft
		if env.Draft != nil {
			d = *env.Draft
		}
		return CollectingOrder{Step: env.Step, Draft: d}, nil
	case "tracking":
		if env.Phase != TrackAwaitingID && env.Phase != TrackShowingResult {
			return nil, fmt.Errorf("assistant: bad tracking phase %q", env.Phase)
		}
		return Tracking{Phase: env.Phase}, nil
	case "awaiting_receipt":
		if env.OrderID == "" {
			return nil, fmt.Errorf("assistant: receipt prompt without order id")
		}
		inner, err := UnmarshalState(env.Resume)
		if err != nil {
			return nil, err
		}
		return armReceipt(inner, env.OrderID), nil
	}
	return nil, fmt.Errorf("assistant: unknown state kind %q", env.Kind)
}

func validStep(s Step) bool {
	switch s {
	case StepProduct, StepSize, StepQuantity, StepEmail, StepAddress:
		return true
	}
	return false
}
