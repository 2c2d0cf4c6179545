package assistant

import (
	"sort"
	"time"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatMessage is immutable once emitted. DelayMS is a pacing hint for the
// client: how long after the turn's immediate replies to show it.
type ChatMessage struct {
	ID       int64     `json:"id"`
	Text     string    `json:"text"`
	Sender   Sender    `json:"sender"`
	OrderRef string    `json:"order_ref,omitempty"`
	DelayMS  int64     `json:"delay_ms,omitempty"`
	At       time.Time `json:"at"`
}

type queued struct {
	msg   ChatMessage
	delay time.Duration
}

// Emitter owns the transcript. Immediate replies are appended as they are
// said; follow-ups wait in an outbound queue until Flush.
type Emitter struct {
	now        func() time.Time
	nextID     int64
	transcript []ChatMessage
	outbound   []queued
	turnStart  int
}

func NewEmitter(now func() time.Time) *Emitter {
	if now == nil {
		now = time.Now
	}
	return &Emitter{now: now, nextID: 1}
}

func (e *Emitter) append(m ChatMessage) ChatMessage {
	m.ID = e.nextID
	e.nextID++
	m.At = e.now()
	e.transcript = append(e.transcript, m)
	return m
}

// BeginTurn marks where the current turn's output starts.
func (e *Emitter) BeginTurn() {
	e.turnStart = len(e.transcript)
}

func (e *Emitter) User(text string) ChatMessage {
	return e.append(ChatMessage{Text: text, Sender: SenderUser})
}

func (e *Emitter) Say(text string) {
	e.append(ChatMessage{Text: text, Sender: SenderAssistant})
}

func (e *Emitter) SayRef(text, orderID string) {
	e.append(ChatMessage{Text: text, Sender: SenderAssistant, OrderRef: orderID})
}

// After queues a follow-up shown delay after this turn's replies.
func (e *Emitter) After(delay time.Duration, text string) {
	e.AfterRef(delay, text, "")
}

func (e *Emitter) AfterRef(delay time.Duration, text, orderID string) {
	e.outbound = append(e.outbound, queued{
		msg:   ChatMessage{Text: text, Sender: SenderAssistant, OrderRef: orderID},
		delay: delay,
	})
}

// Flush drains the outbound queue shortest delay first, keeping queue order
// for equal delays, and returns everything emitted since BeginTurn.
func (e *Emitter) Flush() []ChatMessage {
	sort.SliceStable(e.outbound, func(i, j int) bool {
		return e.outbound[i].delay < e.outbound[j].delay
	})
	for _, q := range e.outbound {
		m := q.msg
		m.DelayMS = q.delay.Milliseconds()
		e.append(m)
	}
	e.outbound = e.outbound[:0]

	out := make([]ChatMessage, len(e.transcript)-e.turnStart)
	copy(out, e.transcript[e.turnStart:])
	e.turnStart = len(e.transcript)
	return out
}

// Transcript returns a copy of every message so far.
func (e *Emitter) Transcript() []ChatMessage {
	out := make([]ChatMessage, len(e.transcript))
	copy(out, e.transcript)
	return out
}
