package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/order-assistant/internal/notify"
	"github.com/suPer8Hu/order-assistant/internal/store/rabbitmq"
	"go.uber.org/zap"
)

type stubProcessor struct {
	err   error
	calls []string
}

func (p *stubProcessor) Process(ctx context.Context, jobID string) error {
	p.calls = append(p.calls, jobID)
	return p.err
}

type retry struct {
	msg   rabbitmq.JobMessage
	delay time.Duration
}

type stubPublisher struct {
	err     error
	retries []retry
}

func (p *stubPublisher) PublishRetry(ctx context.Context, msg rabbitmq.JobMessage, delay time.Duration) error {
	p.retries = append(p.retries, retry{msg, delay})
	return p.err
}

func TestHandleDelivery(t *testing.T) {
	transient := errors.New("smtp timeout")
	permanent := fmt.Errorf("%w: bad payload", notify.ErrPermanent)

	cases := []struct {
		name       string
		body       string
		procErr    error
		pubErr     error
		want       outcome
		wantRetry  *rabbitmq.JobMessage
		wantDelay  time.Duration
		wantCalled bool
	}{
		{name: "success", body: `{"job_id":"j1"}`, want: outcomeAck, wantCalled: true},
		{name: "bad json", body: `nope`, want: outcomeDeadLetter},
		{name: "missing id", body: `{"attempt":1}`, want: outcomeDeadLetter},
		{name: "permanent", body: `{"job_id":"j1"}`, procErr: permanent, want: outcomeDeadLetter, wantCalled: true},
		{
			name: "transient first attempt", body: `{"job_id":"j1"}`, procErr: transient,
			want: outcomeRetry, wantRetry: &rabbitmq.JobMessage{JobID: "j1", Attempt: 1}, wantDelay: 2 * time.Second, wantCalled: true,
		},
		{
			name: "transient later attempt", body: `{"job_id":"j1","attempt":2}`, procErr: transient,
			want: outcomeRetry, wantRetry: &rabbitmq.JobMessage{JobID: "j1", Attempt: 3}, wantDelay: 8 * time.Second, wantCalled: true,
		},
		{name: "out of attempts", body: `{"job_id":"j1","attempt":4}`, procErr: transient, want: outcomeDeadLetter, wantCalled: true},
		{
			name: "retry publish fails", body: `{"job_id":"j1"}`, procErr: transient, pubErr: errors.New("closed"),
			want: outcomeDeadLetter, wantRetry: &rabbitmq.JobMessage{JobID: "j1", Attempt: 1}, wantDelay: 2 * time.Second, wantCalled: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			proc := &stubProcessor{err: tc.procErr}
			pub := &stubPublisher{err: tc.pubErr}

			got := handleDelivery(context.Background(), []byte(tc.body), proc, pub, 5, zap.NewNop())
			assert.Equal(t, tc.want, got, got.String())
			assert.Equal(t, tc.wantCalled, len(proc.calls) == 1)

			if tc.wantRetry == nil {
				assert.Empty(t, pub.retries)
				return
			}
			require.Len(t, pub.retries, 1)
			assert.Equal(t, *tc.wantRetry, pub.retries[0].msg)
			assert.Equal(t, tc.wantDelay, pub.retries[0].delay)
		})
	}
}
