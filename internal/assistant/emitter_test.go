package assistant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter_FlushOrdersFollowUps(t *testing.T) {
	e := NewEmitter(func() time.Time { return fixedNow })

	e.BeginTurn()
	e.User("hello")
	e.After(3*time.Second, "late")
	e.After(800*time.Millisecond, "soon")
	e.Say("now")
	e.AfterRef(800*time.Millisecond, "soon too", "ord-1")

	out := e.Flush()
	require.Len(t, out, 5)
	var got []string
	for _, m := range out {
		got = append(got, m.Text)
	}
	assert.Equal(t, []string{"hello", "now", "soon", "soon too", "late"}, got)
	assert.Equal(t, int64(0), out[1].DelayMS)
	assert.Equal(t, int64(800), out[2].DelayMS)
	assert.Equal(t, "ord-1", out[3].OrderRef)
	assert.Equal(t, int64(3000), out[4].DelayMS)

	for i, m := range out {
		assert.Equal(t, int64(i+1), m.ID)
	}
}

func TestEmitter_TurnsDoNotLeak(t *testing.T) {
	e := NewEmitter(nil)

	e.BeginTurn()
	e.Say("one")
	e.After(time.Second, "one later")
	require.Len(t, e.Flush(), 2)

	e.BeginTurn()
	e.Say("two")
	out := e.Flush()
	require.Len(t, out, 1)
	assert.Equal(t, "two", out[0].Text)

	assert.Len(t, e.Transcript(), 3)
}
