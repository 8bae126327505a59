package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("t1")
	other := b.Subscribe("t2")

	evt := SSEEvent{Type: "solve.completed", Data: map[string]any{"x": 1}}
	b.Publish("t1", evt)

	select {
	case got := <-ch:
		require.Equal(t, evt.Type, got.Type)
		require.Equal(t, 1, got.Data["x"])
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	select {
	case <-other:
		t.Fatal("event leaked to another tenant")
	default:
	}

	b.Unsubscribe("t1", ch)
	_, ok := <-ch
	require.False(t, ok, "channel should be closed after unsubscribe")
	// second unsubscribe is a no-op
	b.Unsubscribe("t1", ch)
}

func TestBrokerPublishDropsWhenFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("t1")
	for i := 0; i < 20; i++ {
		b.Publish("t1", SSEEvent{Type: "solve.completed"})
	}
	require.Len(t, ch, cap(ch))
}
