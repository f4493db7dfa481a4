package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper: receive one event with a timeout so tests never hang
func recvEvent(t *testing.T, ch <-chan Event, within time.Duration) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("event channel closed unexpectedly")
		}
		return ev
	case <-time.After(within):
		t.Fatalf("timed out waiting for event")
		return Event{} // unreachable
	}
}

func recvNoEvent(t *testing.T, ch <-chan Event, within time.Duration) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no event within %v, but got: %+v", within, ev)
	case <-time.After(within):
	}
}

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.Set("rooms/123456/status", "waiting"))

	v, ok := m.Get("rooms/123456/status")
	require.True(t, ok)
	assert.Equal(t, "waiting", v)

	_, ok = m.Get("rooms/999999")
	assert.False(t, ok)
}

func TestMemory_SetMapWritesChildren(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.Set("rooms/123456", map[string]any{
		"hostId": "h1",
		"status": "waiting",
	}))

	v, ok := m.Get("rooms/123456/hostId")
	require.True(t, ok)
	assert.Equal(t, "h1", v)

	root, ok := m.Get("rooms/123456")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"hostId": "h1", "status": "waiting"}, root)
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Set("rooms/1", map[string]any{"status": "waiting"}))

	v, _ := m.Get("rooms/1")
	v.(map[string]any)["status"] = "mangled"

	again, _ := m.Get("rooms/1")
	assert.Equal(t, "waiting", again.(map[string]any)["status"])
}

func TestMemory_SetNilDeletes(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Set("rooms/1/claims/Top Line", "alice"))
	require.NoError(t, m.Set("rooms/1/claims", nil))

	_, ok := m.Get("rooms/1/claims")
	assert.False(t, ok)
}

func TestMemory_UpdateIsAtomic(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Set("rooms/1", map[string]any{
		"status":       "ongoing",
		"resetVersion": int64(1),
		"claims":       map[string]any{"Top Line": "alice"},
	}))

	events, cancel := m.Subscribe("rooms/1")
	defer cancel()
	recvEvent(t, events, time.Second) // initial value

	require.NoError(t, m.Update("rooms/1", map[string]any{
		"status":       "waiting",
		"resetVersion": int64(2),
		"claims":       nil,
	}))

	// One notification carrying the fully-applied update, never a torn one.
	ev := recvEvent(t, events, time.Second)
	room := ev.Value.(map[string]any)
	assert.Equal(t, "waiting", room["status"])
	assert.Equal(t, int64(2), room["resetVersion"])
	_, hasClaims := room["claims"]
	assert.False(t, hasClaims)

	recvNoEvent(t, events, 50*time.Millisecond)
}

func TestMemory_TransactionFirstWriterWins(t *testing.T) {
	m := NewMemory()

	claim := func(name string) error {
		_, err := m.Transaction("rooms/1/claims/Full House", func(current any) (any, error) {
			if current != nil {
				return nil, ErrAborted
			}
			return name, nil
		})
		return err
	}

	require.NoError(t, claim("alice"))
	err := claim("bob")
	assert.ErrorIs(t, err, ErrAborted)

	v, ok := m.Get("rooms/1/claims/Full House")
	require.True(t, ok)
	assert.Equal(t, "alice", v)
}

func TestMemory_TransactionRace_ExactlyOneCommits(t *testing.T) {
	m := NewMemory()

	const racers = 32
	var wg sync.WaitGroup
	wins := make(chan int, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := m.Transaction("rooms/1/claims/Early Five", func(current any) (any, error) {
				if current != nil {
					return nil, ErrAborted
				}
				return id, nil
			})
			if err == nil {
				wins <- id
			} else if !errors.Is(err, ErrAborted) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []int
	for id := range wins {
		winners = append(winners, id)
	}
	require.Len(t, winners, 1)

	v, ok := m.Get("rooms/1/claims/Early Five")
	require.True(t, ok)
	assert.Equal(t, winners[0], v)
}

func TestMemory_SubscribeDeliversCurrentThenUpdates(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Set("rooms/1/calledNumbers", []int{0}))

	events, cancel := m.Subscribe("rooms/1/calledNumbers")
	defer cancel()

	first := recvEvent(t, events, time.Second)
	assert.Equal(t, []int{0}, first.Value)

	require.NoError(t, m.Set("rooms/1/calledNumbers", []int{0, 7}))
	next := recvEvent(t, events, time.Second)
	assert.Equal(t, []int{0, 7}, next.Value)
}

func TestMemory_AncestorSeesDescendantWrites(t *testing.T) {
	m := NewMemory()
	events, cancel := m.Subscribe("rooms/1")
	defer cancel()
	recvEvent(t, events, time.Second) // initial nil

	require.NoError(t, m.Set("rooms/1/claims/Top Line", "alice"))
	ev := recvEvent(t, events, time.Second)
	room, ok := ev.Value.(map[string]any)
	require.True(t, ok)
	claims := room["claims"].(map[string]any)
	assert.Equal(t, "alice", claims["Top Line"])
}

func TestMemory_SlowSubscriberCoalescesToLatest(t *testing.T) {
	m := NewMemory()
	events, cancel := m.Subscribe("rooms/1/status")
	defer cancel()

	// Never drained the initial event; pile on writes.
	for _, s := range []string{"waiting", "ongoing", "finished"} {
		require.NoError(t, m.Set("rooms/1/status", s))
	}

	ev := recvEvent(t, events, time.Second)
	assert.Equal(t, "finished", ev.Value)
}

func TestMemory_CancelStopsDelivery(t *testing.T) {
	m := NewMemory()
	events, cancel := m.Subscribe("rooms/1/status")
	recvEvent(t, events, time.Second)
	cancel()

	require.NoError(t, m.Set("rooms/1/status", "ongoing"))

	_, open := <-events
	assert.False(t, open)

	// Double cancel is harmless.
	cancel()
}

func TestMemory_UnrelatedPathNotNotified(t *testing.T) {
	m := NewMemory()
	events, cancel := m.Subscribe("rooms/1")
	defer cancel()
	recvEvent(t, events, time.Second)

	require.NoError(t, m.Set("rooms/2/status", "waiting"))
	recvNoEvent(t, events, 50*time.Millisecond)
}
