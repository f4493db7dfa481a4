package hub

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/chandana0511/tambola-backend/internal/claims"
	"github.com/chandana0511/tambola-backend/internal/identity"
	"github.com/chandana0511/tambola-backend/internal/room"
	"github.com/chandana0511/tambola-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvError(t *testing.T, ch <-chan error, within time.Duration) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(within):
		t.Fatalf("timed out waiting for command reply")
		return nil // unreachable
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

type fixture struct {
	st    *store.Memory
	ids   *identity.Provider
	svc   *room.Service
	code  string
	host  identity.Identity
	alice identity.Identity
}

func setup(t *testing.T) fixture {
	t.Helper()
	st := store.NewMemory()
	ids := identity.NewProvider()
	svc := room.NewService(st, ids, nil, zap.NewNop(), rand.New(rand.NewSource(1)))

	host := ids.Register("Host")
	alice := ids.Register("Alice")

	code, err := svc.CreateRoom(host.ID)
	require.NoError(t, err)
	_, err = svc.JoinRoom(code, alice.ID)
	require.NoError(t, err)

	return fixture{st: st, ids: ids, svc: svc, code: code, host: host, alice: alice}
}

func TestSession_JoinDeliversSnapshotThenBroadcastsOnWrite(t *testing.T) {
	f := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewSession(ctx, f.code, f.svc, f.st, zap.NewNop())

	clientOut := make(chan Snapshot, 4)
	s.Inbox() <- Join{ClientID: "c1", Outbox: clientOut}

	first := recvSnapshot(t, clientOut, time.Second)
	assert.Equal(t, f.code, first.Room.Code)
	assert.Equal(t, room.StatusWaiting, first.Room.Status)
	assert.False(t, first.Reset)

	// A host call lands in the store and comes back around as a snapshot.
	reply := make(chan error, 1)
	s.Inbox() <- FromClient{PlayerID: f.host.ID, Cmd: Command{Type: CmdCallNumber}, Reply: reply}
	require.NoError(t, recvError(t, reply, time.Second))

	var called Snapshot
	require.Eventually(t, func() bool {
		select {
		case called = <-clientOut:
			return len(called.Room.CalledNumbers()) == 1
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	assert.Greater(t, called.Version, first.Version)
	assert.Equal(t, room.StatusOngoing, called.Room.Status)
}

func TestSession_ClaimRace_SecondClientRejected(t *testing.T) {
	f := setup(t)
	bob := f.ids.Register("Bob")
	bobTicket, err := f.svc.JoinRoom(f.code, bob.ID)
	require.NoError(t, err)

	snap, err := f.svc.Snapshot(f.code)
	require.NoError(t, err)
	aliceTicket := snap.Tickets[f.alice.ID]

	called := []int{0}
	called = append(called, aliceTicket.RowNumbers(0)...)
	called = append(called, bobTicket.RowNumbers(0)...)
	require.NoError(t, f.st.Set("rooms/"+f.code+"/calledNumbers", called))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewSession(ctx, f.code, f.svc, f.st, zap.NewNop())

	claim := Command{Type: CmdSubmitClaim, Claim: claims.TopLine}

	aliceReply := make(chan error, 1)
	s.Inbox() <- FromClient{PlayerID: f.alice.ID, Cmd: claim, Reply: aliceReply}
	require.NoError(t, recvError(t, aliceReply, time.Second))

	bobReply := make(chan error, 1)
	s.Inbox() <- FromClient{PlayerID: bob.ID, Cmd: claim, Reply: bobReply}
	assert.ErrorIs(t, recvError(t, bobReply, time.Second), room.ErrClaimRejected)
}

func TestSession_NonHostCannotCall(t *testing.T) {
	f := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewSession(ctx, f.code, f.svc, f.st, zap.NewNop())

	reply := make(chan error, 1)
	s.Inbox() <- FromClient{PlayerID: f.alice.ID, Cmd: Command{Type: CmdCallNumber}, Reply: reply}
	assert.ErrorIs(t, recvError(t, reply, time.Second), room.ErrNotHost)
}

func TestSession_ResetFlagOnEpochChange(t *testing.T) {
	f := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewSession(ctx, f.code, f.svc, f.st, zap.NewNop())

	clientOut := make(chan Snapshot, 16)
	s.Inbox() <- Join{ClientID: "c1", Outbox: clientOut}
	first := recvSnapshot(t, clientOut, time.Second)
	require.False(t, first.Reset) // bootstrap, not a reset

	reply := make(chan error, 1)
	s.Inbox() <- FromClient{PlayerID: f.host.ID, Cmd: Command{Type: CmdResetGame}, Reply: reply}
	require.NoError(t, recvError(t, reply, time.Second))

	require.Eventually(t, func() bool {
		select {
		case snap := <-clientOut:
			return snap.Reset && snap.Room.ResetVersion == 2
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestSession_LeaveClosesOutbox(t *testing.T) {
	f := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewSession(ctx, f.code, f.svc, f.st, zap.NewNop())

	clientOut := make(chan Snapshot, 4)
	s.Inbox() <- Join{ClientID: "c1", Outbox: clientOut}
	recvSnapshot(t, clientOut, time.Second)

	s.Inbox() <- Leave{ClientID: "c1"}

	// The writer goroutine on the other end ranges over the outbox; leaving
	// must close it or that goroutine never exits.
	select {
	case _, ok := <-clientOut:
		assert.False(t, ok, "outbox should be closed after leave")
	case <-time.After(time.Second):
		t.Fatalf("outbox not closed after leave")
	}

	view := make(chan View, 1)
	s.Inbox() <- GetState{Reply: view}
	assert.Equal(t, 0, recvView(t, view, time.Second).NumClients)
}

func TestSession_DropSlowClient(t *testing.T) {
	f := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewSession(ctx, f.code, f.svc, f.st, zap.NewNop())

	clientOut := make(chan Snapshot, 1)
	s.Inbox() <- Join{ClientID: "c1", Outbox: clientOut}
	// Never drain: the join snapshot fills the buffer, the next broadcast
	// finds it full and drops the client.

	reply := make(chan error, 1)
	s.Inbox() <- FromClient{PlayerID: f.host.ID, Cmd: Command{Type: CmdCallNumber}, Reply: reply}
	require.NoError(t, recvError(t, reply, time.Second))

	require.Eventually(t, func() bool {
		view := make(chan View, 1)
		s.Inbox() <- GetState{Reply: view}
		return recvView(t, view, time.Second).NumClients == 0
	}, time.Second, 5*time.Millisecond)
}

func TestHub_EnsureGetRemove(t *testing.T) {
	f := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, f.svc, f.st, zap.NewNop())

	reply := make(chan *Session, 1)
	h.Inbox() <- GetSession{Code: f.code, Reply: reply}
	assert.Nil(t, <-reply)

	h.Inbox() <- EnsureSession{Code: f.code, Reply: reply}
	s := <-reply
	require.NotNil(t, s)

	h.Inbox() <- EnsureSession{Code: f.code, Reply: reply}
	assert.Same(t, s, <-reply)

	h.Inbox() <- GetSession{Code: f.code, Reply: reply}
	assert.Same(t, s, <-reply)

	h.Inbox() <- RemoveSession{Code: f.code}
	h.Inbox() <- GetSession{Code: f.code, Reply: reply}
	assert.Nil(t, <-reply)
}
