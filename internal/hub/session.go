package hub

import (
	"context"
	"errors"

	"github.com/chandana0511/tambola-backend/internal/claims"
	"github.com/chandana0511/tambola-backend/internal/room"
	"github.com/chandana0511/tambola-backend/internal/store"
	"go.uber.org/zap"
)

type Msg interface{ isSessionMsg() }

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

type Leave struct{ ClientID string }

// FromClient carries one command from a connected client. The session
// replies with the dispatch outcome on Reply (buffered, never blocks).
type FromClient struct {
	PlayerID string
	Cmd      Command
	Reply    chan error
}

type Shutdown struct{}

type GetState struct {
	Reply chan View
}

func (Join) isSessionMsg()       {}
func (Leave) isSessionMsg()      {}
func (FromClient) isSessionMsg() {}
func (Shutdown) isSessionMsg()   {}
func (GetState) isSessionMsg()   {}

type CommandType string

const (
	CmdStartGame   CommandType = "StartGame"
	CmdCallNumber  CommandType = "CallNumber"
	CmdMarkNumber  CommandType = "MarkNumber"
	CmdSubmitClaim CommandType = "SubmitClaim"
	CmdEndGame     CommandType = "EndGame"
	CmdResetGame   CommandType = "ResetGame"
)

var ErrUnknownCommand = errors.New("unknown command")

type Command struct {
	Type   CommandType
	Number int
	Claim  claims.Type
}

// Snapshot is what clients receive: a monotonically versioned full room
// state. Reset is set on the snapshot where a new epoch was first
// observed, so clients can drop stale local state.
type Snapshot struct {
	Version int
	Reset   bool
	Room    room.Snapshot
}

// View reflects internal session state without data races; test-only.
type View struct {
	Version    int
	NumClients int
	Room       room.Snapshot
}

// Session is the fan-out actor for one room: a single store subscription
// on the room subtree, rebroadcast as immutable snapshots to every
// connected client. Commands are executed against the room service; the
// resulting store writes come back around through the subscription.
type Session struct {
	code    string
	inbox   chan Msg
	svc     *room.Service
	log     *zap.Logger
	version int
	snap    room.Snapshot
	epoch   room.EpochWatcher
	clients map[string]chan Snapshot
	host    *room.HostSession
	events  <-chan store.Event
	unsub   func()
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewSession(parent context.Context, code string, svc *room.Service, st store.Store, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	events, unsub := st.Subscribe("rooms/" + code)

	s := &Session{
		code:    code,
		inbox:   make(chan Msg, 64), // Small buffer
		svc:     svc,
		log:     log.With(zap.String("room", code)),
		clients: make(map[string]chan Snapshot),
		events:  events,
		unsub:   unsub,
		ctx:     ctx,
		cancel:  cancel,
	}

	// Subscribe delivers the current value synchronously; prime the
	// snapshot before the loop starts so the first Join never observes an
	// empty room. This is also the epoch bootstrap observation.
	select {
	case ev, ok := <-events:
		if ok {
			s.snap = room.DecodeSnapshot(code, ev.Value)
			s.epoch.Observe(s.snap.ResetVersion)
		}
	default:
	}

	go s.loop()
	return s
}

// Expose the inbox so tests or the WS layer can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case ev, ok := <-s.events:
			if !ok {
				s.shutdown()
				return
			}
			s.snap = room.DecodeSnapshot(s.code, ev.Value)
			reset := s.epoch.Observe(s.snap.ResetVersion)
			s.version++
			if reset {
				s.log.Info("epoch change observed", zap.Int64("resetVersion", s.snap.ResetVersion))
			}
			s.broadcast(Snapshot{Version: s.version, Reset: reset, Room: s.snap})

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: s.version, Room: s.snap}

			case Leave:
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch) // Tell client no more snapshots
					delete(s.clients, msg.ClientID)
				}

			case FromClient:
				err := s.dispatch(msg.PlayerID, msg.Cmd)
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case GetState:
				msg.Reply <- View{
					Version:    s.version,
					NumClients: len(s.clients),
					Room:       s.snap,
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

// dispatch executes a client command. Host commands lazily open a host
// session; the service rejects non-host callers.
func (s *Session) dispatch(playerID string, cmd Command) error {
	switch cmd.Type {
	case CmdMarkNumber:
		return s.svc.MarkNumber(s.code, playerID, cmd.Number)

	case CmdSubmitClaim:
		return s.svc.SubmitClaim(s.code, playerID, cmd.Claim)

	case CmdStartGame, CmdCallNumber, CmdEndGame, CmdResetGame:
		host, err := s.hostSession(playerID)
		if err != nil {
			return err
		}
		switch cmd.Type {
		case CmdStartGame:
			return host.Start()
		case CmdCallNumber:
			_, err := host.CallNext()
			return err
		case CmdEndGame:
			return host.EndGame()
		default:
			return host.Reset()
		}

	default:
		return ErrUnknownCommand
	}
}

func (s *Session) hostSession(playerID string) (*room.HostSession, error) {
	if s.host != nil && s.host.HostID() == playerID {
		return s.host, nil
	}
	host, err := s.svc.Host(s.code, playerID)
	if err != nil {
		return nil, err
	}
	s.host = host
	return host, nil
}

func (s *Session) shutdown() {
	s.unsub()
	for id, ch := range s.clients {
		close(ch) // Tell client no more snapshots
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(s.clients, id)
		}
	}
}
