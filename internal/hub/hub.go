package hub

import (
	"context"

	"github.com/chandana0511/tambola-backend/internal/room"
	"github.com/chandana0511/tambola-backend/internal/store"
	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

type GetSession struct {
	Code  string
	Reply chan *Session
}

type EnsureSession struct {
	Code  string
	Reply chan *Session
}

type RemoveSession struct {
	Code string
}

type ShutdownHub struct{}

func (GetSession) isHubMsg()    {}
func (EnsureSession) isHubMsg() {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

// Hub owns the code→session map. All access goes through the inbox, so
// the map needs no lock. Sessions fan room snapshots out to websocket
// clients; the room state itself lives in the store.
type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*Session
	svc      *room.Service
	store    store.Store
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, svc *room.Service, st store.Store, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*Session),
		svc:      svc,
		store:    st,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetSession:
				msg.Reply <- h.sessions[msg.Code] // May be nil

			case EnsureSession:
				if s := h.sessions[msg.Code]; s != nil {
					msg.Reply <- s
					break
				}
				s := NewSession(h.ctx, msg.Code, h.svc, h.store, h.log)
				h.sessions[msg.Code] = s
				msg.Reply <- s

			case RemoveSession:
				if s := h.sessions[msg.Code]; s != nil {
					s.Inbox() <- Shutdown{}
					delete(h.sessions, msg.Code)
				}

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for code, s := range h.sessions {
		s.Inbox() <- Shutdown{}
		delete(h.sessions, code)
	}
}
