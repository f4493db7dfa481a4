package ws

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/chandana0511/tambola-backend/internal/claims"
	"github.com/chandana0511/tambola-backend/internal/hub"
	"github.com/chandana0511/tambola-backend/internal/identity"
	"github.com/chandana0511/tambola-backend/internal/room"
	"github.com/chandana0511/tambola-backend/internal/types"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

func Handler(h *hub.Hub, svc *room.Service, ids *identity.Provider, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		playerID := r.URL.Query().Get("player")
		if code == "" || playerID == "" {
			http.Error(w, "missing code or player", http.StatusBadRequest)
			return
		}
		if _, err := ids.Lookup(playerID); err != nil {
			http.Error(w, "unknown player", http.StatusUnauthorized)
			return
		}
		if _, err := svc.Snapshot(code); err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		reply := make(chan *hub.Session, 1)
		h.Inbox() <- hub.EnsureSession{Code: code, Reply: reply}
		session := <-reply
		if session == nil {
			http.Error(w, "room session unavailable", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan hub.Snapshot, 8)
		clientID := randID(6)

		session.Inbox() <- hub.Join{ClientID: clientID, Outbox: out}
		defer func() { session.Inbox() <- hub.Leave{ClientID: clientID} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				payload, _ := json.Marshal(types.ServerSnapshot(playerID, snap))
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop. No idle deadline: a game can sit quiet between
		// calls for a long time, the connection context bounds us.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}

			cmd, ok := toCommand(cm)
			if !ok {
				writeError(r.Context(), conn, "unknown type")
				continue
			}

			result := make(chan error, 1)
			session.Inbox() <- hub.FromClient{PlayerID: playerID, Cmd: cmd, Reply: result}
			if err := <-result; err != nil {
				log.Debug("command rejected",
					zap.String("room", code),
					zap.String("player", playerID),
					zap.String("cmd", string(cmd.Type)),
					zap.Error(err))
				writeError(r.Context(), conn, errorCode(err))
			}
		}
	}
}

func toCommand(m types.ClientMessage) (hub.Command, bool) {
	switch m.Type {
	case "StartGame":
		return hub.Command{Type: hub.CmdStartGame}, true
	case "CallNumber":
		return hub.Command{Type: hub.CmdCallNumber}, true
	case "MarkNumber":
		return hub.Command{Type: hub.CmdMarkNumber, Number: m.Number}, true
	case "SubmitClaim":
		c, ok := claims.Parse(m.Claim)
		if !ok {
			return hub.Command{}, false
		}
		return hub.Command{Type: hub.CmdSubmitClaim, Claim: c}, true
	case "EndGame":
		return hub.Command{Type: hub.CmdEndGame}, true
	case "ResetGame":
		return hub.Command{Type: hub.CmdResetGame}, true
	default:
		return hub.Command{}, false
	}
}

// errorCode maps service errors onto the short strings clients key their
// feedback on ("too late", "bogus claim", and so on).
func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrClaimRejected):
		return "already_claimed"
	case errors.Is(err, room.ErrInvalidClaim):
		return "invalid_claim"
	case errors.Is(err, room.ErrNumberNotCalled):
		return "number_not_called"
	case errors.Is(err, room.ErrTicketNotIssued):
		return "no_ticket"
	case errors.Is(err, room.ErrGameFinished):
		return "game_finished"
	case errors.Is(err, room.ErrNotHost):
		return "not_host"
	case errors.Is(err, room.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, identity.ErrNotAuthenticated):
		return "not_authenticated"
	default:
		return "internal_error"
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, code string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "Error", Error: code})
	_ = conn.Write(ctx, websocket.MessageText, payload)
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
