package types

import (
	"github.com/chandana0511/tambola-backend/internal/hub"
	"github.com/chandana0511/tambola-backend/internal/room"
)

type ClientMessage struct {
	Type   string `json:"type"`
	Number int    `json:"number,omitempty"`
	Claim  string `json:"claim,omitempty"`
}

type ServerMessage struct {
	Type    string     `json:"type"` // "StateSnapshot" | "Error"
	Version int        `json:"version,omitempty"`
	Reset   bool       `json:"reset,omitempty"`
	State   *RoomState `json:"state,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// RoomState is the per-client view of a room snapshot. Tickets are
// owner-and-host readable: a player sees only their own grid, the host
// sees all of them. Marks of other players stay visible for spectating.
type RoomState struct {
	Code          string             `json:"code"`
	Status        string             `json:"status"`
	ResetVersion  int64              `json:"reset_version"`
	CalledNumbers []int              `json:"called_numbers"`
	LastCalled    int                `json:"last_called"`
	Ticket        [][]int            `json:"ticket,omitempty"`
	Tickets       map[string][][]int `json:"tickets,omitempty"`
	Marked        map[string][]int   `json:"marked_numbers,omitempty"`
	Claims        map[string]string  `json:"claims"`
	Players       []string           `json:"players"`
}

// RoomStateFor filters a full snapshot down to what one player may see.
func RoomStateFor(playerID string, snap room.Snapshot) *RoomState {
	state := &RoomState{
		Code:          snap.Code,
		Status:        snap.Status,
		ResetVersion:  snap.ResetVersion,
		CalledNumbers: snap.CalledNumbers(),
		LastCalled:    snap.LastCalled(),
		Marked:        snap.Marked,
		Claims:        map[string]string{},
		Players:       snap.Players,
	}
	for c, winner := range snap.Claims {
		state.Claims[string(c)] = winner
	}

	if t, ok := snap.Tickets[playerID]; ok {
		state.Ticket = t.Grid()
	}
	if playerID == snap.HostID {
		state.Tickets = make(map[string][][]int, len(snap.Tickets))
		for pid, t := range snap.Tickets {
			state.Tickets[pid] = t.Grid()
		}
	}
	return state
}

// ServerSnapshot wraps a hub snapshot for one recipient.
func ServerSnapshot(playerID string, snap hub.Snapshot) ServerMessage {
	return ServerMessage{
		Type:    "StateSnapshot",
		Version: snap.Version,
		Reset:   snap.Reset,
		State:   RoomStateFor(playerID, snap.Room),
	}
}
