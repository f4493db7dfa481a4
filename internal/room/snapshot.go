package room

import (
	"slices"

	"github.com/chandana0511/tambola-backend/internal/claims"
	"github.com/chandana0511/tambola-backend/internal/ticket"
)

// Snapshot is the immutable full state of a room as read from the store.
// Consumers always receive whole snapshots, never diffs; rebuilding local
// state from one is idempotent.
type Snapshot struct {
	Code         string
	HostID       string
	Status       string
	ResetVersion int64
	Timestamp    int64
	Called       []int // raw sequence including the leading sentinel
	Tickets      map[string]ticket.Ticket
	Marked       map[string][]int
	Claims       map[claims.Type]string
	Players      []string
}

// CalledSet returns membership for the called numbers, sentinel excluded.
func (s Snapshot) CalledSet() map[int]bool { return claims.SetOf(s.Called) }

// CalledNumbers returns the called sequence without the sentinel.
func (s Snapshot) CalledNumbers() []int {
	out := make([]int, 0, len(s.Called))
	for _, n := range s.Called {
		if n != 0 {
			out = append(out, n)
		}
	}
	return out
}

// LastCalled returns the most recent call, or 0 when none have been made.
func (s Snapshot) LastCalled() int {
	for i := len(s.Called) - 1; i >= 0; i-- {
		if s.Called[i] != 0 {
			return s.Called[i]
		}
	}
	return 0
}

// DecodeSnapshot turns a subscription event value for rooms/{code} into a
// Snapshot, for consumers that watch the store directly.
func DecodeSnapshot(code string, v any) Snapshot { return decodeRoom(code, v) }

// decodeRoom turns the store value at rooms/{code} into a Snapshot.
// Unknown or mistyped fields fall back to zero values rather than failing:
// a snapshot must always be derivable from whatever the store holds.
func decodeRoom(code string, v any) Snapshot {
	snap := Snapshot{
		Code:    code,
		Status:  StatusWaiting,
		Tickets: map[string]ticket.Ticket{},
		Marked:  map[string][]int{},
		Claims:  map[claims.Type]string{},
	}
	fields, ok := v.(map[string]any)
	if !ok {
		return snap
	}

	if s, ok := fields["hostId"].(string); ok {
		snap.HostID = s
	}
	if s, ok := fields["status"].(string); ok {
		snap.Status = NormalizeStatus(s)
	}
	if n, ok := fields["resetVersion"].(int64); ok {
		snap.ResetVersion = n
	}
	if n, ok := fields["timestamp"].(int64); ok {
		snap.Timestamp = n
	}
	if called, ok := fields["calledNumbers"].([]int); ok {
		snap.Called = slices.Clone(called)
	}

	if tickets, ok := fields["tickets"].(map[string]any); ok {
		for pid, tv := range tickets {
			if t, ok := tv.(ticket.Ticket); ok {
				snap.Tickets[pid] = t
			}
		}
	}
	if marked, ok := fields["markedNumbers"].(map[string]any); ok {
		for pid, mv := range marked {
			if marks, ok := mv.([]int); ok {
				snap.Marked[pid] = slices.Clone(marks)
			}
		}
	}
	if claimed, ok := fields["claims"].(map[string]any); ok {
		for key, wv := range claimed {
			c, ok := claims.Parse(key)
			if !ok {
				continue
			}
			if name, ok := wv.(string); ok {
				snap.Claims[c] = name
			}
		}
	}
	if players, ok := fields["players"].(map[string]any); ok {
		for pid := range players {
			snap.Players = append(snap.Players, pid)
		}
		slices.Sort(snap.Players)
	}
	return snap
}
