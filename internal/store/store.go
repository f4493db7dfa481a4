package store

import (
	"errors"
	"strings"
)

// ErrAborted is returned by Transaction when the update function declines
// to commit. Claim arbitration maps it to the "already claimed" outcome.
var ErrAborted = errors.New("transaction aborted")

// Event carries the full current value at a subscriber's path after a
// write anywhere on that path, above it, or below it. Values are whole
// snapshots, never diffs, so handling an Event is idempotent and missed
// intermediate events are harmless.
type Event struct {
	Path  string
	Value any
}

// TxnFunc sees the current value at a path and returns the value to
// commit, or an error (typically ErrAborted) to leave the path untouched.
type TxnFunc func(current any) (any, error)

// Store is a synchronized key-value tree with path-scoped subscriptions
// and per-path atomic transactions, the shape of a real-time database
// client. Paths are slash-separated, e.g. "rooms/483920/claims/Full House".
//
// Consistency contract: writes at a single path are linearizable; Update
// applies all fields atomically (no torn intermediate state observable);
// there are no cross-path transactions. Subscribers eventually observe the
// final value at their path, but intermediate values may be coalesced.
type Store interface {
	// Get returns the current value at path, or ok=false if nothing is
	// stored there. Interior maps are copies; leaf values (including
	// slices) are returned as stored and must not be mutated.
	Get(path string) (value any, ok bool)

	// Set replaces the subtree at path. A nil value deletes it.
	Set(path string, value any) error

	// Update atomically merges fields into the node at path. A nil field
	// value deletes that child. Subscribers see a single notification.
	Update(path string, fields map[string]any) error

	// Transaction runs fn against the current value at path and commits
	// its result atomically. First committed writer wins; losers get
	// ErrAborted out of their fn.
	Transaction(path string, fn TxnFunc) (any, error)

	// Subscribe registers for events at path. The current value is
	// delivered immediately. The cancel func stops delivery and closes
	// the channel.
	Subscribe(path string) (<-chan Event, func())
}

func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// related reports whether a write at one path is visible at the other:
// one must be an ancestor of (or equal to) the other.
func related(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
