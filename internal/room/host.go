package room

import (
	"errors"
	"time"

	"github.com/chandana0511/tambola-backend/internal/claims"
	"github.com/chandana0511/tambola-backend/internal/engine"
	"github.com/chandana0511/tambola-backend/internal/ticket"
	"go.uber.org/zap"
)

const (
	reissueRetries = 3
	reissueBackoff = 250 * time.Millisecond
)

// HostSession is the single writer for a room's called numbers, status and
// reset epoch. It carries the calling-engine state locally and publishes
// the whole called sequence after every draw, so subscribers can rebuild
// from any snapshot they happen to receive.
type HostSession struct {
	svc    *Service
	code   string
	hostID string
	state  engine.State
}

// HostID returns the identity this session was opened with.
func (h *HostSession) HostID() string { return h.hostID }

// Host opens a host session, resuming engine state from whatever the room
// already holds (a reconnecting host picks up mid-game).
func (s *Service) Host(code, hostID string) (*HostSession, error) {
	if _, err := s.ids.Lookup(hostID); err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(code)
	if err != nil {
		return nil, err
	}
	if snap.HostID != hostID {
		return nil, ErrNotHost
	}

	state := engine.Resume(snap.Called)
	if snap.Status == StatusFinished {
		state.Phase = engine.PhaseDone
	}
	return &HostSession{svc: s, code: code, hostID: hostID, state: state}, nil
}

func (h *HostSession) apply(cmd engine.Command) ([]engine.Event, error) {
	h.svc.mu.Lock()
	events, next, err := engine.Apply(h.state, cmd, h.svc.rng)
	h.svc.mu.Unlock()
	if err != nil {
		return nil, err
	}
	h.state = next
	return events, nil
}

// Start flips the room to ongoing. CallNext does this implicitly; the
// explicit command exists for hosts that open the board before drawing.
func (h *HostSession) Start() error {
	if _, err := h.apply(engine.Command{Type: engine.CmdStartGame}); err != nil {
		return err
	}
	return h.svc.store.Set(statusPath(h.code), StatusOngoing)
}

// CallNext draws one number and publishes the full updated called
// sequence. Once the pool is exhausted or a Full House is claimed, calls
// are refused for the rest of the epoch.
func (h *HostSession) CallNext() (int, error) {
	snap, err := h.svc.Snapshot(h.code)
	if err != nil {
		return 0, err
	}
	if snap.Status == StatusFinished || snap.Claims[claims.FullHouse] != "" {
		return 0, ErrGameFinished
	}

	if h.state.Phase == engine.PhaseIdle {
		if err := h.Start(); err != nil {
			return 0, err
		}
	}

	events, err := h.apply(engine.Command{Type: engine.CmdCallNext})
	if err != nil {
		if errors.Is(err, engine.ErrPoolExhausted) || errors.Is(err, engine.ErrGameCompleted) {
			return 0, ErrGameFinished
		}
		return 0, err
	}

	number := 0
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtNumberCalled:
			number = ev.Number
			if err := h.svc.store.Set(calledPath(h.code), h.state.Called); err != nil {
				return 0, err
			}
		case engine.EvtPoolExhausted:
			if err := h.svc.store.Set(statusPath(h.code), StatusFinished); err != nil {
				return 0, err
			}
			go h.svc.archiveWinners(h.code)
		}
	}

	h.svc.log.Debug("number called",
		zap.String("room", h.code),
		zap.Int("number", number),
		zap.Int("remaining", len(h.state.Pool)))
	return number, nil
}

// EndGame finishes the room regardless of pool state.
func (h *HostSession) EndGame() error {
	if _, err := h.apply(engine.Command{Type: engine.CmdEndGame}); err != nil {
		return err
	}
	if err := h.svc.store.Set(statusPath(h.code), StatusFinished); err != nil {
		return err
	}
	go h.svc.archiveWinners(h.code)
	return nil
}

// Reset starts a new epoch: one atomic multi-field update clears the
// called numbers, claims, marks and tickets, returns the status to
// waiting and bumps resetVersion. Clients detect the reset purely from
// the version increase. Fresh tickets are issued in the background;
// players show a placeholder until theirs arrives.
func (h *HostSession) Reset() error {
	snap, err := h.svc.Snapshot(h.code)
	if err != nil {
		return err
	}

	err = h.svc.store.Update(roomPath(h.code), map[string]any{
		"calledNumbers": []int{0},
		"claims":        nil,
		"markedNumbers": nil,
		"tickets":       nil,
		"status":        StatusWaiting,
		"resetVersion":  snap.ResetVersion + 1,
	})
	if err != nil {
		return err
	}
	h.state = engine.NewState()

	h.svc.log.Info("room reset",
		zap.String("room", h.code),
		zap.Int64("resetVersion", snap.ResetVersion+1),
		zap.Int("players", len(snap.Players)))

	go h.svc.reissueTickets(h.code, snap.Players)
	return nil
}

// reissueTickets regenerates tickets for every previously-known player as
// one pairwise-distinct batch, written in a single transaction. A player
// left without a ticket is a stuck state, so failures are retried and the
// final failure is logged loudly rather than dropped.
func (s *Service) reissueTickets(code string, players []string) {
	if len(players) == 0 {
		return
	}
	var err error
	for attempt := 0; attempt < reissueRetries; attempt++ {
		if err = s.issueBatch(code, players); err == nil {
			return
		}
		s.log.Warn("ticket reissue retry",
			zap.String("room", code),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		time.Sleep(reissueBackoff)
	}
	s.log.Error("ticket reissue failed, players have no tickets",
		zap.String("room", code),
		zap.Error(err))
}

// issueBatch fills a ticket slot for every listed player that does not
// already hold one. Players who re-joined mid-reissue keep the ticket they
// were just given; a batch ticket colliding with one of those aborts the
// transaction so the caller retries with a fresh batch.
func (s *Service) issueBatch(code string, players []string) error {
	s.mu.Lock()
	batch, err := ticket.GenerateBatch(s.rng, len(players))
	s.mu.Unlock()
	if err != nil {
		return err
	}

	_, err = s.store.Transaction(ticketsPath(code), func(current any) (any, error) {
		tickets, _ := current.(map[string]any)
		next := make(map[string]any, len(players))
		taken := make(map[ticket.Ticket]bool, len(tickets))
		for id, v := range tickets {
			next[id] = v
			if t, ok := v.(ticket.Ticket); ok {
				taken[t] = true
			}
		}
		i := 0
		for _, playerID := range players {
			if _, ok := next[playerID]; ok {
				continue
			}
			t := batch[i]
			i++
			if taken[t] {
				return nil, ticket.ErrGenerationFailed
			}
			next[playerID] = t
		}
		return next, nil
	})
	return err
}
