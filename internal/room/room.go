package room

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/chandana0511/tambola-backend/internal/archive"
	"github.com/chandana0511/tambola-backend/internal/claims"
	"github.com/chandana0511/tambola-backend/internal/identity"
	"github.com/chandana0511/tambola-backend/internal/store"
	"github.com/chandana0511/tambola-backend/internal/ticket"
	"go.uber.org/zap"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrNotHost = errors.New("caller is not the room host")
var ErrInvalidClaim = errors.New("claim conditions not met")
var ErrClaimRejected = errors.New("claim already taken")
var ErrNumberNotCalled = errors.New("number has not been called")
var ErrTicketNotIssued = errors.New("no ticket issued yet")
var ErrGameFinished = errors.New("game is finished")
var ErrNoFreeRoomCode = errors.New("could not allocate a room code")

const (
	StatusWaiting  = "waiting"
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"
)

// NormalizeStatus folds historical status spellings onto the three values
// this server writes.
func NormalizeStatus(s string) string {
	switch s {
	case "running":
		return StatusOngoing
	case "reset":
		return StatusWaiting
	case StatusWaiting, StatusOngoing, StatusFinished:
		return s
	default:
		return StatusWaiting
	}
}

const (
	codeAttempts   = 100
	ticketAttempts = 100
)

// Service runs all room operations against the shared store. Consistency
// comes from the store's per-path atomicity, not from coordination here:
// the only lock guards the RNG.
type Service struct {
	store store.Store
	ids   *identity.Provider
	arch  *archive.Archive // nil disables archiving
	log   *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(st store.Store, ids *identity.Provider, arch *archive.Archive, log *zap.Logger, rng *rand.Rand) *Service {
	return &Service{store: st, ids: ids, arch: arch, log: log, rng: rng}
}

func (s *Service) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// CreateRoom allocates a 6-digit code and writes the initial room
// document. The code is claimed with a CAS so two hosts can never share
// one; collisions just draw again.
func (s *Service) CreateRoom(hostID string) (string, error) {
	if _, err := s.ids.Lookup(hostID); err != nil {
		return "", err
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := fmt.Sprintf("%06d", 100000+s.intn(900000))
		_, err := s.store.Transaction(roomPath(code), func(current any) (any, error) {
			if current != nil {
				return nil, store.ErrAborted
			}
			return map[string]any{
				"hostId":        hostID,
				"status":        StatusWaiting,
				"resetVersion":  int64(1),
				"timestamp":     time.Now().UnixMilli(),
				"calledNumbers": []int{0},
			}, nil
		})
		if errors.Is(err, store.ErrAborted) {
			continue
		}
		if err != nil {
			return "", err
		}
		s.log.Info("room created", zap.String("room", code), zap.String("host", hostID))
		return code, nil
	}
	return "", ErrNoFreeRoomCode
}

// JoinRoom registers a player and issues their ticket. Rejoining returns
// the already-issued ticket unchanged.
func (s *Service) JoinRoom(code, playerID string) (ticket.Ticket, error) {
	if _, err := s.ids.Lookup(playerID); err != nil {
		return ticket.Ticket{}, err
	}
	if _, ok := s.store.Get(roomPath(code)); !ok {
		return ticket.Ticket{}, ErrRoomNotFound
	}

	if err := s.store.Set(playerPath(code, playerID), true); err != nil {
		return ticket.Ticket{}, err
	}

	if existing, ok := s.store.Get(ticketPath(code, playerID)); ok {
		if t, ok := existing.(ticket.Ticket); ok {
			return t, nil
		}
	}

	t, err := s.issueTicket(code, playerID)
	if err != nil {
		return ticket.Ticket{}, err
	}
	s.log.Info("player joined", zap.String("room", code), zap.String("player", playerID))
	return t, nil
}

// issueTicket claims a ticket slot inside a transaction on the room's
// tickets subtree, so two players joining at once can never be issued the
// same ticket. A player who already holds a ticket gets it back unchanged.
func (s *Service) issueTicket(code, playerID string) (ticket.Ticket, error) {
	var issued ticket.Ticket
	_, err := s.store.Transaction(ticketsPath(code), func(current any) (any, error) {
		tickets, _ := current.(map[string]any)
		if existing, ok := tickets[playerID].(ticket.Ticket); ok {
			issued = existing
			return current, nil
		}
		taken := make(map[ticket.Ticket]bool, len(tickets))
		for _, v := range tickets {
			if t, ok := v.(ticket.Ticket); ok {
				taken[t] = true
			}
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		for attempt := 0; attempt < ticketAttempts; attempt++ {
			t, err := ticket.Generate(s.rng)
			if err != nil {
				return nil, err
			}
			if taken[t] {
				continue
			}
			issued = t
			if tickets == nil {
				tickets = make(map[string]any, 1)
			}
			tickets[playerID] = t
			return tickets, nil
		}
		return nil, ticket.ErrGenerationFailed
	})
	if err != nil {
		return ticket.Ticket{}, err
	}
	return issued, nil
}

// MarkNumber records a number on the player's local-mark set. Marks are
// advisory UI state, but the server still refuses numbers the host has not
// called, so marks stay a subset of called numbers.
func (s *Service) MarkNumber(code, playerID string, number int) error {
	if _, err := s.ids.Lookup(playerID); err != nil {
		return err
	}
	snap, err := s.Snapshot(code)
	if err != nil {
		return err
	}
	if !snap.CalledSet()[number] {
		return ErrNumberNotCalled
	}

	_, err = s.store.Transaction(markPath(code, playerID), func(current any) (any, error) {
		marks, _ := current.([]int)
		if slices.Contains(marks, number) {
			return current, nil
		}
		return append(slices.Clone(marks), number), nil
	})
	return err
}

// SubmitClaim validates the claim locally against the called numbers, then
// races a CAS on the claim slot. Exactly one identity wins per claim type
// per epoch; losers get ErrClaimRejected and must not retry.
func (s *Service) SubmitClaim(code, playerID string, c claims.Type) error {
	ident, err := s.ids.Lookup(playerID)
	if err != nil {
		return err
	}
	snap, err := s.Snapshot(code)
	if err != nil {
		return err
	}

	t, ok := snap.Tickets[playerID]
	if !ok {
		return ErrTicketNotIssued
	}
	if !claims.Valid(c, t, snap.CalledSet()) {
		// Resolved locally, no arbitration round-trip for bogus claims.
		return ErrInvalidClaim
	}

	_, err = s.store.Transaction(claimPath(code, c), func(current any) (any, error) {
		if current != nil {
			return nil, store.ErrAborted
		}
		return ident.Name, nil
	})
	if errors.Is(err, store.ErrAborted) {
		return ErrClaimRejected
	}
	if err != nil {
		return err
	}

	s.log.Info("claim accepted",
		zap.String("room", code),
		zap.String("claim", string(c)),
		zap.String("winner", ident.Name))

	// Full House ends the game: further calls are refused and clients can
	// roll the winner sequence.
	if c == claims.FullHouse {
		if err := s.store.Set(statusPath(code), StatusFinished); err != nil {
			return err
		}
		go s.archiveWinners(code)
	}
	return nil
}

// Snapshot assembles the full current state of a room from the store.
func (s *Service) Snapshot(code string) (Snapshot, error) {
	v, ok := s.store.Get(roomPath(code))
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}
	return decodeRoom(code, v), nil
}

func (s *Service) archiveWinners(code string) {
	if s.arch == nil {
		return
	}
	snap, err := s.Snapshot(code)
	if err != nil {
		s.log.Warn("archive skipped", zap.String("room", code), zap.Error(err))
		return
	}
	winners := make(map[string]string, len(snap.Claims))
	for c, name := range snap.Claims {
		winners[string(c)] = name
	}
	s.arch.RecordWinners(code, snap.ResetVersion, winners)
}
