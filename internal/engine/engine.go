package engine

import (
	"errors"
	"math/rand"
	"slices"
)

var ErrNotStarted = errors.New("game not started")
var ErrAlreadyStarted = errors.New("game already started")
var ErrPoolExhausted = errors.New("number pool exhausted")
var ErrGameCompleted = errors.New("game already completed")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseCalling   Phase = "calling"
	PhaseExhausted Phase = "exhausted"
	PhaseDone      Phase = "done"
)

// State is the host-side view of one calling epoch: the pool of uncalled
// numbers and the ordered called sequence. Called keeps the leading
// sentinel 0 so clients can tell "no numbers yet" from an absent field.
// Apply never mutates its input.
type State struct {
	Phase  Phase
	Pool   []int
	Called []int
}

type CommandType string

const (
	CmdStartGame CommandType = "StartGame"
	CmdCallNext  CommandType = "CallNext"
	CmdEndGame   CommandType = "EndGame"
	CmdResetGame CommandType = "ResetGame"
)

type Command struct {
	Type CommandType
}

type EventType string

const (
	EvtGameStarted   EventType = "GameStarted"
	EvtNumberCalled  EventType = "NumberCalled"
	EvtPoolExhausted EventType = "PoolExhausted"
	EvtGameCompleted EventType = "GameCompleted"
	EvtGameReset     EventType = "GameReset"
)

type Event struct {
	Type   EventType
	Number int
}

// Apply runs one command against the state and returns the events it
// produced plus the successor state. Calls are permanent: no command
// removes a number from Called within an epoch.
func Apply(s State, cmd Command, rng *rand.Rand) ([]Event, State, error) {
	switch cmd.Type {
	case CmdStartGame:
		if s.Phase != PhaseIdle {
			return nil, s, ErrAlreadyStarted
		}
		ns := s
		ns.Phase = PhaseCalling
		return []Event{{Type: EvtGameStarted}}, ns, nil

	case CmdCallNext:
		switch s.Phase {
		case PhaseIdle:
			return nil, s, ErrNotStarted
		case PhaseExhausted:
			return nil, s, ErrPoolExhausted
		case PhaseDone:
			return nil, s, ErrGameCompleted
		}
		if len(s.Pool) == 0 {
			ns := s
			ns.Phase = PhaseExhausted
			return []Event{{Type: EvtPoolExhausted}}, ns, nil
		}

		i := rng.Intn(len(s.Pool))
		n := s.Pool[i]

		ns := s
		ns.Pool = slices.Delete(slices.Clone(s.Pool), i, i+1)
		ns.Called = append(slices.Clone(s.Called), n)

		events := []Event{{Type: EvtNumberCalled, Number: n}}
		if len(ns.Pool) == 0 {
			ns.Phase = PhaseExhausted
			events = append(events, Event{Type: EvtPoolExhausted})
		}
		return events, ns, nil

	case CmdEndGame:
		if s.Phase == PhaseDone {
			return nil, s, ErrGameCompleted
		}
		ns := s
		ns.Phase = PhaseDone
		return []Event{{Type: EvtGameCompleted}}, ns, nil

	case CmdResetGame:
		return []Event{{Type: EvtGameReset}}, NewState(), nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}
