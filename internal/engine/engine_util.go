package engine

const (
	MinNumber = 1
	MaxNumber = 90
)

// NewState returns the initial epoch state: full pool, sentinel-only
// called sequence, idle phase.
func NewState() State {
	pool := make([]int, 0, MaxNumber)
	for n := MinNumber; n <= MaxNumber; n++ {
		pool = append(pool, n)
	}
	return State{
		Phase:  PhaseIdle,
		Pool:   pool,
		Called: []int{0},
	}
}

// Resume rebuilds host state from a published called sequence, for a host
// process that reconnects mid-game. The sentinel and any duplicates are
// ignored when removing numbers from the pool.
func Resume(called []int) State {
	s := NewState()
	if len(called) == 0 {
		return s
	}

	drawn := make(map[int]bool, len(called))
	for _, n := range called {
		if n >= MinNumber && n <= MaxNumber {
			drawn[n] = true
		}
	}

	pool := s.Pool[:0]
	for n := MinNumber; n <= MaxNumber; n++ {
		if !drawn[n] {
			pool = append(pool, n)
		}
	}
	s.Pool = pool
	s.Called = append([]int{}, called...)

	switch {
	case len(pool) == 0:
		s.Phase = PhaseExhausted
	case len(drawn) > 0:
		s.Phase = PhaseCalling
	}
	return s
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
