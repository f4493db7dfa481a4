package store

import (
	"strings"
	"sync"
)

// Memory is the in-process Store used as the synchronization hub for all
// rooms. A single mutex guards the tree and the subscriber registry, which
// is what makes Update and Transaction atomic from any observer's point of
// view.
//
// Interior nodes are map[string]any. Written map[string]any values are
// normalized into interior nodes (setting a map sets its children, like a
// real-time database does); every other value is a leaf. Leaves are treated
// as immutable by all callers.
type Memory struct {
	mu   sync.Mutex
	root map[string]any
	subs map[int]*subscriber
	next int
}

type subscriber struct {
	path []string
	ch   chan Event
}

func NewMemory() *Memory {
	return &Memory{
		root: make(map[string]any),
		subs: make(map[int]*subscriber),
	}
}

func (m *Memory) Get(path string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valueAt(splitPath(path))
}

func (m *Memory) Set(path string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	segs := splitPath(path)
	m.setLocked(segs, value)
	m.notifyLocked(segs)
	return nil
}

func (m *Memory) Update(path string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	segs := splitPath(path)
	for key, value := range fields {
		m.setLocked(append(append([]string{}, segs...), key), value)
	}
	m.notifyLocked(segs)
	return nil
}

func (m *Memory) Transaction(path string, fn TxnFunc) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	segs := splitPath(path)
	current, _ := m.valueAt(segs)
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	m.setLocked(segs, next)
	m.notifyLocked(segs)
	return next, nil
}

func (m *Memory) Subscribe(path string) (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.next
	m.next++
	sub := &subscriber{
		path: splitPath(path),
		ch:   make(chan Event, 1),
	}
	m.subs[id] = sub

	value, _ := m.valueAt(sub.path)
	sub.push(Event{Path: path, Value: value})

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if s, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// push delivers latest-wins: if the subscriber has not drained the previous
// event, it is replaced. Intermediate snapshots may be skipped; the final
// one never is.
func (s *subscriber) push(ev Event) {
	select {
	case s.ch <- ev:
	default:
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- ev:
		default:
		}
	}
}

func (m *Memory) notifyLocked(written []string) {
	for _, sub := range m.subs {
		if !related(written, sub.path) {
			continue
		}
		value, _ := m.valueAt(sub.path)
		sub.push(Event{Path: strings.Join(sub.path, "/"), Value: value})
	}
}

// valueAt walks to a node and returns a copy. Interior maps are cloned
// recursively; leaves are returned as stored.
func (m *Memory) valueAt(segs []string) (any, bool) {
	node := any(m.root)
	for _, seg := range segs {
		branch, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = branch[seg]
		if !ok {
			return nil, false
		}
	}
	return cloneValue(node), true
}

func (m *Memory) setLocked(segs []string, value any) {
	if len(segs) == 0 {
		if value == nil {
			m.root = make(map[string]any)
			return
		}
		if fields, ok := value.(map[string]any); ok {
			m.root = cloneTree(fields)
		}
		return
	}

	parent := m.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := parent[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			parent[seg] = child
		}
		parent = child
	}

	last := segs[len(segs)-1]
	switch v := value.(type) {
	case nil:
		delete(parent, last)
	case map[string]any:
		parent[last] = cloneTree(v)
	default:
		parent[last] = value
	}
}

func cloneValue(v any) any {
	if branch, ok := v.(map[string]any); ok {
		return cloneTree(branch)
	}
	return v
}

func cloneTree(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}
