package identity

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Identity is a stable player id plus the human-readable name shown to
// other players (e.g. as a claim winner).
type Identity struct {
	ID   string `json:"player_id"`
	Name string `json:"display_name"`
}

// Provider hands out guest identities and resolves ids back to them.
// Room actions require a registered id; anything else is rejected with
// ErrNotAuthenticated before touching room state.
type Provider struct {
	mu   sync.RWMutex
	byID map[string]Identity
}

func NewProvider() *Provider {
	return &Provider{byID: make(map[string]Identity)}
}

// Register creates a guest identity. Blank names fall back to the id so a
// claim winner always has something displayable.
func (p *Provider) Register(displayName string) Identity {
	id := uuid.NewString()
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = id
	}
	ident := Identity{ID: id, Name: name}

	p.mu.Lock()
	p.byID[id] = ident
	p.mu.Unlock()
	return ident
}

func (p *Provider) Lookup(id string) (Identity, error) {
	p.mu.RLock()
	ident, ok := p.byID[id]
	p.mu.RUnlock()
	if !ok {
		return Identity{}, ErrNotAuthenticated
	}
	return ident, nil
}

// DisplayName resolves an id to its name, falling back to the raw id for
// unknown callers. Mirrors the original "displayName ?: playerId" rule.
func (p *Provider) DisplayName(id string) string {
	if ident, err := p.Lookup(id); err == nil {
		return ident.Name
	}
	return id
}
