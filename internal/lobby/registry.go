// internal/lobby/registry.go
package lobby

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// Registry is the process-wide party-code index. A code is reserved at lobby
// construction and the lobby only becomes visible to readers once activated;
// removal frees the code for reassignment.
type Registry struct {
	mu       sync.RWMutex
	live     map[string]*Lobby
	reserved map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		live:     make(map[string]*Lobby),
		reserved: make(map[string]struct{}),
	}
}

// ReserveCode generates a party code unique against both live and reserved
// codes and holds the reservation until Activate or remove.
func (r *Registry) ReserveCode() string {
	buf := make([]byte, 8)
	for {
		if _, err := rand.Read(buf); err != nil {
			panic(err)
		}
		code := hex.EncodeToString(buf)

		r.mu.Lock()
		_, taken := r.live[code]
		if !taken {
			_, taken = r.reserved[code]
		}
		if !taken {
			r.reserved[code] = struct{}{}
			r.mu.Unlock()
			return code
		}
		r.mu.Unlock()
	}
}

// activate moves the lobby's reserved code into the live set.
func (r *Registry) activate(l *Lobby) {
	r.mu.Lock()
	delete(r.reserved, l.PartyCode)
	r.live[l.PartyCode] = l
	r.mu.Unlock()
}

// remove deregisters a lobby (or releases an unactivated reservation).
func (r *Registry) remove(code string) {
	r.mu.Lock()
	delete(r.live, code)
	delete(r.reserved, code)
	r.mu.Unlock()
}

// Get returns the activated lobby registered under code.
func (r *Registry) Get(code string) (*Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.live[code]
	return l, ok
}

// List returns public summaries of every activated, non-private lobby.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	lobbies := make([]*Lobby, 0, len(r.live))
	for _, l := range r.live {
		lobbies = append(lobbies, l)
	}
	r.mu.RUnlock()

	out := make([]Summary, 0, len(lobbies))
	for _, l := range lobbies {
		if l.Private() {
			continue
		}
		out = append(out, l.Summary())
	}
	return out
}

// Resources returns the resources value of the lobby registered under code.
func (r *Registry) Resources(code string) (any, bool) {
	l, ok := r.Get(code)
	if !ok {
		return nil, false
	}
	return l.Resources(), true
}
