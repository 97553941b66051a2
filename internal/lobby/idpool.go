// internal/lobby/idpool.go
package lobby

import (
	"errors"
	"sync"
)

// poolSize matches the 2-byte address space used on the wire.
const poolSize = 65536

// ErrPoolExhausted is returned by Allocate when every assignable id is held.
var ErrPoolExhausted = errors.New("client id pool exhausted")

// IDPool hands out per-lobby client ids, lowest free first. Id 0 is reserved
// at construction for broadcast addressing and is never allocated.
type IDPool struct {
	mu   sync.Mutex
	used [poolSize]bool
}

// NewIDPool returns a pool with id 0 pre-reserved.
func NewIDPool() *IDPool {
	p := &IDPool{}
	p.used[0] = true
	return p
}

// Allocate marks and returns the lowest unused id. The linear scan is
// intentional: ids stay small (they are 2 bytes on the wire) and the capacity
// ceiling bounds the worst case.
func (p *IDPool) Allocate() (uint16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 1; i < poolSize; i++ {
		if !p.used[i] {
			p.used[i] = true
			return uint16(i), nil
		}
	}
	return 0, ErrPoolExhausted
}

// Release marks id unused. Releasing an already-free id is a no-op. Id 0 stays
// reserved.
func (p *IDPool) Release(id uint16) {
	if id == 0 {
		return
	}
	p.mu.Lock()
	p.used[id] = false
	p.mu.Unlock()
}
