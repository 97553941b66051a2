// internal/identity/store.go
package identity

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store persists identity sessions as a line-oriented text file: one session
// per line, space-separated "token expiryEpochMillis originAddr".
type Store struct {
	path string
}

// NewStore returns a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads every persisted session into a map. A missing file is an empty
// store; a corrupt line is skipped, never fatal. The second return value
// reports how many lines were skipped.
func (s *Store) Load() (map[string]*Session, int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Session{}, 0, nil
		}
		return nil, 0, fmt.Errorf("read identity store: %w", err)
	}

	sessions := make(map[string]*Session)
	skipped := 0
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			skipped++
			continue
		}
		millis, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			skipped++
			continue
		}
		sessions[fields[0]] = &Session{
			Token:      fields[0],
			ExpiresAt:  time.UnixMilli(millis),
			OriginAddr: fields[2],
		}
	}
	return sessions, skipped, nil
}

// Save writes the full session set, replacing any previous contents.
func (s *Store) Save(sessions []*Session) error {
	var b strings.Builder
	for _, sess := range sessions {
		b.WriteString(sess.Token)
		b.WriteByte(' ')
		b.WriteString(strconv.FormatInt(sess.ExpiresAt.UnixMilli(), 10))
		b.WriteByte(' ')
		b.WriteString(sess.OriginAddr)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(s.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write identity store: %w", err)
	}
	return nil
}
