// internal/analytics/analytics.go

// Package analytics collects coarse visit records for lobby owners and
// clients. Records are kept in memory for the /analytics/get endpoint and,
// when a Redis address is configured, pushed onto a queue for an external
// consumer. Everything here is fire-and-forget: a failed decode or publish
// never affects the connection that produced it.
package analytics

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Entry is one visit record, decoded from the base64 blob clients attach to
// their connection URL.
type Entry struct {
	ClosestTimezone int    `json:"closestTimezone"`
	Browser         string `json:"browser"`
	OS              string `json:"os"`
	Device          string `json:"device"`
	VisitStart      int64  `json:"visitStart"`
	VisitEnd        int64  `json:"visitEnd"`

	// Kind and Detail are filled in server-side once the connection's role
	// and lobby are known.
	Kind   string         `json:"kind,omitempty"`
	Detail map[string]any `json:"detail,omitempty"`
}

// FromBase64 decodes a visit entry from its URL-carried form: base64 of a
// JSON object.
func FromBase64(s string) (*Entry, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode analytics entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("parse analytics entry: %w", err)
	}
	return &e, nil
}

// Define tags the entry with its connection kind ("lobby" or "client") and
// role-specific detail fields.
func (e *Entry) Define(kind string, detail map[string]any) {
	e.Kind = kind
	e.Detail = detail
}

// Finish stamps the visit end time.
func (e *Entry) Finish() {
	e.VisitEnd = time.Now().UnixMilli()
}

// FinishAfter stamps the visit end from a client-reported total duration in
// milliseconds. Unparseable durations fall back to Finish.
func (e *Entry) FinishAfter(totalTime string) {
	millis, err := strconv.ParseInt(totalTime, 10, 64)
	if err != nil {
		e.Finish()
		return
	}
	e.VisitEnd = e.VisitStart + millis
}

// Service accumulates finished entries and optionally mirrors them to a
// queue.
type Service struct {
	mu      sync.Mutex
	records []*Entry

	queue  *Queue
	logger *logrus.Logger
}

// NewService builds the analytics service. queue may be nil, in which case
// records stay in memory only.
func NewService(queue *Queue, logger *logrus.Logger) *Service {
	return &Service{queue: queue, logger: logger}
}

// Record stores a finished entry and publishes it if a queue is configured.
func (s *Service) Record(e *Entry) {
	if e == nil {
		return
	}
	s.mu.Lock()
	s.records = append(s.records, e)
	s.mu.Unlock()

	if s.queue == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.queue.Publish(ctx, e); err != nil {
			s.logger.Warnf("analytics publish: %v", err)
		}
	}()
}

// Snapshot returns a copy of every recorded entry, for /analytics/get.
func (s *Service) Snapshot() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, 0, len(s.records))
	return append(out, s.records...)
}

// RelayedVisit handles a client visit record relayed through a trusted
// direct-connect owner: a base64 entry plus the client-reported total time.
// Malformed payloads are dropped.
func (s *Service) RelayedVisit(encoded, totalTime, gamemode string, biome int) {
	e, err := FromBase64(encoded)
	if err != nil {
		return
	}
	e.Define("client", map[string]any{
		"gamemode": gamemode,
		"biome":    biome,
	})
	e.FinishAfter(totalTime)
	s.Record(e)
}
