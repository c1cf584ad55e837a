// Package tradeparams holds the active parameter assignment per symbol, with
// JSON persistence and pub/sub so API clients can follow updates over SSE.
package tradeparams

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"kquant/internal/domain"
)

// Entry is the active parameter assignment for one symbol: the winning set
// from its most recent optimization plus the walk-forward verdict.
type Entry struct {
	Symbol    string              `json:"symbol"`
	Market    domain.Market       `json:"market"`
	Params    domain.ParameterSet `json:"params"`
	Verdict   domain.Verdict      `json:"verdict"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Event is the wire format for SSE messages.
type Event struct {
	Type   string           `json:"type"`             // "snapshot", "set", "delete"
	Symbol string           `json:"symbol,omitempty"` // set/delete only
	Entry  *Entry           `json:"entry,omitempty"`  // set only
	Data   map[string]Entry `json:"data,omitempty"`   // snapshot only
}

// Store holds the per-symbol entries in memory with JSON persistence and
// pub/sub.
type Store struct {
	mu       sync.RWMutex
	params   map[string]Entry // symbol -> entry
	filePath string
	log      *slog.Logger

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan Event
}

// NewStore creates a Store, loading persisted state from filePath.
func NewStore(filePath string, log *slog.Logger) *Store {
	s := &Store{
		params:   make(map[string]Entry),
		filePath: filePath,
		log:      log,
		subs:     make(map[int]chan Event),
	}
	s.load()
	return s
}

// Snapshot returns a copy of all entries.
func (s *Store) Snapshot() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(s.params))
	for sym, e := range s.params {
		out[sym] = e
	}
	return out
}

// Get returns the entry for a symbol.
func (s *Store) Get(symbol string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.params[symbol]
	return e, ok
}

// Set stores an entry under its symbol, persists to disk, and broadcasts to
// subscribers.
func (s *Store) Set(entry Entry) {
	s.mu.Lock()
	s.params[entry.Symbol] = entry
	s.flush()
	s.mu.Unlock()

	s.broadcast(Event{Type: "set", Symbol: entry.Symbol, Entry: &entry})
}

// Delete removes a symbol's entry, persists to disk, and broadcasts to
// subscribers.
func (s *Store) Delete(symbol string) {
	s.mu.Lock()
	delete(s.params, symbol)
	s.flush()
	s.mu.Unlock()

	s.broadcast(Event{Type: "delete", Symbol: symbol})
}

// Subscribe returns a channel that receives events. bufSize controls the
// channel buffer; slow consumers will have events dropped.
func (s *Store) Subscribe(bufSize int) (int, <-chan Event) {
	ch := make(chan Event, bufSize)
	s.subsMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	s.subsMu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Store) Unsubscribe(id int) {
	s.subsMu.Lock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
	s.subsMu.Unlock()
}

// broadcast sends an event to all subscribers non-blocking (drop on full).
func (s *Store) broadcast(e Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			// Slow consumer — drop event.
		}
	}
}

// load reads the JSON file into memory.
func (s *Store) load() {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return // File doesn't exist yet — start empty.
	}
	var loaded map[string]Entry
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.log.Warn("loading tradeparams file", "error", err)
		return
	}
	s.params = loaded
	s.log.Info("loaded tradeparams", "symbols", len(loaded))
}

// flush writes the in-memory state to disk. Must be called with mu held.
func (s *Store) flush() {
	data, err := json.Marshal(s.params)
	if err != nil {
		s.log.Error("marshalling tradeparams", "error", err)
		return
	}
	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		s.log.Error("writing tradeparams file", "error", err)
	}
}
