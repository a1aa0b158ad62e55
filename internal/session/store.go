package session

import (
	"hash/fnv"
	"sync"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// DefaultWindow is the number of user/assistant exchanges kept per user.
	DefaultWindow = 5

	shardCount = 32
)

// Turn is one message in a user's conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is a snapshot of one user's history, oldest turn first.
// It is a copy; mutating it does not affect the store.
type Session struct {
	UserID string
	Turns  []Turn
}

// Store owns every user's conversation history.
type Store interface {
	GetOrCreate(userID string) Session
	Append(userID string, turns ...Turn)
	Recent(userID string, n int) []Turn
	// WithLock runs fn while holding the user's request lock. Concurrent calls
	// for the same user run one after another; different users run in parallel.
	WithLock(userID string, fn func() error) error
}

// Memory is an in-process Store. Entries are spread across shards so a map
// lookup for one user never waits on a lookup for an unrelated user.
// Entries are never evicted unless Cleanup is called.
type Memory struct {
	max    int
	shards [shardCount]shard
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	// seq serializes whole requests for the user; mu guards the fields below.
	seq sync.Mutex

	mu       sync.Mutex
	turns    []Turn
	lastUsed time.Time
	dead     bool
}

// NewMemory returns a store keeping the last window exchanges (2*window turns)
// per user. A non-positive window falls back to DefaultWindow.
func NewMemory(window int) *Memory {
	if window <= 0 {
		window = DefaultWindow
	}
	m := &Memory{max: 2 * window}
	for i := range m.shards {
		m.shards[i].entries = make(map[string]*entry)
	}
	return m
}

// Capacity is the maximum number of turns kept per user.
func (m *Memory) Capacity() int { return m.max }

func (m *Memory) shardFor(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &m.shards[h.Sum32()%shardCount]
}

func (m *Memory) entry(userID string) *entry {
	sh := m.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[userID]
	if !ok {
		e = &entry{lastUsed: time.Now()}
		sh.entries[userID] = e
	}
	return e
}

// live returns the user's entry with its data mutex held.
func (m *Memory) live(userID string) *entry {
	for {
		e := m.entry(userID)
		e.mu.Lock()
		if !e.dead {
			return e
		}
		e.mu.Unlock()
	}
}

func (m *Memory) GetOrCreate(userID string) Session {
	e := m.live(userID)
	defer e.mu.Unlock()

	e.lastUsed = time.Now()
	return Session{UserID: userID, Turns: append([]Turn(nil), e.turns...)}
}

func (m *Memory) Append(userID string, turns ...Turn) {
	e := m.live(userID)
	defer e.mu.Unlock()

	e.turns = append(e.turns, turns...)
	if over := len(e.turns) - m.max; over > 0 {
		kept := make([]Turn, m.max)
		copy(kept, e.turns[over:])
		e.turns = kept
	}
	e.lastUsed = time.Now()
}

func (m *Memory) Recent(userID string, n int) []Turn {
	if n <= 0 {
		return nil
	}
	e := m.live(userID)
	defer e.mu.Unlock()

	start := 0
	if len(e.turns) > n {
		start = len(e.turns) - n
	}
	return append([]Turn(nil), e.turns[start:]...)
}

func (m *Memory) WithLock(userID string, fn func() error) error {
	var e *entry
	for {
		e = m.entry(userID)
		e.seq.Lock()
		e.mu.Lock()
		dead := e.dead
		e.lastUsed = time.Now()
		e.mu.Unlock()
		if !dead {
			break
		}
		e.seq.Unlock()
	}
	defer e.seq.Unlock()

	return fn()
}

// Len reports how many users currently have an entry.
func (m *Memory) Len() int {
	n := 0
	for i := range m.shards {
		sh := &m.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

// Cleanup drops users idle for longer than maxIdle, along with their history.
// Users with a request in flight are skipped. It returns the number removed.
func (m *Memory) Cleanup(maxIdle time.Duration) int {
	now := time.Now()
	removed := 0
	for i := range m.shards {
		sh := &m.shards[i]
		sh.mu.Lock()
		for id, e := range sh.entries {
			if !e.seq.TryLock() {
				continue
			}
			e.mu.Lock()
			if now.Sub(e.lastUsed) > maxIdle {
				e.dead = true
				delete(sh.entries, id)
				removed++
			}
			e.mu.Unlock()
			e.seq.Unlock()
		}
		sh.mu.Unlock()
	}
	return removed
}
