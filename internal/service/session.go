package service

import (
	"slices"
	"sync"
	"time"

	"healthscope/internal/model"

	"github.com/patrickmn/go-cache"
)

// ActiveReport is the report a session is currently looking at.
type ActiveReport struct {
	ReportID   string
	Date       string
	Biomarkers []model.BiomarkerRecord
	Summary    string
	// Notice explains degraded results, e.g. a failed extraction.
	Notice string
}

// Session is per-browser state. Lock it for the whole of any handler step
// that reads and then mutates it.
type Session struct {
	ID string

	mu     sync.Mutex
	active *ActiveReport
	conv   Conversation
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Active returns the current report, or nil. Caller holds the lock.
func (s *Session) Active() *ActiveReport { return s.active }

// Conversation returns the session's chat history. Caller holds the lock.
func (s *Session) Conversation() *Conversation { return &s.conv }

// Activate replaces the active report and clears the conversation.
// Caller holds the lock.
func (s *Session) Activate(r ActiveReport) {
	r.Biomarkers = slices.Clone(r.Biomarkers)
	s.active = &r
	s.conv.Reset()
}

// Snapshot copies the session state for rendering.
func (s *Session) Snapshot() (*ActiveReport, []model.ChatTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, slices.Clone(s.conv.Turns)
	}
	a := *s.active
	a.Biomarkers = slices.Clone(a.Biomarkers)
	return &a, slices.Clone(s.conv.Turns)
}

// SessionStore holds sessions in memory with an idle expiry.
type SessionStore struct {
	cache *cache.Cache
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{cache: cache.New(ttl, 10*time.Minute)}
}

// Get returns the session for id, creating it if needed, and refreshes its expiry.
func (r *SessionStore) Get(id string) *Session {
	if x, found := r.cache.Get(id); found {
		sess := x.(*Session)
		r.cache.SetDefault(id, sess)
		return sess
	}
	sess := &Session{ID: id}
	if err := r.cache.Add(id, sess, cache.DefaultExpiration); err != nil {
		// lost the race to a concurrent request for the same id
		if x, found := r.cache.Get(id); found {
			return x.(*Session)
		}
		r.cache.SetDefault(id, sess)
	}
	return sess
}

func (r *SessionStore) Delete(id string) {
	r.cache.Delete(id)
}

func (r *SessionStore) Count() int {
	return r.cache.ItemCount()
}
