package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/markusprap/mcp-berita-acara/internal/roles"
)

// ErrUnknownSession is returned for ids the store does not hold
var ErrUnknownSession = errors.New("unknown session")

// Store holds the live sessions of a server process
type Store struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store whose sessions share opts
func NewStore(opts Options) *Store {
	return &Store{
		opts:     opts.withDefaults(),
		sessions: make(map[string]*Session),
	}
}

// Create starts a session for identity
func (st *Store) Create(identity roles.Identity) *Session {
	s := New(uuid.NewString(), identity, st.opts)

	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()
	return s
}

// Get returns a live session
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	return s, nil
}

// Close closes and forgets a session
func (st *Store) Close(id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if !ok {
		return ErrUnknownSession
	}
	s.Close()
	return nil
}

// CloseAll closes every session
func (st *Store) CloseAll() {
	st.mu.Lock()
	all := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
