package domain

import (
	"strings"
	"sync"
)

// Store owns one Session record per user.
//
// Records are created implicitly on first access and never destroyed, only
// reset to idle. Every mutation runs under that user's lock, so commands and
// trigger callbacks for the same user are linearized while different users
// proceed in parallel.
type Store struct {
	mu    sync.Mutex
	users map[string]*userSlot
}

type userSlot struct {
	mu      sync.Mutex
	session Session
}

// NewStore constructs an empty session store.
func NewStore() *Store {
	return &Store{users: make(map[string]*userSlot)}
}

// Update runs fn with exclusive access to the user's session.
func (st *Store) Update(userID string, fn func(*Session) error) error {
	slot := st.slot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return fn(&slot.session)
}

// Snapshot returns a copy of the user's session.
func (st *Store) Snapshot(userID string) Session {
	slot := st.slot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.session
}

// ForEach visits a snapshot of every known session. The per-user lock is
// held only while copying, never across fn.
func (st *Store) ForEach(fn func(Session)) {
	st.mu.Lock()
	slots := make([]*userSlot, 0, len(st.users))
	for _, slot := range st.users {
		slots = append(slots, slot)
	}
	st.mu.Unlock()

	for _, slot := range slots {
		slot.mu.Lock()
		session := slot.session
		slot.mu.Unlock()
		fn(session)
	}
}

func (st *Store) slot(userID string) *userSlot {
	userID = strings.TrimSpace(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	slot, ok := st.users[userID]
	if !ok {
		slot = &userSlot{session: Session{UserID: userID, State: StateIdle}}
		st.users[userID] = slot
	}
	return slot
}
