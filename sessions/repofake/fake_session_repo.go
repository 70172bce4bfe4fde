package fakesessionrepo

import (
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/beetrack-client/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	sessions map[int64]*sessions.Stored
	tokens   map[string]int64 // Map refresh tokens to session ids
	nextID   int64
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[int64]*sessions.Stored),
		tokens:   make(map[string]int64),
	}
}

func (sr *FakeSessionRepo) Create(session *sessions.Stored) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	sr.nextID++
	session.ID = sr.nextID
	session.IsValid = true
	stored := *session
	sr.sessions[stored.ID] = &stored
	if stored.RefreshToken != "" {
		sr.tokens[stored.RefreshToken] = stored.ID
	}
	return nil
}

func (sr *FakeSessionRepo) GetByRefreshToken(refreshToken string) (*sessions.Stored, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	id, ok := sr.tokens[refreshToken]
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	session := sr.sessions[id]
	if !session.IsValid {
		return nil, sessions.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (sr *FakeSessionRepo) ListValid(userID int64) ([]sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	list := make([]sessions.Session, 0)
	for _, s := range sr.sessions {
		if s.UserID == userID && s.IsValid {
			list = append(list, s.Session)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (sr *FakeSessionRepo) Invalidate(userID, sessionID int64) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	session, ok := sr.sessions[sessionID]
	if !ok || session.UserID != userID {
		return sessions.ErrSessionNotFound
	}
	session.IsValid = false
	return nil
}

func (sr *FakeSessionRepo) InvalidateAll(userID int64, keep *int64) (int, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	revoked := 0
	for id, s := range sr.sessions {
		if s.UserID != userID || !s.IsValid {
			continue
		}
		if keep != nil && *keep == id {
			continue
		}
		s.IsValid = false
		revoked++
	}
	return revoked, nil
}

func (sr *FakeSessionRepo) Touch(sessionID int64, at time.Time) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	session, ok := sr.sessions[sessionID]
	if !ok {
		return sessions.ErrSessionNotFound
	}
	session.LastActivity = at
	return nil
}

func (sr *FakeSessionRepo) IsValid(sessionID int64) bool {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	session, ok := sr.sessions[sessionID]
	return ok && session.IsValid
}
