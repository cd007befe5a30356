package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ruziba3vich/toolshed/internal/domain/oauth"
	"github.com/ruziba3vich/toolshed/internal/domain/session"
	"github.com/ruziba3vich/toolshed/internal/domain/user"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/crypto"
	"github.com/ruziba3vich/toolshed/pkg/errors"
)

// cheapParams keeps hashing fast in tests.
var cheapParams = crypto.PasswordParams{Memory: 1024, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memoryStore implements both user.Repository and session.Repository and
// counts session lookups and writes.
type memoryStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]user.User
	byName   map[string]uuid.UUID
	accounts map[string]uuid.UUID
	sessions map[string]session.Session

	lookups int
	writes  int
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:    make(map[uuid.UUID]user.User),
		byName:   make(map[string]uuid.UUID),
		accounts: make(map[string]uuid.UUID),
		sessions: make(map[string]session.Session),
	}
}

func (m *memoryStore) counts() (lookups, writes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups, m.writes
}

func (m *memoryStore) sessionCount(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

func (m *memoryStore) hasSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

// session.Repository

func (m *memoryStore) Create(ctx context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes++
	m.sessions[s.ID] = *s
	return nil
}

func (m *memoryStore) GetWithUser(ctx context.Context, id string) (*session.Session, *user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, nil, m.err
	}
	m.lookups++
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil, errors.ErrSessionNotFound
	}
	u := m.users[s.UserID]
	u.PasswordHash = nil
	return &s, &u, nil
}

func (m *memoryStore) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes++
	if s, ok := m.sessions[id]; ok {
		s.ExpiresAt = expiresAt
		m.sessions[id] = s
	}
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes++
	delete(m.sessions, id)
	return nil
}

func (m *memoryStore) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes++
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

// user.Repository, exposed through userRepo to avoid the Create clash.

type userRepo struct{ *memoryStore }

func (r userRepo) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(u)
}

func (r userRepo) insertLocked(u *user.User) error {
	if _, taken := r.byName[u.Username]; taken {
		return errors.ErrUserAlreadyExists
	}
	stored := *u
	if u.PasswordHash != nil {
		hash := *u.PasswordHash
		stored.PasswordHash = &hash
	}
	r.users[u.ID] = stored
	r.byName[u.Username] = u.ID
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	u.PasswordHash = nil
	return &u, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	id, ok := r.byName[username]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	u := r.users[id]
	return &u, nil
}

func (r userRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return errors.ErrUserNotFound
	}
	u.PasswordHash = &passwordHash
	r.users[id] = u
	return nil
}

func (r userRepo) GetByOAuthAccount(ctx context.Context, provider, providerUserID string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.accounts[provider+":"+providerUserID]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	u := r.users[id]
	u.PasswordHash = nil
	return &u, nil
}

func (r userRepo) CreateWithOAuthAccount(ctx context.Context, u *user.User, provider, providerUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := provider + ":" + providerUserID
	if _, taken := r.accounts[key]; taken {
		return errors.ErrOAuthAccountTaken
	}
	if err := r.insertLocked(u); err != nil {
		return err
	}
	r.accounts[key] = u.ID
	return nil
}

type fakeProvider struct {
	name     string
	identity *oauth.Identity
	err      error
	codes    []string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthCodeURL(state string, scopes []string) string {
	return "https://provider.test/authorize?state=" + state
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (*oauth.Identity, error) {
	p.codes = append(p.codes, code)
	if p.err != nil {
		return nil, p.err
	}
	identity := *p.identity
	return &identity, nil
}

type fakeRegistry map[string]oauth.Provider

func (r fakeRegistry) Get(name string) (oauth.Provider, error) {
	p, ok := r[name]
	if !ok {
		return nil, errors.ErrUnknownProvider
	}
	return p, nil
}
