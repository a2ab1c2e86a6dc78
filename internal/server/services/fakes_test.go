package services

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/dmitrijs2005/donationhub/internal/common"
	"github.com/dmitrijs2005/donationhub/internal/dbx"
	"github.com/dmitrijs2005/donationhub/internal/server/models"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/donations"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/lookups"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/requests"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/users"
)

// memStore is an in-memory stand-in for the database. Transactions are
// serialized by txMu and rolled back by restoring a snapshot.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	seq  int

	users    map[string]models.User
	emails   map[string]string
	profiles map[models.Role]map[string]models.RoleProfile
	tokens   map[string]models.Token

	// failure injection
	hidePrecheck     bool
	profileCreateErr error
	tokenSaveErr     error
	revokeErr        error
	lookupErr        error
	txCommits        int
	txRollbacks      int
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[string]models.User{},
		emails: map[string]string{},
		profiles: map[models.Role]map[string]models.RoleProfile{
			models.RoleDonor:       {},
			models.RoleBeneficiary: {},
		},
		tokens: map[string]models.Token{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

type memSnapshot struct {
	users    map[string]models.User
	emails   map[string]string
	profiles map[models.Role]map[string]models.RoleProfile
	tokens   map[string]models.Token
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := memSnapshot{
		users:    maps.Clone(m.users),
		emails:   maps.Clone(m.emails),
		profiles: map[models.Role]map[string]models.RoleProfile{},
		tokens:   maps.Clone(m.tokens),
	}
	for r, p := range m.profiles {
		s.profiles[r] = maps.Clone(p)
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users, m.emails, m.profiles, m.tokens = s.users, s.emails, s.profiles, s.tokens
}

// withTx matches dbx.TxRunner.
func (m *memStore) withTx(ctx context.Context, _ *sql.DB, _ *sql.TxOptions, fn dbx.TxFunc) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(ctx, nil); err != nil {
		m.restore(snap)
		m.mu.Lock()
		m.txRollbacks++
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.txCommits++
	m.mu.Unlock()
	return nil
}

func (m *memStore) liveTokens(userID string) []models.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Token
	for _, t := range m.tokens {
		if t.UserID == userID && t.DeletedAt == nil {
			out = append(out, t)
		}
	}
	return out
}

func (m *memStore) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// --- users ---

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.emails[u.Email]; ok {
		return nil, common.ErrorConflict
	}
	u.ID = r.m.nextID("user")
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	r.m.users[u.ID] = *u
	r.m.emails[u.Email] = u.ID
	return u, nil
}

func (r memUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.hidePrecheck {
		return false, nil
	}
	_, ok := r.m.emails[email]
	return ok, nil
}

// --- profiles ---

type memProfiles struct{ m *memStore }

func (r memProfiles) Create(_ context.Context, role models.Role, userID string) (*models.RoleProfile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.profileCreateErr != nil {
		return nil, r.m.profileCreateErr
	}
	byUser, ok := r.m.profiles[role]
	if !ok {
		return nil, common.ErrorBadRequest
	}
	if _, dup := byUser[userID]; dup {
		return nil, common.ErrorConflict
	}
	p := models.RoleProfile{ID: r.m.nextID(string(role)), Role: role, UserID: userID}
	byUser[userID] = p
	return &p, nil
}

func (r memProfiles) GetCredentialsByEmail(_ context.Context, role models.Role, email string) (*models.Credentials, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.lookupErr != nil {
		return nil, r.m.lookupErr
	}
	uid, ok := r.m.emails[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	p, ok := r.m.profiles[role][uid]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.Credentials{Profile: p, User: r.m.users[uid]}, nil
}

func (r memProfiles) GetByUserID(_ context.Context, role models.Role, userID string) (*models.RoleProfile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.profiles[role][userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

// --- tokens ---

type memTokens struct{ m *memStore }

func (r memTokens) Save(_ context.Context, t *models.Token) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.tokenSaveErr != nil {
		return r.m.tokenSaveErr
	}
	if _, dup := r.m.tokens[t.Token]; dup {
		return common.ErrorDuplicate
	}
	t.ID = r.m.nextID("token")
	r.m.tokens[t.Token] = *t
	return nil
}

func (r memTokens) GetByValue(_ context.Context, token string) (*models.Token, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.tokens[token]
	if !ok || t.DeletedAt != nil {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r memTokens) RevokeByValue(_ context.Context, userID, token string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.revokeErr != nil {
		return r.m.revokeErr
	}
	t, ok := r.m.tokens[token]
	if !ok || t.DeletedAt != nil || t.UserID != userID {
		return common.ErrorNotFound
	}
	now := time.Now()
	t.DeletedAt = &now
	r.m.tokens[token] = t
	return nil
}

func (r memTokens) GetTypeIDByKey(_ context.Context, key string) (string, error) {
	if key == common.TokenTypeRefresh {
		return "type-refresh", nil
	}
	return "", common.ErrorNotFound
}

func (r memTokens) PurgeExpired(_ context.Context, expiredBefore, revokedBefore time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for k, t := range r.m.tokens {
		if t.ExpiresAt.Before(expiredBefore) || (t.DeletedAt != nil && t.DeletedAt.Before(revokedBefore)) {
			delete(r.m.tokens, k)
			n++
		}
	}
	return n, nil
}

// memManager vends the in-memory repositories regardless of the DBTX. The
// donation and request repositories are swappable per test.
type memManager struct {
	m         *memStore
	donations donations.Repository
	requests  requests.Repository
}

func (mm *memManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (mm *memManager) Users(dbx.DBTX) users.Repository              { return memUsers{mm.m} }
func (mm *memManager) Profiles(dbx.DBTX) profiles.Repository        { return memProfiles{mm.m} }
func (mm *memManager) Tokens(dbx.DBTX) tokens.Repository            { return memTokens{mm.m} }
func (mm *memManager) Lookups(dbx.DBTX) lookups.Repository          { return nil }
func (mm *memManager) Donations(dbx.DBTX) donations.Repository      { return mm.donations }
func (mm *memManager) Requests(dbx.DBTX) requests.Repository        { return mm.requests }

// fakeClock is shared by the issuer and the service.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeTypes struct{ err error }

func (f fakeTypes) TokenTypeID(key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "type-" + key, nil
}
