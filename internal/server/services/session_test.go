package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/donationhub/internal/common"
	"github.com/dmitrijs2005/donationhub/internal/logging"
	"github.com/dmitrijs2005/donationhub/internal/server/auth"
	"github.com/dmitrijs2005/donationhub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const refreshLifetime = 100 * time.Hour

type sessionFixture struct {
	svc   *SessionService
	store *memStore
	clock *fakeClock
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	clock := newFakeClock()
	issuer := auth.NewIssuer(auth.IssuerConfig{
		Issuer:  "donationhub-test",
		Access:  auth.KeyConfig{Secret: []byte("access-secret"), Validity: 15 * time.Minute},
		Refresh: auth.KeyConfig{Secret: []byte("refresh-secret"), Validity: refreshLifetime},
	}, auth.WithClock(clock.Now))

	store := newMemStore()
	svc := NewSessionService(nil, &memManager{m: store}, issuer, auth.NewBcryptVerifier(bcrypt.MinCost),
		fakeTypes{}, auth.NewRotationPolicy(refreshLifetime, auth.DefaultRotationThreshold), logging.Nop())
	svc.withTx = store.withTx
	svc.now = clock.Now

	return &sessionFixture{svc: svc, store: store, clock: clock}
}

func validSignUp(email string) SignUpInput {
	return SignUpInput{Name: "Ana", LastName1: "Lopez", Email: email, Password: "s3cret-pass"}
}

func (f *sessionFixture) signUp(t *testing.T, role models.Role, email string) *AuthResult {
	t.Helper()
	res, err := f.svc.SignUp(context.Background(), role, validSignUp(email))
	require.NoError(t, err)
	return res
}

func TestSignUp_ThenSignIn(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	for _, role := range []models.Role{models.RoleDonor, models.RoleBeneficiary} {
		t.Run(string(role), func(t *testing.T) {
			email := string(role) + "@example.com"
			up := f.signUp(t, role, email)
			assert.NotEmpty(t, up.AccessToken)
			assert.NotEmpty(t, up.RefreshToken)
			assert.Equal(t, role, up.Profile.Role)
			assert.Equal(t, email, up.Profile.Email)
			assert.NotEqual(t, up.Profile.ID, up.Profile.UserID)

			in, err := f.svc.SignIn(ctx, role, email, "s3cret-pass")
			require.NoError(t, err)
			assert.NotEmpty(t, in.AccessToken)
			assert.NotEmpty(t, in.RefreshToken)
			assert.NotEqual(t, up.RefreshToken, in.RefreshToken)
			assert.Equal(t, up.Profile, in.Profile)

			assert.Len(t, f.store.liveTokens(up.Profile.UserID), 2)
		})
	}
}

func TestSignUp_NormalizesEmail(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	up := f.signUp(t, models.RoleDonor, "  Ana@Example.COM ")
	assert.Equal(t, "ana@example.com", up.Profile.Email)

	_, err := f.svc.SignIn(ctx, models.RoleDonor, "ANA@example.com", "s3cret-pass")
	require.NoError(t, err)
}

func TestSignIn_AntiEnumeration(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	f.signUp(t, models.RoleDonor, "ana@example.com")

	_, wrongPass := f.svc.SignIn(ctx, models.RoleDonor, "ana@example.com", "not-the-password")
	_, noUser := f.svc.SignIn(ctx, models.RoleDonor, "nobody@example.com", "s3cret-pass")
	_, wrongRole := f.svc.SignIn(ctx, models.RoleBeneficiary, "ana@example.com", "s3cret-pass")

	assert.ErrorIs(t, wrongPass, common.ErrorUnauthorized)
	assert.ErrorIs(t, noUser, common.ErrorUnauthorized)
	assert.ErrorIs(t, wrongRole, common.ErrorUnauthorized)
	assert.Equal(t, wrongPass.Error(), noUser.Error())
}

func TestSignIn_EmptyStoredHash(t *testing.T) {
	f := newSessionFixture(t)
	up := f.signUp(t, models.RoleDonor, "ana@example.com")

	f.store.mu.Lock()
	u := f.store.users[up.Profile.UserID]
	u.PasswordHash = ""
	f.store.users[u.ID] = u
	f.store.mu.Unlock()

	_, err := f.svc.SignIn(context.Background(), models.RoleDonor, "ana@example.com", "")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestSignIn_Errors(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignIn(ctx, models.Role("admin"), "a@b.c", "x")
	assert.ErrorIs(t, err, common.ErrorBadRequest)

	f.store.lookupErr = errors.New("connection reset")
	_, err = f.svc.SignIn(ctx, models.RoleDonor, "a@b.c", "x")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestSignUp_Validation(t *testing.T) {
	long := make([]byte, MaxPasswordLength+1)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name   string
		mutate func(*SignUpInput)
	}{
		{"missing name", func(in *SignUpInput) { in.Name = " " }},
		{"missing last name", func(in *SignUpInput) { in.LastName1 = "" }},
		{"missing email", func(in *SignUpInput) { in.Email = "" }},
		{"malformed email", func(in *SignUpInput) { in.Email = "not-an-email" }},
		{"missing password", func(in *SignUpInput) { in.Password = "" }},
		{"short password", func(in *SignUpInput) { in.Password = "short" }},
		{"long password", func(in *SignUpInput) { in.Password = string(long) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t)
			in := validSignUp("ana@example.com")
			tt.mutate(&in)

			_, err := f.svc.SignUp(context.Background(), models.RoleDonor, in)
			assert.ErrorIs(t, err, common.ErrorBadRequest)
			assert.Zero(t, f.store.userCount())
		})
	}

	t.Run("unknown role", func(t *testing.T) {
		f := newSessionFixture(t)
		_, err := f.svc.SignUp(context.Background(), models.Role("admin"), validSignUp("ana@example.com"))
		assert.ErrorIs(t, err, common.ErrorBadRequest)
	})
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := newSessionFixture(t)
	f.signUp(t, models.RoleDonor, "ana@example.com")

	_, err := f.svc.SignUp(context.Background(), models.RoleBeneficiary, validSignUp("ana@example.com"))
	assert.ErrorIs(t, err, common.ErrorConflict)

	// constraint path, as when the pre-check loses a race
	f.store.hidePrecheck = true
	_, err = f.svc.SignUp(context.Background(), models.RoleDonor, validSignUp("ana@example.com"))
	assert.ErrorIs(t, err, common.ErrorConflict)
	assert.Equal(t, 1, f.store.userCount())
}

func TestSignUp_ConcurrentSameEmail(t *testing.T) {
	for _, precheck := range []bool{true, false} {
		f := newSessionFixture(t)
		f.store.hidePrecheck = !precheck

		const n = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			ok        int
			conflicts int
		)
		start := make(chan struct{})
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(role models.Role) {
				defer wg.Done()
				<-start
				_, err := f.svc.SignUp(context.Background(), role, validSignUp("race@example.com"))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, common.ErrorConflict):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}([]models.Role{models.RoleDonor, models.RoleBeneficiary}[i%2])
		}
		close(start)
		wg.Wait()

		assert.Equal(t, 1, ok)
		assert.Equal(t, n-1, conflicts)
		assert.Equal(t, 1, f.store.userCount())

		f.store.mu.Lock()
		profiles := len(f.store.profiles[models.RoleDonor]) + len(f.store.profiles[models.RoleBeneficiary])
		f.store.mu.Unlock()
		assert.Equal(t, 1, profiles, "every user has exactly one role profile")
	}
}

func TestSignUp_RollsBackOnProfileFailure(t *testing.T) {
	f := newSessionFixture(t)
	f.store.profileCreateErr = errors.New("insert into donors: connection reset")

	_, err := f.svc.SignUp(context.Background(), models.RoleDonor, validSignUp("ana@example.com"))
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Zero(t, f.store.userCount())
	assert.Equal(t, 1, f.store.txRollbacks)

	f.store.profileCreateErr = nil
	f.signUp(t, models.RoleDonor, "ana@example.com")
}

func TestSignUp_RollsBackOnTokenFailure(t *testing.T) {
	f := newSessionFixture(t)
	f.store.tokenSaveErr = errors.New("disk full")

	_, err := f.svc.SignUp(context.Background(), models.RoleDonor, validSignUp("ana@example.com"))
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Zero(t, f.store.userCount())

	f.store.mu.Lock()
	assert.Empty(t, f.store.profiles[models.RoleDonor])
	f.store.mu.Unlock()
}

func TestSignUp_MissingTokenType(t *testing.T) {
	f := newSessionFixture(t)
	f.svc.tokenTypes = fakeTypes{err: common.ErrorNotFound}

	_, err := f.svc.SignUp(context.Background(), models.RoleDonor, validSignUp("ana@example.com"))
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Zero(t, f.store.userCount())
}

func TestRefresh_KeepsTokenEarlyInLifetime(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	up := f.signUp(t, models.RoleDonor, "ana@example.com")

	f.clock.Advance(refreshLifetime / 2)

	first, err := f.svc.Refresh(ctx, up.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, first.AccessToken)
	assert.Empty(t, first.RefreshToken)
	assert.Equal(t, up.Profile.UserID, first.UserID)

	second, err := f.svc.Refresh(ctx, up.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, second.RefreshToken)

	userID, err := f.svc.Authenticate(ctx, second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, up.Profile.UserID, userID)
}

func TestRefresh_RotatesNearExpiry(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	up := f.signUp(t, models.RoleDonor, "ana@example.com")

	f.clock.Advance(refreshLifetime * 80 / 100)

	res, err := f.svc.Refresh(ctx, up.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, res.RefreshToken)
	assert.NotEqual(t, up.RefreshToken, res.RefreshToken)

	_, err = f.svc.Refresh(ctx, up.RefreshToken)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	again, err := f.svc.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, again.RefreshToken, "fresh token is not rotated again")

	live := f.store.liveTokens(up.Profile.UserID)
	require.Len(t, live, 1)
	assert.Equal(t, res.RefreshToken, live[0].Token)
}

func TestRefresh_ConcurrentRotationSingleWinner(t *testing.T) {
	f := newSessionFixture(t)
	up := f.signUp(t, models.RoleDonor, "ana@example.com")
	f.clock.Advance(refreshLifetime * 90 / 100)

	const n = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		rotated int
		denied  int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := f.svc.Refresh(context.Background(), up.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && res.RefreshToken != "":
				rotated++
			case errors.Is(err, common.ErrorUnauthorized):
				denied++
			default:
				t.Errorf("unexpected outcome: %+v, %v", res, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, rotated)
	assert.Equal(t, n-1, denied)
	assert.Len(t, f.store.liveTokens(up.Profile.UserID), 1)
}

func TestRefresh_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("garbage", func(t *testing.T) {
		f := newSessionFixture(t)
		_, err := f.svc.Refresh(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, common.ErrorUnauthorized)
	})

	t.Run("access token presented", func(t *testing.T) {
		f := newSessionFixture(t)
		up := f.signUp(t, models.RoleDonor, "ana@example.com")
		_, err := f.svc.Refresh(ctx, up.AccessToken)
		assert.ErrorIs(t, err, common.ErrorUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		f := newSessionFixture(t)
		up := f.signUp(t, models.RoleDonor, "ana@example.com")
		f.clock.Advance(refreshLifetime + time.Minute)
		_, err := f.svc.Refresh(ctx, up.RefreshToken)
		assert.ErrorIs(t, err, common.ErrorUnauthorized)
	})

	t.Run("owner mismatch", func(t *testing.T) {
		f := newSessionFixture(t)
		up := f.signUp(t, models.RoleDonor, "ana@example.com")

		f.store.mu.Lock()
		tok := f.store.tokens[up.RefreshToken]
		tok.UserID = "someone-else"
		f.store.tokens[up.RefreshToken] = tok
		f.store.mu.Unlock()

		_, err := f.svc.Refresh(ctx, up.RefreshToken)
		assert.ErrorIs(t, err, common.ErrorUnauthorized)
	})

	t.Run("store failure during rotation", func(t *testing.T) {
		f := newSessionFixture(t)
		up := f.signUp(t, models.RoleDonor, "ana@example.com")
		f.clock.Advance(refreshLifetime * 90 / 100)
		f.store.revokeErr = errors.New("connection reset")

		_, err := f.svc.Refresh(ctx, up.RefreshToken)
		assert.ErrorIs(t, err, common.ErrorInternal)
		assert.Len(t, f.store.liveTokens(up.Profile.UserID), 1)
	})
}

func TestSignOut_RevokesOnlyPresentedToken(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	up := f.signUp(t, models.RoleDonor, "ana@example.com")

	other, err := f.svc.SignIn(ctx, models.RoleDonor, "ana@example.com", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, f.svc.SignOut(ctx, up.RefreshToken))

	_, err = f.svc.Refresh(ctx, up.RefreshToken)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = f.svc.Refresh(ctx, other.RefreshToken)
	assert.NoError(t, err)

	assert.ErrorIs(t, f.svc.SignOut(ctx, up.RefreshToken), common.ErrorUnauthorized, "second sign-out")
}

func TestSignOut_Errors(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.SignOut(ctx, "garbage"), common.ErrorUnauthorized)

	up := f.signUp(t, models.RoleDonor, "ana@example.com")
	f.store.revokeErr = errors.New("connection reset")
	assert.ErrorIs(t, f.svc.SignOut(ctx, up.RefreshToken), common.ErrorInternal)
}

func TestAuthenticate(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	up := f.signUp(t, models.RoleDonor, "ana@example.com")

	id, err := f.svc.Authenticate(ctx, up.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, up.Profile.UserID, id)

	_, err = f.svc.Authenticate(ctx, up.RefreshToken)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	f.clock.Advance(time.Hour)
	_, err = f.svc.Authenticate(ctx, up.AccessToken)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}
