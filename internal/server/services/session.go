// Package services contains server-side business logic. This file implements
// SessionService: sign-in, sign-up, sign-out and refresh for donors and
// beneficiaries, issuing JWT access tokens and server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/donationhub/internal/common"
	"github.com/dmitrijs2005/donationhub/internal/dbx"
	"github.com/dmitrijs2005/donationhub/internal/logging"
	"github.com/dmitrijs2005/donationhub/internal/server/auth"
	"github.com/dmitrijs2005/donationhub/internal/server/models"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/repomanager"
)

// Password length bounds accepted at sign-up. bcrypt ignores input past 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// TokenIssuer signs and verifies access and refresh tokens.
type TokenIssuer interface {
	Issue(subject string, kind auth.TokenKind) (string, *auth.Claims, error)
	Verify(token string, kind auth.TokenKind) (*auth.Claims, error)
}

// CredentialVerifier hashes and checks passwords. Burn does the work of a
// comparison without a real hash.
type CredentialVerifier interface {
	Hash(plain string) (string, error)
	Verify(plain, storedHash string) bool
	Burn(plain string)
}

// TokenTypes resolves token_types keys to ids.
type TokenTypes interface {
	TokenTypeID(key string) (string, error)
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is returned by sign-in and sign-up.
type AuthResult struct {
	TokenPair
	Profile models.Profile
}

// RefreshResult is returned by Refresh. RefreshToken is empty unless the
// presented token was rotated.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	UserID       string
}

// SignUpInput carries the profile fields of a new account.
type SignUpInput struct {
	Name      string
	LastName1 string
	LastName2 *string
	Email     string
	Password  string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (in *SignUpInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.LastName1 = strings.TrimSpace(in.LastName1)
	in.Email = normalizeEmail(in.Email)
	if in.LastName2 != nil {
		v := strings.TrimSpace(*in.LastName2)
		in.LastName2 = &v
		if v == "" {
			in.LastName2 = nil
		}
	}
}

// Validate reports the first missing or malformed field as common.ErrorBadRequest.
func (in SignUpInput) Validate() error {
	switch {
	case in.Name == "":
		return badRequest("name is required")
	case in.LastName1 == "":
		return badRequest("last_name_1 is required")
	case in.Email == "":
		return badRequest("email is required")
	case in.Password == "":
		return badRequest("password is required")
	case len(in.Password) < MinPasswordLength:
		return badRequest("password is too short")
	case len(in.Password) > MaxPasswordLength:
		return badRequest("password is too long")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return badRequest("email is malformed")
	}
	return nil
}

// SessionService orchestrates credentials, tokens and the token store.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      TokenIssuer
	passwords   CredentialVerifier
	tokenTypes  TokenTypes
	rotation    auth.RotationPolicy
	logger      logging.Logger

	withTx dbx.TxRunner
	now    func() time.Time
}

// NewSessionService wires a SessionService. Transactions run through
// dbx.WithTx and time comes from time.Now.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, issuer TokenIssuer, passwords CredentialVerifier,
	tokenTypes TokenTypes, rotation auth.RotationPolicy, logger logging.Logger) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		passwords:   passwords,
		tokenTypes:  tokenTypes,
		rotation:    rotation,
		logger:      logger.With("module", "session"),
		withTx:      dbx.WithTx,
		now:         time.Now,
	}
}

// SignIn checks email/password for a role profile and opens a session.
// Unknown email and wrong password both yield common.ErrorUnauthorized.
func (s *SessionService) SignIn(ctx context.Context, role models.Role, email, password string) (*AuthResult, error) {
	if _, err := models.ParseRole(string(role)); err != nil {
		return nil, badRequest(err.Error())
	}

	creds, err := s.repomanager.Profiles(s.db).GetCredentialsByEmail(ctx, role, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.passwords.Burn(password)
			s.logger.Debug(ctx, "sign-in rejected", "role", role, "reason", "no such profile")
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "sign-in lookup failed", "role", role, "error", err)
		return nil, common.ErrorInternal
	}

	if !s.passwords.Verify(password, creds.User.PasswordHash) {
		s.logger.Debug(ctx, "sign-in rejected", "role", role, "reason", "password mismatch")
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.generateTokenPair(ctx, creds.User.ID, s.db)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "signed in", "role", role, "user_id", creds.User.ID)
	return &AuthResult{TokenPair: *pair, Profile: models.NewProfile(creds.Profile, creds.User)}, nil
}

// SignUp creates the user, its role profile and the first refresh token in
// one transaction. A registered email yields common.ErrorConflict.
func (s *SessionService) SignUp(ctx context.Context, role models.Role, in SignUpInput) (*AuthResult, error) {
	if _, err := models.ParseRole(string(role)); err != nil {
		return nil, badRequest(err.Error())
	}
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	// Fast path only; the unique constraint decides races.
	exists, err := s.repomanager.Users(s.db).ExistsByEmail(ctx, in.Email)
	if err != nil {
		s.logger.Error(ctx, "sign-up precheck failed", "error", err)
		return nil, common.ErrorInternal
	}
	if exists {
		return nil, common.ErrorConflict
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	user := &models.User{
		Name:         in.Name,
		LastName1:    in.LastName1,
		LastName2:    in.LastName2,
		Email:        in.Email,
		PasswordHash: hash,
	}

	var (
		profile *models.RoleProfile
		pair    *TokenPair
	)
	err = s.withTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		user = created
		profile, err = s.repomanager.Profiles(tx).Create(ctx, role, user.ID)
		if err != nil {
			return err
		}
		pair, err = s.generateTokenPair(ctx, user.ID, tx)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorConflict):
			return nil, common.ErrorConflict
		case errors.Is(err, common.ErrorInternal):
			return nil, common.ErrorInternal
		}
		s.logger.Error(ctx, "sign-up failed", "role", role, "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "signed up", "role", role, "user_id", user.ID)
	return &AuthResult{TokenPair: *pair, Profile: models.NewProfile(*profile, *user)}, nil
}

// SignOut revokes exactly the presented refresh token.
func (s *SessionService) SignOut(ctx context.Context, refreshToken string) error {
	claims, err := s.issuer.Verify(refreshToken, auth.RefreshToken)
	if err != nil {
		s.logger.Debug(ctx, "sign-out rejected", "reason", err)
		return common.ErrorUnauthorized
	}

	if err := s.repomanager.Tokens(s.db).RevokeByValue(ctx, claims.UserID(), refreshToken); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Debug(ctx, "sign-out rejected", "reason", "token not live", "user_id", claims.UserID())
			return common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "sign-out failed", "error", err)
		return common.ErrorInternal
	}

	s.logger.Info(ctx, "signed out", "user_id", claims.UserID())
	return nil
}

// Refresh exchanges a live refresh token for a new access token. When the
// token is close to expiry it is revoked and replaced in the same
// transaction; of two concurrent rotations only one succeeds.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := s.issuer.Verify(refreshToken, auth.RefreshToken)
	if err != nil {
		s.logger.Debug(ctx, "refresh rejected", "reason", err)
		return nil, common.ErrorUnauthorized
	}
	userID := claims.UserID()

	stored, err := s.repomanager.Tokens(s.db).GetByValue(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Debug(ctx, "refresh rejected", "reason", "token not live", "user_id", userID)
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "refresh lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	if stored.UserID != userID {
		s.logger.Warn(ctx, "refresh rejected", "reason", "owner mismatch", "user_id", userID)
		return nil, common.ErrorUnauthorized
	}

	access, _, err := s.issuer.Issue(userID, auth.AccessToken)
	if err != nil {
		s.logger.Error(ctx, "access token signing failed", "error", err)
		return nil, common.ErrorInternal
	}

	result := &RefreshResult{AccessToken: access, UserID: userID}
	if !s.rotation.ShouldRotate(claims.ExpiresAt.Time, s.now()) {
		return result, nil
	}

	err = s.withTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Tokens(tx).RevokeByValue(ctx, userID, refreshToken); err != nil {
			return err
		}
		var err error
		result.RefreshToken, err = s.generateRefreshToken(ctx, userID, tx)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Debug(ctx, "refresh rejected", "reason", "rotated concurrently", "user_id", userID)
			return nil, common.ErrorUnauthorized
		}
		if !errors.Is(err, common.ErrorInternal) {
			s.logger.Error(ctx, "refresh rotation failed", "error", err)
		}
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "refresh token rotated", "user_id", userID)
	return result, nil
}

// Authenticate validates an access token and returns its user id. It does
// not touch storage.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (string, error) {
	claims, err := s.issuer.Verify(accessToken, auth.AccessToken)
	if err != nil {
		s.logger.Debug(ctx, "access token rejected", "reason", err)
		return "", common.ErrorUnauthorized
	}
	return claims.UserID(), nil
}

// --- helpers below ---

func (s *SessionService) generateTokenPair(ctx context.Context, userID string, db dbx.DBTX) (*TokenPair, error) {
	access, _, err := s.issuer.Issue(userID, auth.AccessToken)
	if err != nil {
		s.logger.Error(ctx, "access token signing failed", "error", err)
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken(ctx, userID, db)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// generateRefreshToken signs a refresh token and stores it before returning.
func (s *SessionService) generateRefreshToken(ctx context.Context, userID string, db dbx.DBTX) (string, error) {
	typeID, err := s.tokenTypes.TokenTypeID(common.TokenTypeRefresh)
	if err != nil {
		s.logger.Error(ctx, "refresh token type missing", "error", err)
		return "", common.ErrorInternal
	}

	token, claims, err := s.issuer.Issue(userID, auth.RefreshToken)
	if err != nil {
		s.logger.Error(ctx, "refresh token signing failed", "error", err)
		return "", common.ErrorInternal
	}

	record := &models.Token{
		Token:       token,
		UserID:      userID,
		TokenTypeID: typeID,
		ExpiresAt:   claims.ExpiresAt.Time,
	}
	if err := s.repomanager.Tokens(db).Save(ctx, record); err != nil {
		s.logger.Error(ctx, "refresh token not stored", "user_id", userID, "error", err)
		return "", common.ErrorInternal
	}

	return token, nil
}
