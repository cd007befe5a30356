package services

import (
	"context"

	"github.com/ruziba3vich/toolshed/internal/application/dto"
	"github.com/ruziba3vich/toolshed/internal/domain/user"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/crypto"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/metrics"
	"github.com/ruziba3vich/toolshed/pkg/errors"
	"github.com/ruziba3vich/toolshed/pkg/logger"
)

// AuthService handles password accounts: registration, login, logout and
// password changes.
type AuthService struct {
	userRepo user.Repository
	sessions *SessionService
	hasher   *crypto.Argon2Hasher
	throttle LoginThrottle
	metrics  *metrics.Metrics

	// dummyHash is verified against when there is no stored hash, so
	// unknown usernames cost as much as wrong passwords.
	dummyHash string
}

// NewAuthService creates a new authentication service. A nil throttle
// disables login throttling.
func NewAuthService(
	userRepo user.Repository,
	sessions *SessionService,
	hasher *crypto.Argon2Hasher,
	throttle LoginThrottle,
	m *metrics.Metrics,
) *AuthService {
	if throttle == nil {
		throttle = NoopLoginThrottle()
	}
	// An empty dummy hash only skips the equalising work.
	dummyHash, _ := hasher.Hash(context.Background(), "toolshed-no-such-user")
	return &AuthService{
		userRepo:  userRepo,
		sessions:  sessions,
		hasher:    hasher,
		throttle:  throttle,
		metrics:   m,
		dummyHash: dummyHash,
	}
}

// Register creates a password account and signs it in.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResult, error) {
	if err := user.ValidateCredentials(req.Username, req.Password); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	u := user.NewUser(req.Username, passwordHash)
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}
	s.metrics.Registration()

	token, sess, err := s.sessions.IssueSession(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	u.PasswordHash = nil
	return &dto.AuthResult{Token: token, Session: sess, User: u}, nil
}

// Login checks a username and password. Unknown users, accounts without a
// password and wrong passwords all yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResult, error) {
	if err := user.ValidateCredentials(req.Username, req.Password); err != nil {
		return nil, err
	}

	if err := s.throttle.Check(ctx, req.Username); err != nil {
		if errors.Is(err, errors.ErrTooManyAttempts) {
			s.metrics.Login(metrics.LoginThrottled)
		} else {
			s.metrics.Login(metrics.LoginError)
		}
		return nil, err
	}

	u, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			s.verifyDummy(ctx, req.Password)
			return nil, s.rejectLogin(ctx, req.Username)
		}
		s.metrics.Login(metrics.LoginError)
		return nil, errors.Wrap(err, "failed to get user")
	}

	if !u.HasPassword() {
		s.verifyDummy(ctx, req.Password)
		return nil, s.rejectLogin(ctx, req.Username)
	}

	ok, err := s.hasher.Verify(ctx, req.Password, *u.PasswordHash)
	if err != nil {
		s.metrics.Login(metrics.LoginError)
		return nil, errors.Wrap(err, "failed to verify password")
	}
	if !ok {
		return nil, s.rejectLogin(ctx, req.Username)
	}

	if err := s.throttle.Reset(ctx, req.Username); err != nil {
		s.metrics.Login(metrics.LoginError)
		return nil, err
	}

	token, sess, err := s.sessions.IssueSession(ctx, u.ID)
	if err != nil {
		s.metrics.Login(metrics.LoginError)
		return nil, err
	}
	s.metrics.Login(metrics.LoginSuccess)

	s.rehashIfNeeded(ctx, u, req.Password)

	u.PasswordHash = nil
	return &dto.AuthResult{Token: token, Session: sess, User: u}, nil
}

// Logout ends one session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.InvalidateSession(ctx, sessionID)
}

// ChangePassword sets a new password for u, signs out every session of
// the account and issues a fresh one. Accounts created through a provider
// may set a first password without supplying a current one.
func (s *AuthService) ChangePassword(ctx context.Context, u *user.User, req *dto.ChangePasswordRequest) (*dto.AuthResult, error) {
	if err := user.ValidatePassword(req.NewPassword); err != nil {
		var ve *errors.ValidationError
		if errors.As(err, &ve) {
			return nil, errors.NewValidationError("new_password", ve.Message)
		}
		return nil, err
	}

	stored, err := s.userRepo.GetByUsername(ctx, u.Username)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user")
	}

	if stored.HasPassword() {
		ok, err := s.hasher.Verify(ctx, req.CurrentPassword, *stored.PasswordHash)
		if err != nil {
			return nil, errors.Wrap(err, "failed to verify password")
		}
		if !ok {
			return nil, errors.ErrInvalidCredentials
		}
	}

	passwordHash, err := s.hasher.Hash(ctx, req.NewPassword)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}
	if err := s.userRepo.UpdatePassword(ctx, stored.ID, passwordHash); err != nil {
		return nil, errors.Wrap(err, "failed to update password")
	}

	if err := s.sessions.InvalidateUserSessions(ctx, stored.ID); err != nil {
		return nil, err
	}

	token, sess, err := s.sessions.IssueSession(ctx, stored.ID)
	if err != nil {
		return nil, err
	}

	stored.PasswordHash = nil
	return &dto.AuthResult{Token: token, Session: sess, User: stored}, nil
}

func (s *AuthService) rejectLogin(ctx context.Context, username string) error {
	s.metrics.Login(metrics.LoginInvalid)
	if err := s.throttle.RecordFailure(ctx, username); err != nil {
		return err
	}
	return errors.ErrInvalidCredentials
}

func (s *AuthService) verifyDummy(ctx context.Context, password string) {
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(ctx, password, s.dummyHash)
	}
}

// rehashIfNeeded upgrades a hash minted with older parameters. The login
// has already succeeded, so failures are only logged.
func (s *AuthService) rehashIfNeeded(ctx context.Context, u *user.User, password string) {
	needs, err := s.hasher.NeedsRehash(*u.PasswordHash)
	if err != nil || !needs {
		return
	}

	log := logger.FromContext(ctx)
	passwordHash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		log.Warn("password rehash failed", logger.UserID(u.ID.String()), logger.Error(err))
		return
	}
	if err := s.userRepo.UpdatePassword(ctx, u.ID, passwordHash); err != nil {
		log.Warn("password rehash update failed", logger.UserID(u.ID.String()), logger.Error(err))
		return
	}
	log.Info("password rehashed", logger.UserID(u.ID.String()))
}
