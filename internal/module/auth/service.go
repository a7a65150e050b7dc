package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/felix-phuctran/base-be-go/internal/cache"
	"github.com/felix-phuctran/base-be-go/internal/domain"
	"github.com/felix-phuctran/base-be-go/internal/email"
	"github.com/felix-phuctran/base-be-go/internal/repository"
)

// Service defines the authentication operations.
type Service interface {
	Register(ctx context.Context, in domain.CreateUserInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Verify(ctx context.Context, email, code string) (*domain.User, error)
}

// authService implements Service. Refresh tokens live as UserSession rows;
// the cache in front of the session table is optional and best effort.
type authService struct {
	tokens     *TokenService
	users      domain.UserService
	userRepo   domain.UserRepository
	sessions   *repository.CRUD[domain.UserSession]
	cache      *cache.Store
	mailer     email.Sender
	refreshTTL time.Duration
	logger     *slog.Logger
}

// NewService creates a new auth Service.
func NewService(
	tokens *TokenService,
	users domain.UserService,
	userRepo domain.UserRepository,
	sessions *repository.CRUD[domain.UserSession],
	sessionCache *cache.Store,
	mailer email.Sender,
	refreshTTL time.Duration,
	logger *slog.Logger,
) Service {
	return &authService{
		tokens:     tokens,
		users:      users,
		userRepo:   userRepo,
		sessions:   sessions,
		cache:      sessionCache,
		mailer:     mailer,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// Register creates a new, unverified user account. The user service hashes
// the password and sends the verification mail.
func (s *authService) Register(ctx context.Context, in domain.CreateUserInput) (*domain.User, error) {
	return s.users.CreateUser(ctx, in)
}

// Login authenticates a user by email and password. Unknown email and wrong
// password both return Unauthorized so the response does not reveal whether
// the account exists.
func (s *authService) Login(ctx context.Context, emailAddr, password string) (*TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	return s.issueTokens(ctx, user.ID)
}

// Refresh rotates a refresh token: the presented session is revoked and a
// fresh access/refresh pair is issued. An unknown or expired token is
// Unauthorized.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	session, err := s.lookupSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.revokeSession(ctx, session); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, session.UserID)
}

// Logout revokes the session behind the given refresh token. Revoking an
// already unknown token succeeds.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.sessions.GetOneBy(ctx, map[string]any{"refresh_token": refreshToken})
	if err != nil {
		return err
	}
	if session == nil {
		s.dropCached(ctx, refreshToken)
		return nil
	}
	return s.revokeSession(ctx, session)
}

// Verify marks a user account as verified when the submitted code matches.
// Verifying an already verified account succeeds without touching the row.
func (s *authService) Verify(ctx context.Context, emailAddr, code string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.NewAppError(domain.CodeNotFound, "user not found", nil)
	}
	if user.IsVerified {
		return user, nil
	}
	if user.VerificationCode == nil || *user.VerificationCode != code {
		return nil, domain.NewAppError(domain.CodeValidation, "invalid verification code", nil)
	}

	updated, err := s.userRepo.Patch(ctx, user, map[string]any{
		"is_verified":       true,
		"verification_code": nil,
	})
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendWelcome(ctx, updated.Email, updated.DisplayName); err != nil {
		s.logger.Warn("failed to send welcome email",
			slog.String("email", updated.Email), slog.Any("error", err))
	}
	return updated, nil
}

// issueTokens creates a new session row plus access token for the user.
func (s *authService) issueTokens(ctx context.Context, userID uuid.UUID) (*TokenResponse, error) {
	access, expiresAt, err := s.tokens.Generate(userID)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to sign token", err)
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to generate refresh token", err)
	}

	session := &domain.UserSession{
		UserID:       userID,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().UTC().Add(s.refreshTTL),
	}
	if _, err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, refresh, session); err != nil {
		s.logger.Warn("failed to cache session", slog.Any("error", err))
	}

	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt.Unix(),
	}, nil
}

// lookupSession resolves a refresh token to its live session, cache first.
// Expired sessions are revoked on sight.
func (s *authService) lookupSession(ctx context.Context, refreshToken string) (*domain.UserSession, error) {
	var cached domain.UserSession
	hit, err := s.cache.Get(ctx, refreshToken, &cached)
	if err != nil {
		s.logger.Warn("session cache lookup failed", slog.Any("error", err))
	}

	session := &cached
	if hit {
		// The token itself is excluded from the cached JSON form.
		session.RefreshToken = refreshToken
	} else {
		session, err = s.sessions.GetOneBy(ctx, map[string]any{"refresh_token": refreshToken})
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, domain.ErrUnauthorized
		}
	}

	if time.Now().After(session.ExpiresAt) {
		if err := s.revokeSession(ctx, session); err != nil {
			s.logger.Warn("failed to revoke expired session", slog.Any("error", err))
		}
		return nil, domain.ErrUnauthorized
	}
	return session, nil
}

func (s *authService) revokeSession(ctx context.Context, session *domain.UserSession) error {
	if err := s.sessions.DeleteObj(ctx, session); err != nil {
		return err
	}
	s.dropCached(ctx, session.RefreshToken)
	return nil
}

func (s *authService) dropCached(ctx context.Context, refreshToken string) {
	if err := s.cache.Delete(ctx, refreshToken); err != nil {
		s.logger.Warn("failed to drop cached session", slog.Any("error", err))
	}
}

// newRefreshToken returns 32 bytes of hex-encoded randomness.
func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
