package user

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/felix-phuctran/base-be-go/internal/domain"
	"github.com/felix-phuctran/base-be-go/internal/email"
)

// userService implements domain.UserService.
type userService struct {
	repo   domain.UserRepository
	mailer email.Sender
	logger *slog.Logger
}

// NewUserService creates a new UserService with the given repository and
// mail sender.
func NewUserService(repo domain.UserRepository, mailer email.Sender, logger *slog.Logger) domain.UserService {
	return &userService{repo: repo, mailer: mailer, logger: logger}
}

// CreateUser validates input, hashes the password, persists the user, and
// sends a verification mail. Mail delivery is best-effort: a failure is
// logged, not returned.
func (s *userService) CreateUser(ctx context.Context, in domain.CreateUserInput) (*domain.User, error) {
	user, err := s.buildUser(in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if user.VerificationCode != nil {
		if err := s.mailer.SendVerification(ctx, user.Email, user.DisplayName, *user.VerificationCode); err != nil {
			s.logger.Warn("verification mail failed",
				slog.String("email", user.Email), slog.Any("error", err))
		}
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.NewAppError(domain.CodeNotFound, "user not found", nil)
	}
	return user, nil
}

// ListUsers returns a filtered, ordered page of users with the total count.
func (s *userService) ListUsers(ctx context.Context, params domain.ListParams) (*domain.ListResult[domain.User], error) {
	return s.repo.List(ctx, params)
}

// UpdateUser applies a full update to the user.
func (s *userService) UpdateUser(ctx context.Context, id uuid.UUID, changes map[string]any) (*domain.User, error) {
	return s.applyChanges(ctx, id, changes, s.repo.Update)
}

// PatchUser applies a partial update to the user.
func (s *userService) PatchUser(ctx context.Context, id uuid.UUID, changes map[string]any) (*domain.User, error) {
	return s.applyChanges(ctx, id, changes, s.repo.Patch)
}

func (s *userService) applyChanges(
	ctx context.Context,
	id uuid.UUID,
	changes map[string]any,
	apply func(context.Context, *domain.User, map[string]any) (*domain.User, error),
) (*domain.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	changes, err = preparePasswordChange(changes)
	if err != nil {
		return nil, err
	}
	return apply(ctx, user, changes)
}

// RemoveUser soft-deletes a user.
func (s *userService) RemoveUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.repo.Remove(ctx, id)
}

// RestoreUser reverses a soft delete.
func (s *userService) RestoreUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.repo.Restore(ctx, id)
}

// DeleteUser hard-deletes a user.
func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// CloneUser duplicates a user with the given overrides. The email must be
// overridden or the unique constraint rejects the copy.
func (s *userService) CloneUser(ctx context.Context, id uuid.UUID, overrides map[string]any) (*domain.User, error) {
	overrides, err := preparePasswordChange(overrides)
	if err != nil {
		return nil, err
	}
	return s.repo.Clone(ctx, id, overrides)
}

// BatchCreateUsers validates and inserts the given users atomically.
func (s *userService) BatchCreateUsers(ctx context.Context, in []domain.CreateUserInput) ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(in))
	for i, item := range in {
		user, err := s.buildUser(item)
		if err != nil {
			return nil, domain.NewAppError(domain.CodeValidation,
				fmt.Sprintf("user %d: %s", i, err.Error()), err)
		}
		users = append(users, user)
	}
	if err := s.repo.BatchCreate(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

// SetAvatar stores the uploaded avatar URL on the user.
func (s *userService) SetAvatar(ctx context.Context, id uuid.UUID, url string) (*domain.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.Patch(ctx, user, map[string]any{"avatar_url": url})
}

// buildUser validates the input and produces an unsaved user with a hashed
// password and a fresh verification code.
func (s *userService) buildUser(in domain.CreateUserInput) (*domain.User, error) {
	name := strings.TrimSpace(in.DisplayName)
	addr := strings.TrimSpace(in.Email)

	if err := validateNameEmail(name, addr); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to hash password", err)
	}

	code, err := verificationCode()
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to generate verification code", err)
	}

	return &domain.User{
		DisplayName:      name,
		Email:            addr,
		PasswordHash:     string(hash),
		PhoneNumber:      in.PhoneNumber,
		VerificationCode: &code,
	}, nil
}

// preparePasswordChange rewrites a plaintext "password" change into a
// password_hash write and rejects direct hash writes.
func preparePasswordChange(changes map[string]any) (map[string]any, error) {
	if changes == nil {
		return nil, nil
	}
	out := make(map[string]any, len(changes))
	for k, v := range changes {
		switch k {
		case "password_hash", "passwordHash":
			return nil, domain.NewAppError(domain.CodeValidation, "password_hash cannot be set directly", nil)
		case "password":
			pw, _ := v.(string)
			if err := validatePassword(pw); err != nil {
				return nil, err
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
			if err != nil {
				return nil, domain.NewAppError(domain.CodeInternal, "failed to hash password", err)
			}
			out["password_hash"] = string(hash)
		default:
			out[k] = v
		}
	}
	return out, nil
}

// validateNameEmail checks that name and email are non-empty and well-formed.
func validateNameEmail(name, email string) error {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return domain.NewAppError(domain.CodeValidation, "display_name is required", nil)
	}
	if utf8.RuneCountInString(trimmedName) < 2 {
		return domain.NewAppError(domain.CodeValidation, "display_name must be at least 2 characters", nil)
	}
	if utf8.RuneCountInString(trimmedName) > 100 {
		return domain.NewAppError(domain.CodeValidation, "display_name must be at most 100 characters", nil)
	}

	trimmedEmail := strings.TrimSpace(email)
	if trimmedEmail == "" {
		return domain.NewAppError(domain.CodeValidation, "email is required", nil)
	}
	if _, err := mail.ParseAddress(trimmedEmail); err != nil {
		return domain.NewAppError(domain.CodeValidation, "email must be a valid email address", nil)
	}
	return nil
}

// validatePassword enforces the minimum password policy.
func validatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < 8 {
		return domain.NewAppError(domain.CodeValidation, "password must be at least 8 characters", nil)
	}
	if len(pw) > 72 { // bcrypt input limit
		return domain.NewAppError(domain.CodeValidation, "password must be at most 72 bytes", nil)
	}
	return nil
}

// verificationCode returns a random six-digit code.
func verificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
