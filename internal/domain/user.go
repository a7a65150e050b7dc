package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system.
type User struct {
	Model
	DisplayName      string        `gorm:"size:255;not null;default:user" json:"display_name"`
	PasswordHash     string        `gorm:"size:255;not null" json:"-"`
	Email            string        `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PhoneNumber      *string       `gorm:"size:255;uniqueIndex" json:"phone_number"`
	AvatarURL        *string       `gorm:"type:text" json:"avatar_url"`
	IsVerified       bool          `gorm:"not null;default:false;index" json:"is_verified"`
	VerificationCode *string       `gorm:"size:255" json:"-"`
	Sessions         []UserSession `gorm:"foreignKey:UserID" json:"sessions,omitempty"`
}

// UserSession represents a persisted refresh-token session for a user.
type UserSession struct {
	Model
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	RefreshToken string    `gorm:"type:text;uniqueIndex;not null" json:"-"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	User         *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// UserRepository defines the data access interface for users.
type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	GetIncludingSoftDeleted(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, params ListParams) (*ListResult[User], error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User, changes map[string]any) (*User, error)
	Patch(ctx context.Context, user *User, changes map[string]any) (*User, error)
	Remove(ctx context.Context, id uuid.UUID) (*User, error)
	Restore(ctx context.Context, id uuid.UUID) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Clone(ctx context.Context, id uuid.UUID, overrides map[string]any) (*User, error)
	BatchCreate(ctx context.Context, users []*User) error
}

// UserService defines the business logic interface for users.
type UserService interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ListUsers(ctx context.Context, params ListParams) (*ListResult[User], error)
	UpdateUser(ctx context.Context, id uuid.UUID, changes map[string]any) (*User, error)
	PatchUser(ctx context.Context, id uuid.UUID, changes map[string]any) (*User, error)
	RemoveUser(ctx context.Context, id uuid.UUID) (*User, error)
	RestoreUser(ctx context.Context, id uuid.UUID) (*User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	CloneUser(ctx context.Context, id uuid.UUID, overrides map[string]any) (*User, error)
	BatchCreateUsers(ctx context.Context, in []CreateUserInput) ([]*User, error)
	SetAvatar(ctx context.Context, id uuid.UUID, url string) (*User, error)
}

// CreateUserInput carries the fields accepted when creating a user.
type CreateUserInput struct {
	DisplayName string
	Email       string
	Password    string
	PhoneNumber *string
}
