package user

import (
	"context"

	"gorm.io/gorm"

	"github.com/felix-phuctran/base-be-go/internal/domain"
	"github.com/felix-phuctran/base-be-go/internal/query"
	"github.com/felix-phuctran/base-be-go/internal/repository"
)

// userRepository implements domain.UserRepository on top of the generic CRUD
// base, adding the email lookup.
type userRepository struct {
	*repository.CRUD[domain.User]
}

// NewUserRepository creates a user repository bound to the registered user
// schema.
func NewUserRepository(db *gorm.DB, schema *query.Schema) domain.UserRepository {
	return &userRepository{CRUD: repository.NewCRUD[domain.User](db, schema)}
}

// Create inserts a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.CRUD.Create(ctx, user)
	return err
}

// GetByEmail returns the active user with the given email, or nil.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.GetOneBy(ctx, map[string]any{"email": email})
}

// List returns a filtered, ordered page of users plus the total count.
func (r *userRepository) List(ctx context.Context, params domain.ListParams) (*domain.ListResult[domain.User], error) {
	return r.GetMultiBy(ctx, params)
}

// BatchCreate inserts the given users atomically.
func (r *userRepository) BatchCreate(ctx context.Context, users []*domain.User) error {
	return r.BatchInsertWithObjects(ctx, users)
}
