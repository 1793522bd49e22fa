package services

import (
	"context"
	"fmt"

	"github.com/booklend/apiserver/types"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context) ([]types.User, error)
	Get(ctx context.Context, id string) (types.User, error)
	GetByName(ctx context.Context, name string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id string) error
}

// UserService encapsulates account and credential use-cases. Raw passwords
// never leave this service; only bcrypt hashes are stored.
type UserService struct {
	repo   UserRepository
	logger *zap.Logger
}

func NewUserService(repo UserRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, logger: logger}
}

// Register creates an active, non-superuser account. Name and email
// uniqueness is enforced by the store.
func (s *UserService) Register(ctx context.Context, name, email, rawPassword string) (types.User, error) {
	input := struct {
		Name     string
		Email    string
		Password string
	}{name, email, rawPassword}

	err := validation.ValidateStruct(&input,
		validation.Field(&input.Name, validation.Required),
		validation.Field(&input.Email, validation.Required, is.Email),
		validation.Field(&input.Password, validation.Required),
	)
	if err != nil {
		return types.User{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	hash, err := HashPassword(rawPassword)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  false,
	})
	if err != nil {
		return types.User{}, err
	}

	s.logger.Info("registered user", zap.String("user_id", user.ID))
	return user, nil
}

// Authenticate verifies credentials and returns the identity claim used for
// token issuance. Unknown email yields store.ErrNotFound, a hash mismatch
// ErrUnauthorized, and a deactivated account ErrUserInactive.
func (s *UserService) Authenticate(ctx context.Context, email, rawPassword string) (types.Identity, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return types.Identity{}, err
	}

	if !VerifyPassword(rawPassword, user.PasswordHash) {
		return types.Identity{}, ErrUnauthorized
	}

	if !user.IsActive {
		return types.Identity{}, ErrUserInactive
	}

	return types.Identity{
		ID:          user.ID,
		Email:       user.Email,
		IsSuperuser: user.IsSuperuser,
	}, nil
}

// UserUpdate carries the mutable account fields. Nil fields are left as-is.
type UserUpdate struct {
	Name        *string
	Email       *string
	Password    *string
	IsActive    *bool
	IsSuperuser *bool
}

func (s *UserService) Update(ctx context.Context, id string, update UserUpdate) (types.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Email != nil {
		if err := validation.Validate(*update.Email, validation.Required, is.Email); err != nil {
			return types.User{}, fmt.Errorf("%w: email: %v", ErrValidation, err)
		}
		user.Email = *update.Email
	}
	if update.Password != nil {
		hash, err := HashPassword(*update.Password)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = hash
	}
	if update.IsActive != nil {
		user.IsActive = *update.IsActive
	}
	if update.IsSuperuser != nil {
		user.IsSuperuser = *update.IsSuperuser
	}

	return s.repo.Update(ctx, user)
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) Get(ctx context.Context, id string) (types.User, error) {
	return s.repo.Get(ctx, id)
}

func (s *UserService) GetByName(ctx context.Context, name string) (types.User, error) {
	return s.repo.GetByName(ctx, name)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// HashPassword derives a one-way bcrypt hash from a raw password.
func HashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a raw password against a stored hash.
func VerifyPassword(raw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}
