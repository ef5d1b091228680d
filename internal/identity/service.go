package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service manages account registration and password login.
type Service struct {
	repo   Repository
	hasher Hasher
}

// NewService creates a new identity service.
func NewService(repo Repository, hasher Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// RegisterInput is the sign-up form. The address becomes the first and
// default entry of the new address book.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Line1    string
	City     string
}

// Register creates a local account. An existing guest record with the same
// email is upgraded in place; any other existing account is a conflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	email := NormalizeEmail(in.Email)
	if email == "" {
		return User{}, ErrEmailRequired
	}
	if len(in.Password) < MinPasswordLength {
		return User{}, ErrPasswordTooShort
	}
	if len(in.Password) > MaxPasswordLength {
		return User{}, ErrPasswordTooLong
	}

	existing, lookupErr := s.repo.FindByEmail(ctx, email)
	found := lookupErr == nil
	switch {
	case found && !existing.IsGuest:
		return User{}, ErrEmailTaken
	case !found && !errors.Is(lookupErr, ErrUserNotFound):
		return User{}, lookupErr
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	first := Address{
		ID:        NewAddressID(),
		FullName:  in.FullName,
		Phone:     in.Phone,
		Line1:     in.Line1,
		City:      in.City,
		IsDefault: true,
	}

	if found {
		user := existing
		user.SetPasswordHash(hash)
		user.FullName = in.FullName
		user.Provider = ProviderLocal
		for i := range user.Addresses {
			user.Addresses[i].IsDefault = false
		}
		user.Addresses = append(user.Addresses, first)
		snapshot := first
		user.DefaultAddress = &snapshot
		if err := s.repo.Save(ctx, user); err != nil {
			return User{}, err
		}
		return user, nil
	}

	now := time.Now().UTC()
	snapshot := first
	user := User{
		ID:             uuid.NewString(),
		Email:          email,
		PasswordHash:   hash,
		FullName:       in.FullName,
		Role:           RoleCustomer,
		Provider:       ProviderLocal,
		Addresses:      []Address{first},
		DefaultAddress: &snapshot,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate verifies an email and password pair. Unknown emails, accounts
// without a local credential and wrong passwords all yield ErrInvalidLogin.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidLogin
	}
	if err != nil {
		return User{}, err
	}
	if !user.HasPassword() || !s.hasher.Verify(password, user.PasswordHash) {
		return User{}, ErrInvalidLogin
	}
	return user, nil
}

// Get loads a user by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// PreferredAddress returns the default-address snapshot, falling back to the
// flagged entry of the address book.
func PreferredAddress(u User) *Address {
	if u.DefaultAddress != nil {
		return u.DefaultAddress
	}
	for i := range u.Addresses {
		if u.Addresses[i].IsDefault {
			a := u.Addresses[i]
			return &a
		}
	}
	return nil
}
