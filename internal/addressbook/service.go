// Package addressbook manages a user's shipping addresses and keeps the
// single default address and the user's DefaultAddress copy in step.
package addressbook

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/huonghan/storefront/internal/apperror"
	"github.com/huonghan/storefront/internal/identity"
)

var (
	// ErrAddressNotFound means the key matched neither an id nor a position.
	ErrAddressNotFound = apperror.New(apperror.KindNotFound, "address not found")
	// ErrInvalidAddress rejects an address missing required fields.
	ErrInvalidAddress = apperror.New(apperror.KindValidation, "full name, street and city are required")
)

// Input carries the editable fields of an address.
type Input struct {
	FullName  string `validate:"required,max=120"`
	Phone     string `validate:"max=32"`
	Line1     string `validate:"required,max=255"`
	City      string `validate:"required,max=120"`
	District  string `validate:"max=120"`
	Ward      string `validate:"max=120"`
	IsDefault bool
}

// Service applies address book edits. Every operation loads the user, edits
// it in memory and saves the whole entity; concurrent edits of one user are
// last-writer-wins.
type Service struct {
	users    identity.Repository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService builds an address book service.
func NewService(users identity.Repository, logger *slog.Logger) *Service {
	return &Service{users: users, validate: validator.New(), logger: logger}
}

// List returns the user's addresses and the effective default.
func (s *Service) List(ctx context.Context, userID string) ([]identity.Address, *identity.Address, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user.Addresses, identity.PreferredAddress(user), nil
}

// Add appends an address with a fresh id. A default address replaces the
// previous default.
func (s *Service) Add(ctx context.Context, userID string, in Input) (identity.User, error) {
	if err := s.check(in); err != nil {
		return identity.User{}, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return identity.User{}, err
	}

	addr := identity.Address{ID: identity.NewAddressID()}
	apply(&addr, in)
	user.Addresses = append(user.Addresses, addr)
	if in.IsDefault {
		promote(&user, len(user.Addresses)-1)
	}

	if err := s.users.Save(ctx, user); err != nil {
		return identity.User{}, err
	}
	s.logger.Info("address added", slog.String("user_id", user.ID), slog.String("address_id", addr.ID), slog.Bool("default", in.IsDefault))
	return user, nil
}

// Update overwrites the fields of the address named by key. IsDefault=true
// makes it the only default; false leaves every default flag as it was.
func (s *Service) Update(ctx context.Context, userID, key string, in Input) (identity.User, error) {
	if err := s.check(in); err != nil {
		return identity.User{}, err
	}
	user, ref, err := s.load(ctx, userID, key)
	if err != nil {
		return identity.User{}, err
	}

	apply(&user.Addresses[ref.Index], in)
	switch {
	case in.IsDefault:
		promote(&user, ref.Index)
	case user.Addresses[ref.Index].IsDefault:
		// Still the default: the copy must carry the new fields.
		promote(&user, ref.Index)
	}

	if err := s.users.Save(ctx, user); err != nil {
		return identity.User{}, err
	}
	s.logger.Info("address updated", slog.String("user_id", user.ID), slog.String("key", key), slog.String("resolved_by", ref.By.String()))
	return user, nil
}

// SetDefault makes the address named by key the only default.
func (s *Service) SetDefault(ctx context.Context, userID, key string) (identity.User, error) {
	user, ref, err := s.load(ctx, userID, key)
	if err != nil {
		return identity.User{}, err
	}

	promote(&user, ref.Index)

	if err := s.users.Save(ctx, user); err != nil {
		return identity.User{}, err
	}
	s.logger.Info("default address set", slog.String("user_id", user.ID), slog.String("key", key), slog.String("resolved_by", ref.By.String()))
	return user, nil
}

// Delete removes the address named by key. Removing the default leaves the
// user with no default; no other address is promoted.
func (s *Service) Delete(ctx context.Context, userID, key string) (identity.User, error) {
	user, ref, err := s.load(ctx, userID, key)
	if err != nil {
		return identity.User{}, err
	}

	wasDefault := user.Addresses[ref.Index].IsDefault
	user.Addresses = append(user.Addresses[:ref.Index], user.Addresses[ref.Index+1:]...)
	if wasDefault {
		clearDefault(&user)
	}

	if err := s.users.Save(ctx, user); err != nil {
		return identity.User{}, err
	}
	s.logger.Info("address deleted", slog.String("user_id", user.ID), slog.String("key", key), slog.Bool("was_default", wasDefault))
	return user, nil
}

func (s *Service) load(ctx context.Context, userID, key string) (identity.User, Ref, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return identity.User{}, Ref{}, err
	}
	ref := Resolve(user.Addresses, key)
	if !ref.Found() {
		return identity.User{}, Ref{}, ErrAddressNotFound
	}
	return user, ref, nil
}

func (s *Service) check(in Input) error {
	if err := s.validate.Struct(in); err != nil {
		return ErrInvalidAddress
	}
	return nil
}

func apply(addr *identity.Address, in Input) {
	addr.FullName = in.FullName
	addr.Phone = in.Phone
	addr.Line1 = in.Line1
	addr.City = in.City
	addr.District = in.District
	addr.Ward = in.Ward
}

// promote makes the address at index the only default and refreshes the
// user's DefaultAddress copy. Every change of default goes through here or
// clearDefault.
func promote(user *identity.User, index int) {
	for i := range user.Addresses {
		user.Addresses[i].IsDefault = i == index
	}
	snapshot := user.Addresses[index]
	user.DefaultAddress = &snapshot
}

func clearDefault(user *identity.User) {
	for i := range user.Addresses {
		user.Addresses[i].IsDefault = false
	}
	user.DefaultAddress = nil
}
