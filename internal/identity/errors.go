package identity

import "github.com/huonghan/storefront/internal/apperror"

var (
	// ErrUserNotFound is returned by repositories when no user matches.
	ErrUserNotFound = apperror.New(apperror.KindNotFound, "user not found")
	// ErrEmailTaken is returned when registering an email owned by a non-guest account.
	ErrEmailTaken = apperror.New(apperror.KindConflict, "email is already in use")
	// ErrInvalidLogin never says which of email or password was wrong.
	ErrInvalidLogin = apperror.New(apperror.KindAuthentication, "invalid email or password")
	// ErrPasswordTooShort rejects new passwords below MinPasswordLength.
	ErrPasswordTooShort = apperror.New(apperror.KindValidation, "new password must be at least 6 characters")
	// ErrPasswordTooLong rejects passwords bcrypt cannot hash.
	ErrPasswordTooLong = apperror.New(apperror.KindValidation, "new password must be at most 72 bytes")
	// ErrPasswordMismatch rejects a confirmation that differs from the new password.
	ErrPasswordMismatch = apperror.New(apperror.KindValidation, "password confirmation does not match")
	// ErrEmailRequired rejects registration without an email.
	ErrEmailRequired = apperror.New(apperror.KindValidation, "email is required")
)
