package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/huonghan/storefront/internal/apperror"
	"github.com/huonghan/storefront/internal/identity"
	"github.com/huonghan/storefront/internal/otp"
	"github.com/huonghan/storefront/internal/session"
)

var (
	// ErrWrongCurrentPassword rejects a change request whose current password does not verify.
	ErrWrongCurrentPassword = apperror.New(apperror.KindAuthentication, "current password is incorrect")
	// ErrNoEligibleAccount is deliberately vague so a reset request cannot probe for accounts.
	ErrNoEligibleAccount = apperror.New(apperror.KindNotEligible, "email not found or account is not eligible")
)

// Service runs the OTP-gated password change and password reset flows.
// Credentials are only written after every check of a flow has passed.
type Service struct {
	users  identity.Repository
	hasher identity.Hasher
	otp    *otp.Manager
	logger *slog.Logger
}

// NewService wires the credential pipeline.
func NewService(users identity.Repository, hasher identity.Hasher, otpManager *otp.Manager, logger *slog.Logger) *Service {
	return &Service{users: users, hasher: hasher, otp: otpManager, logger: logger}
}

// ChangeInput is the authenticated change-password form.
type ChangeInput struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// ResetInput is the second step of the forgotten-password flow.
type ResetInput struct {
	Code            string
	NewPassword     string
	ConfirmPassword string
}

// RequestChange checks the current password and the new one, hashes the new
// password and mails a change-password code. The plaintext never reaches the
// session.
func (s *Service) RequestChange(ctx context.Context, store session.Store, userID string, in ChangeInput) (otp.Challenge, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return otp.Challenge{}, err
	}

	if !user.HasPassword() || !s.hasher.Verify(in.CurrentPassword, user.PasswordHash) {
		return otp.Challenge{}, ErrWrongCurrentPassword
	}
	if err := identity.ValidateNewPassword(in.NewPassword, in.ConfirmPassword); err != nil {
		return otp.Challenge{}, err
	}

	digest, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return otp.Challenge{}, fmt.Errorf("hash new password: %w", err)
	}

	return s.otp.Issue(ctx, store, otp.IssueRequest{
		Purpose:         otp.PurposeChangePassword,
		UserID:          user.ID,
		Email:           user.Email,
		NewPasswordHash: digest,
	})
}

// ConfirmChange redeems a change-password code and stores the digest computed
// at request time.
func (s *Service) ConfirmChange(ctx context.Context, store session.Store, code string) error {
	ch, err := s.otp.Redeem(ctx, store, otp.PurposeChangePassword, code, func(ch otp.Challenge) error {
		return s.commit(ctx, ch.UserID, ch.NewPasswordHash)
	})
	if errors.Is(err, identity.ErrUserNotFound) {
		s.discard(ctx, store, otp.PurposeChangePassword)
		return err
	}
	if err != nil {
		return err
	}

	s.logger.Info("password changed", slog.String("user_id", ch.UserID))
	return nil
}

// RequestReset mails a reset-password code to email if it belongs to an
// account with a local password. It returns the address the code went to.
func (s *Service) RequestReset(ctx context.Context, store session.Store, email string) (string, error) {
	user, err := s.users.FindByEmail(ctx, identity.NormalizeEmail(email))
	if errors.Is(err, identity.ErrUserNotFound) {
		return "", ErrNoEligibleAccount
	}
	if err != nil {
		return "", err
	}
	if !user.HasPassword() {
		return "", ErrNoEligibleAccount
	}

	ch, err := s.otp.Issue(ctx, store, otp.IssueRequest{
		Purpose: otp.PurposeResetPassword,
		UserID:  user.ID,
		Email:   user.Email,
	})
	if err != nil {
		return "", err
	}
	return ch.Email, nil
}

// ConfirmReset redeems a reset-password code and sets the new password. The
// code is checked before the password fields; a password validation error
// keeps the code pending.
func (s *Service) ConfirmReset(ctx context.Context, store session.Store, in ResetInput) (string, error) {
	ch, err := s.otp.Redeem(ctx, store, otp.PurposeResetPassword, in.Code, func(ch otp.Challenge) error {
		if err := identity.ValidateNewPassword(in.NewPassword, in.ConfirmPassword); err != nil {
			return err
		}
		digest, err := s.hasher.Hash(in.NewPassword)
		if err != nil {
			return fmt.Errorf("hash new password: %w", err)
		}
		return s.commit(ctx, ch.UserID, digest)
	})
	if errors.Is(err, identity.ErrUserNotFound) {
		s.discard(ctx, store, otp.PurposeResetPassword)
		return "", err
	}
	if err != nil {
		return "", err
	}

	s.logger.Info("password reset", slog.String("user_id", ch.UserID))
	return ch.Email, nil
}

// PendingEmail returns the address a pending code of purpose was sent to.
func (s *Service) PendingEmail(ctx context.Context, store session.Store, purpose otp.Purpose) (string, error) {
	ch, err := s.otp.Pending(ctx, store, purpose)
	if err != nil {
		return "", err
	}
	return ch.Email, nil
}

func (s *Service) commit(ctx context.Context, userID, digest string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	user.SetPasswordHash(digest)
	return s.users.Save(ctx, user)
}

func (s *Service) discard(ctx context.Context, store session.Store, purpose otp.Purpose) {
	if err := s.otp.Discard(ctx, store, purpose); err != nil {
		s.logger.Warn("discard challenge", slog.String("purpose", string(purpose)), slog.Any("error", err))
	}
}
