// Package otp issues and redeems short-lived one-time codes held in the
// caller's session. Each purpose has its own slot, so a password change and a
// password reset can be pending in the same session at once. Expiry is checked
// when a code is redeemed; nothing sweeps stale challenges.
package otp

import (
	"time"

	"github.com/huonghan/storefront/internal/apperror"
)

// Purpose names the workflow a challenge belongs to.
type Purpose string

const (
	PurposeChangePassword Purpose = "change-password"
	PurposeResetPassword  Purpose = "reset-password"
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 60 * time.Second

// CodeLength is the number of decimal digits in a code.
const CodeLength = 6

var (
	// ErrNotFound means no challenge is pending for the purpose; restart at the issuance step.
	ErrNotFound = apperror.New(apperror.KindOTP, "no verification code is pending, please request a new one")
	// ErrExpired means the challenge timed out and was discarded.
	ErrExpired = apperror.New(apperror.KindOTP, "the verification code has expired, please request a new one")
	// ErrMismatch means the submitted code was wrong; the challenge stays pending.
	ErrMismatch = apperror.New(apperror.KindOTP, "the verification code is incorrect")
	// ErrDelivery means the code could not be sent and nothing was left pending.
	ErrDelivery = apperror.New(apperror.KindDelivery, "could not send the verification code, please try again")
)

// Challenge is the server-held record of an issued code.
// NewPasswordHash is only set for PurposeChangePassword.
type Challenge struct {
	UserID          string    `json:"userId"`
	Email           string    `json:"email"`
	Code            string    `json:"code"`
	Purpose         Purpose   `json:"purpose"`
	CreatedAt       time.Time `json:"createdAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
	NewPasswordHash string    `json:"newPasswordHash,omitempty"`
}

// Expired reports whether the challenge is past its expiry at now.
func (c Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

func sessionKey(p Purpose) string {
	return "otp:" + string(p)
}
