package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/huonghan/storefront/internal/apperror"
	"github.com/huonghan/storefront/internal/notification"
	"github.com/huonghan/storefront/internal/session"
)

// Manager issues and redeems challenges.
type Manager struct {
	notifier notification.Notifier
	logger   *slog.Logger
	ttl      time.Duration
	appName  string
	now      func() time.Time
	codes    func() (string, error)
}

// Option customises a Manager.
type Option func(*Manager)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCodeSource replaces the random code generator.
func WithCodeSource(codes func() (string, error)) Option {
	return func(m *Manager) { m.codes = codes }
}

// WithAppName sets the shop name used in mail subjects.
func WithAppName(name string) Option {
	return func(m *Manager) { m.appName = name }
}

// NewManager builds a Manager delivering codes through notifier.
func NewManager(notifier notification.Notifier, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		notifier: notifier,
		logger:   logger,
		ttl:      DefaultTTL,
		appName:  "Storefront",
		now:      time.Now,
		codes:    RandomCode,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the validity window of issued codes.
func (m *Manager) TTL() time.Duration { return m.ttl }

// IssueRequest describes a new challenge.
type IssueRequest struct {
	Purpose         Purpose
	UserID          string
	Email           string
	NewPasswordHash string
}

// Issue stores a new challenge for req.Purpose, replacing any pending one, and
// mails the code to req.Email. If the mail cannot be sent the challenge is
// removed again and ErrDelivery is returned.
func (m *Manager) Issue(ctx context.Context, store session.Store, req IssueRequest) (Challenge, error) {
	code, err := m.codes()
	if err != nil {
		return Challenge{}, fmt.Errorf("generate code: %w", err)
	}

	now := m.now().UTC()
	ch := Challenge{
		UserID:          req.UserID,
		Email:           req.Email,
		Code:            code,
		Purpose:         req.Purpose,
		CreatedAt:       now,
		ExpiresAt:       now.Add(m.ttl),
		NewPasswordHash: req.NewPasswordHash,
	}

	payload, err := json.Marshal(ch)
	if err != nil {
		return Challenge{}, fmt.Errorf("encode challenge: %w", err)
	}
	key := sessionKey(req.Purpose)
	if err := store.Set(ctx, key, payload); err != nil {
		return Challenge{}, apperror.Persistence(fmt.Errorf("store challenge: %w", err))
	}

	if err := m.notifier.Send(ctx, m.message(ch)); err != nil {
		if delErr := store.Delete(ctx, key); delErr != nil {
			m.logger.Error("otp rollback failed", slog.String("purpose", string(req.Purpose)), slog.Any("error", delErr))
		}
		m.logger.Warn("otp delivery failed",
			slog.String("purpose", string(req.Purpose)),
			slog.String("user_id", req.UserID),
			slog.Any("error", err),
		)
		return Challenge{}, fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	m.logger.Info("otp issued",
		slog.String("purpose", string(req.Purpose)),
		slog.String("user_id", req.UserID),
		slog.Time("expires_at", ch.ExpiresAt),
	)
	return ch, nil
}

// Verify redeems code for purpose. A correct code consumes the challenge.
func (m *Manager) Verify(ctx context.Context, store session.Store, purpose Purpose, code string) (Challenge, error) {
	return m.Redeem(ctx, store, purpose, code, nil)
}

// Redeem checks code against the pending challenge and, on a match, runs
// commit. The challenge is consumed only if commit returns nil, so a commit
// failure leaves the code usable until it expires.
//
// Outcomes: ErrNotFound when nothing is pending; ErrExpired (challenge
// deleted); ErrMismatch (challenge kept); otherwise commit's error.
func (m *Manager) Redeem(ctx context.Context, store session.Store, purpose Purpose, code string, commit func(Challenge) error) (Challenge, error) {
	ch, err := m.load(ctx, store, purpose)
	if err != nil {
		return Challenge{}, err
	}

	key := sessionKey(purpose)
	if ch.Expired(m.now()) {
		if err := store.Delete(ctx, key); err != nil {
			return Challenge{}, apperror.Persistence(fmt.Errorf("discard expired challenge: %w", err))
		}
		return Challenge{}, ErrExpired
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(ch.Code)) != 1 {
		return Challenge{}, ErrMismatch
	}

	if commit != nil {
		if err := commit(ch); err != nil {
			return Challenge{}, err
		}
	}

	if err := store.Delete(ctx, key); err != nil {
		return Challenge{}, apperror.Persistence(fmt.Errorf("consume challenge: %w", err))
	}
	return ch, nil
}

// Pending returns the stored challenge without checking expiry or consuming it.
func (m *Manager) Pending(ctx context.Context, store session.Store, purpose Purpose) (Challenge, error) {
	return m.load(ctx, store, purpose)
}

// Discard drops any challenge pending for purpose.
func (m *Manager) Discard(ctx context.Context, store session.Store, purpose Purpose) error {
	if err := store.Delete(ctx, sessionKey(purpose)); err != nil {
		return apperror.Persistence(err)
	}
	return nil
}

func (m *Manager) load(ctx context.Context, store session.Store, purpose Purpose) (Challenge, error) {
	raw, err := store.Get(ctx, sessionKey(purpose))
	if errors.Is(err, session.ErrNotFound) {
		return Challenge{}, ErrNotFound
	}
	if err != nil {
		return Challenge{}, apperror.Persistence(fmt.Errorf("load challenge: %w", err))
	}
	var ch Challenge
	if err := json.Unmarshal(raw, &ch); err != nil || ch.Purpose != purpose {
		// An unreadable slot is treated as empty and cleared.
		if delErr := store.Delete(ctx, sessionKey(purpose)); delErr != nil {
			m.logger.Warn("clear unreadable otp slot", slog.String("purpose", string(purpose)), slog.Any("error", delErr))
		}
		return Challenge{}, ErrNotFound
	}
	return ch, nil
}

func (m *Manager) message(ch Challenge) notification.Message {
	kind, subject, action := notification.KindResetPasswordOTP, "Password reset verification code", "reset your password"
	if ch.Purpose == PurposeChangePassword {
		kind, subject, action = notification.KindChangePasswordOTP, "Password change verification code", "change your password"
	}
	return notification.Message{
		Kind:        kind,
		Destination: ch.Email,
		Subject:     fmt.Sprintf("%s - %s", m.appName, subject),
		Body: fmt.Sprintf("<p>Your code to %s is: <strong>%s</strong></p>\n<p>The code is valid for %s.</p>",
			action, ch.Code, humanDuration(m.ttl)),
	}
}

// RandomCode returns a uniformly distributed CodeLength-digit code, zero padded.
func RandomCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

func humanDuration(d time.Duration) string {
	if d%time.Minute == 0 {
		minutes := int(d / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return d.String()
}
