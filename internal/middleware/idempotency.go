package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v1:"
	inProgressMarker     = "__in_progress__"
	replayStoreTimeout   = 2 * time.Second
)

// replay is a finished response kept for a later request with the same key.
type replay struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body"`
}

// replayStore holds reservations and finished responses in Redis.
type replayStore struct {
	cache *redis.Client
	ttl   time.Duration
}

// reserve claims key for the current request. It returns the stored replay
// when the key already finished, or errInFlight while another request holds it.
func (s replayStore) reserve(key string) (*replay, error) {
	ctx, cancel := context.WithTimeout(context.Background(), replayStoreTimeout)
	defer cancel()

	claimed, err := s.cache.SetNX(ctx, key, inProgressMarker, s.ttl).Result()
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, nil
	}

	raw, err := s.cache.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Released between SETNX and GET; the caller may simply retry.
		return nil, errInFlight
	}
	if err != nil {
		return nil, err
	}
	if string(raw) == inProgressMarker {
		return nil, errInFlight
	}
	var r replay
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s replayStore) save(key string, r replay) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), replayStoreTimeout)
	defer cancel()
	return s.cache.Set(ctx, key, payload, s.ttl).Err()
}

func (s replayStore) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), replayStoreTimeout)
	defer cancel()
	s.cache.Del(ctx, key)
}

var errInFlight = errors.New("duplicate request currently processing")

// Idempotency replays the stored response for a repeated Idempotency-Key on
// unsafe methods. Requests without the header, or without a Redis client,
// pass straight through. Keys are scoped to the signed-in user, and only
// non-5xx responses are kept.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	store := replayStore{cache: cache, ttl: ttl}
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}
		header := c.Get(idempotencyKeyHeader)
		if header == "" || cache == nil {
			return c.Next()
		}
		key := idempotencyPrefix + UserID(c) + ":" + header

		previous, err := store.reserve(key)
		switch {
		case errors.Is(err, errInFlight):
			return fiber.NewError(http.StatusConflict, err.Error())
		case err != nil:
			logger.Error("idempotency reservation failed", slog.String("key", header), slog.Any("error", err))
			return fiber.NewError(http.StatusServiceUnavailable, "idempotency store unavailable")
		case previous != nil:
			if previous.ContentType != "" {
				c.Set(fiber.HeaderContentType, previous.ContentType)
			}
			return c.Status(previous.Status).Send(previous.Body)
		}

		if err := c.Next(); err != nil {
			store.release(key)
			return err
		}

		status := c.Response().StatusCode()
		if status >= http.StatusInternalServerError {
			store.release(key)
			return nil
		}
		finished := replay{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		if err := store.save(key, finished); err != nil {
			logger.Warn("idempotent response not stored", slog.String("key", header), slog.Any("error", err))
			store.release(key)
		}
		return nil
	}
}
