package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/huonghan/storefront/internal/account"
	"github.com/huonghan/storefront/internal/addressbook"
	"github.com/huonghan/storefront/internal/config"
	"github.com/huonghan/storefront/internal/identity"
	"github.com/huonghan/storefront/internal/middleware"
	"github.com/huonghan/storefront/internal/notification"
	"github.com/huonghan/storefront/internal/otp"
	"github.com/huonghan/storefront/internal/session"
)

// Deps aggregates shared dependencies required to wire routes. Nil stores
// fall back to in-memory implementations, which Setup only allows in
// development.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Mongo    *mongo.Database
	Cache    *redis.Client
	Logger   *slog.Logger
	Notifier notification.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil && d.Mongo == nil {
			return fmt.Errorf("a user store is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	users, err := userRepository(d)
	if err != nil {
		return err
	}

	var sessions session.Provider
	if d.Cache != nil {
		sessions = session.NewRedisProvider(d.Cache, d.Cfg.SessionTTL)
	} else {
		sessions = session.NewMemoryProvider()
	}

	notifier := d.Notifier
	if notifier == nil {
		if d.Cfg.SMTP.Enabled() {
			notifier = notification.NewSMTPNotifier(notification.SMTPConfig(d.Cfg.SMTP))
		} else {
			notifier = notification.NewLoggerNotifier(d.Logger)
		}
	}

	hasher := identity.NewBcryptHasher(d.Cfg.BcryptCost)
	otpManager := otp.NewManager(notifier, d.Logger, otp.WithTTL(d.Cfg.OTPTTL), otp.WithAppName(d.Cfg.AppName))
	identitySvc := identity.NewService(users, hasher)
	accountSvc := account.NewService(users, hasher, otpManager, d.Logger)
	addressSvc := addressbook.NewService(users, d.Logger)
	cookies := middleware.NewSessions(sessions, d.Cfg.SessionCookie, d.Cfg.SessionTTL, !d.Cfg.IsDev(), d.Logger)

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)
	app.Get("/api/v1/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	authGroup := app.Group("/auth", cookies.Handler())
	RegisterAuthRoutes(authGroup, identitySvc, cookies, AuthOptions{
		LoginLimiter:    middleware.RateLimit("login", d.Cache, d.Cfg.LoginRate),
		RegisterLimiter: middleware.RateLimit("register", d.Cache, d.Cfg.LoginRate),
		Logger:          d.Logger,
	})
	RegisterAccountRoutes(authGroup, account.NewHandler(accountSvc, d.Logger), middleware.RateLimit("otp", d.Cache, d.Cfg.LoginRate))
	RegisterAddressRoutes(authGroup, addressbook.NewHandler(addressSvc, d.Logger),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))

	return nil
}

func userRepository(d Deps) (identity.Repository, error) {
	switch {
	case d.DB != nil:
		return identity.NewPostgresRepository(d.DB), nil
	case d.Mongo != nil:
		repo := identity.NewMongoRepository(d.Mongo)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return repo, nil
	default:
		return identity.NewMemoryRepository(), nil
	}
}
