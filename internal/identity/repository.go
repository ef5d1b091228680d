package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/huonghan/storefront/internal/apperror"
)

const uniqueViolation = "23505"

// Repository persists users. Save writes the whole entity, addresses included.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Save(ctx context.Context, user User) error
}

// PostgresRepository implements Repository using PostgreSQL. Addresses and the
// default-address snapshot are stored as JSONB columns on the users row.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, password_hash, full_name, role, provider, provider_id, is_guest, addresses, default_address, created_at, updated_at`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return fmt.Errorf("parse user id: %w", err)
	}
	addresses, snapshot, err := encodeAddresses(user)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		userID, user.Email, user.PasswordHash, user.FullName, string(user.Role), string(user.Provider), user.ProviderID,
		user.IsGuest, addresses, snapshot, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return apperror.Persistence(err)
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	return r.scanOne(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

// FindByEmail fetches a user by normalized email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.scanOne(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, NormalizeEmail(email)))
}

// Save overwrites every mutable column of an existing user.
func (r *PostgresRepository) Save(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return ErrUserNotFound
	}
	addresses, snapshot, err := encodeAddresses(user)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET email = $2, password_hash = $3, full_name = $4, role = $5, provider = $6,
        provider_id = $7, is_guest = $8, addresses = $9, default_address = $10, updated_at = $11 WHERE id = $1`,
		userID, user.Email, user.PasswordHash, user.FullName, string(user.Role), string(user.Provider),
		user.ProviderID, user.IsGuest, addresses, snapshot, time.Now().UTC())
	if err != nil {
		return apperror.Persistence(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		role      string
		provider  string
		addresses []byte
		snapshot  []byte
		user      User
	)
	err := row.Scan(&id, &user.Email, &user.PasswordHash, &user.FullName, &role, &provider, &user.ProviderID,
		&user.IsGuest, &addresses, &snapshot, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, apperror.Persistence(err)
	}
	user.ID = id.String()
	user.Role = Role(role)
	user.Provider = Provider(provider)
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	if len(addresses) > 0 {
		if err := json.Unmarshal(addresses, &user.Addresses); err != nil {
			return User{}, apperror.Persistence(fmt.Errorf("decode addresses: %w", err))
		}
	}
	if len(snapshot) > 0 && string(snapshot) != "null" {
		user.DefaultAddress = &Address{}
		if err := json.Unmarshal(snapshot, user.DefaultAddress); err != nil {
			return User{}, apperror.Persistence(fmt.Errorf("decode default address: %w", err))
		}
	}
	return user, nil
}

func encodeAddresses(user User) ([]byte, []byte, error) {
	list := user.Addresses
	if list == nil {
		list = []Address{}
	}
	addresses, err := json.Marshal(list)
	if err != nil {
		return nil, nil, fmt.Errorf("encode addresses: %w", err)
	}
	if user.DefaultAddress == nil {
		return addresses, nil, nil
	}
	snapshot, err := json.Marshal(user.DefaultAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("encode default address: %w", err)
	}
	return addresses, snapshot, nil
}
