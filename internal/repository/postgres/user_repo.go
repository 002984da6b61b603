package postgres

import (
	"context"
	"errors"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository implements domain.UserRepository using PostgreSQL
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, auth_id, access_url, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var accessURL pgtype.Text
	var updatedAt pgtype.Timestamptz
	if err := row.Scan(&u.ID, &u.AuthID, &accessURL, &u.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	u.AccessURL = textToPtr(accessURL)
	if updatedAt.Valid {
		u.UpdatedAt = &updatedAt.Time
	}
	return &u, nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	row := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetByAuthID retrieves a user by its external auth subject
func (r *UserRepository) GetByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	row := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE auth_id = $1`, authID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// EnsureByAuthID returns the user for the auth subject, creating it on first sight
func (r *UserRepository) EnsureByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO users (auth_id)
		VALUES ($1)
		ON CONFLICT (auth_id) DO UPDATE SET auth_id = EXCLUDED.auth_id
		RETURNING `+userColumns,
		authID)
	return scanUser(row)
}

// UpdateAccessURL stores the aggregator access URL for a user
func (r *UserRepository) UpdateAccessURL(ctx context.Context, userID int32, accessURL string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE users SET access_url = $1, updated_at = now() WHERE id = $2`,
		accessURL, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
