package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumashop/lumashop/internal/models"
)

const userColumns = `id, username, email, first_name, last_name, password_hash, is_staff, created_at`

// AccountStore persists users together with their profile and saved
// shipping address.
type AccountStore struct {
	pool *pgxpool.Pool
}

func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// CreateUserWithCompanions inserts the user, an empty profile and an empty
// shipping address in one transaction. A taken username yields ErrDuplicate.
func (s *AccountStore) CreateUserWithCompanions(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}

	return inTx(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (username, email, first_name, last_name, password_hash, is_staff)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`, user.Username, user.Email, user.FirstName, user.LastName, user.PasswordHash, user.IsStaff).
			Scan(&user.ID, &user.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("username %q: %w", user.Username, ErrDuplicate)
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}

		if _, err := tx.Exec(ctx, `INSERT INTO profiles (user_id) VALUES ($1)`, user.ID); err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO shipping_addresses (user_id) VALUES ($1)`, user.ID); err != nil {
			return fmt.Errorf("failed to create shipping address: %w", err)
		}
		return nil
	})
}

func (s *AccountStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, strings.TrimSpace(username)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *AccountStore) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// GetMirror returns the cart mirror stored on the profile, or "" when the
// user has no profile.
func (s *AccountStore) GetMirror(ctx context.Context, userID int64) (string, error) {
	var mirror string
	err := s.pool.QueryRow(ctx, `SELECT last_cart FROM profiles WHERE user_id = $1`, userID).Scan(&mirror)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cart mirror: %w", err)
	}
	return mirror, nil
}

// SetMirror overwrites the cart mirror, creating the profile if it is missing.
func (s *AccountStore) SetMirror(ctx context.Context, userID int64, mirror string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, last_cart, date_modified)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET last_cart = EXCLUDED.last_cart,
		    date_modified = NOW()
	`, userID, mirror)
	if err != nil {
		return fmt.Errorf("failed to write cart mirror: %w", err)
	}
	return nil
}

func (s *AccountStore) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	var profile models.Profile
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, phone, address1, address2, city, zipcode, country, last_cart, date_modified
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(
		&profile.UserID,
		&profile.Phone,
		&profile.Address1,
		&profile.Address2,
		&profile.City,
		&profile.Zipcode,
		&profile.Country,
		&profile.LastCart,
		&profile.DateModified,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("profile for user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &profile, nil
}

// GetShippingAddress returns nil without error when the user has none saved.
func (s *AccountStore) GetShippingAddress(ctx context.Context, userID int64) (*models.ShippingAddress, error) {
	var address models.ShippingAddress
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, shipping_full_name, shipping_email, shipping_address1, shipping_address2,
		       shipping_city, shipping_zipcode, shipping_country
		FROM shipping_addresses
		WHERE user_id = $1
	`, userID).Scan(
		&address.ID,
		&address.UserID,
		&address.FullName,
		&address.Email,
		&address.Address1,
		&address.Address2,
		&address.City,
		&address.Zipcode,
		&address.Country,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load shipping address: %w", err)
	}
	return &address, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.IsStaff,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
