package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumashop/lumashop/internal/cart"
	"github.com/lumashop/lumashop/internal/db"
	"github.com/lumashop/lumashop/internal/logging"
	"github.com/lumashop/lumashop/internal/models"
	"github.com/lumashop/lumashop/internal/observability"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username is already taken")
)

// AccountState is the visitor session as seen by sign-up and sign-in.
type AccountState interface {
	cart.State
	BindUser(user *models.User)
}

type AccountStore interface {
	CreateUserWithCompanions(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, userID int64) (*models.User, error)
	GetMirror(ctx context.Context, userID int64) (string, error)
}

type RegisterInput struct {
	Username  string `json:"username" validate:"required,max=150"`
	Email     string `json:"email" validate:"required,email,max=254"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

type AccountService struct {
	accounts AccountStore
	carts    *cart.Engine
	hashCost int
	logger   *slog.Logger
}

func NewAccountService(accounts AccountStore, carts *cart.Engine, logger *slog.Logger) *AccountService {
	return &AccountService{
		accounts: accounts,
		carts:    carts,
		hashCost: bcrypt.DefaultCost,
		logger:   logger,
	}
}

func (s *AccountService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger).With("component", "account")
}

// Register creates the user together with its profile and shipping address,
// then signs the new user in on st.
func (s *AccountService) Register(ctx context.Context, st AccountState, input RegisterInput) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.TrimSpace(input.Email),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: string(hash),
	}
	if err := s.accounts.CreateUserWithCompanions(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	observability.Count(ctx, "account.registered")
	s.loggerFromContext(ctx).Info("account registered", "user_id", user.ID)

	s.signIn(ctx, st, user)
	return user, nil
}

// Login checks the credentials, binds the user to st and merges the cart
// saved on the profile into the session cart. Entries already in the session
// keep their quantities.
func (s *AccountService) Login(ctx context.Context, st AccountState, username, password string) (*models.User, error) {
	user, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.signIn(ctx, st, user)
	return user, nil
}

// IsStaff reports whether the account still holds staff rights. A deleted
// account is not staff.
func (s *AccountService) IsStaff(ctx context.Context, userID int64) (bool, error) {
	user, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load account: %w", err)
	}
	return user.IsStaff, nil
}

func (s *AccountService) signIn(ctx context.Context, st AccountState, user *models.User) {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	st.BindUser(user)
	st.MarkModified()

	mirror, err := s.accounts.GetMirror(ctx, user.ID)
	if err != nil {
		meter.Count("cart.merge.failed", 1, sentry.WithAttributes(attribute.String("reason", "mirror_read_failed")))
		logger.Warn("failed to read saved cart", "error", err, "user_id", user.ID)
		return
	}
	if mirror == "" {
		return
	}

	if err := s.carts.MergeMirror(ctx, st, mirror); err != nil {
		meter.Count("cart.merge.failed", 1, sentry.WithAttributes(attribute.String("reason", "merge_failed")))
		logger.Warn("failed to merge saved cart", "error", err, "user_id", user.ID)
		return
	}
	logger.Debug("merged saved cart", "user_id", user.ID, "size", s.carts.Size(st))
}
