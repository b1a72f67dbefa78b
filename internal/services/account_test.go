package services

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/lumashop/lumashop/internal/session"
)

func newTestAccountService(accounts *fakeAccounts) *AccountService {
	service := NewAccountService(accounts, newEngine(newFakeCatalog(product(1, "Lamp", "10.00")), accounts), nil)
	service.hashCost = bcrypt.MinCost
	return service
}

func TestRegisterCreatesAccountAndSignsIn(t *testing.T) {
	t.Parallel()

	accounts := newFakeAccounts()
	service := newTestAccountService(accounts)
	st := &session.Data{}

	user, err := service.Register(context.Background(), st, RegisterInput{
		Username: " ada ",
		Email:    "ada@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Username != "ada" || user.PasswordHash == "correct horse" {
		t.Fatalf("unexpected user %+v", user)
	}
	if id, ok := st.AuthenticatedUserID(); !ok || id != user.ID {
		t.Fatalf("expected session bound to new user")
	}
	if address, _ := accounts.GetShippingAddress(context.Background(), user.ID); address == nil {
		t.Fatalf("expected shipping address created with the account")
	}

	if _, err := service.Register(context.Background(), &session.Data{}, RegisterInput{Username: "ada", Password: "another one"}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	accounts := newFakeAccounts()
	service := newTestAccountService(accounts)
	if _, err := service.Register(context.Background(), &session.Data{}, RegisterInput{Username: "ada", Password: "correct horse"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "unknown user", username: "bob", password: "correct horse"},
		{name: "wrong password", username: "ada", password: "battery staple"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := &session.Data{}
			if _, err := service.Login(context.Background(), st, tt.username, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
			if _, ok := st.AuthenticatedUserID(); ok {
				t.Fatalf("expected session to stay anonymous")
			}
		})
	}
}

func TestLoginMergesSavedCartWithSessionPrecedence(t *testing.T) {
	t.Parallel()

	accounts := newFakeAccounts()
	service := newTestAccountService(accounts)
	ctx := context.Background()

	user, err := service.Register(ctx, &session.Data{}, RegisterInput{Username: "ada", Password: "correct horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := accounts.SetMirror(ctx, user.ID, `{"1":5,"7":3}`); err != nil {
		t.Fatalf("set mirror: %v", err)
	}

	st := &session.Data{}
	st.CartEntries()["1"] = 2

	if _, err := service.Login(ctx, st, "ada", "correct horse"); err != nil {
		t.Fatalf("login: %v", err)
	}

	entries := st.CartEntries()
	if entries["1"] != 2 {
		t.Fatalf("expected session quantity to win, got %d", entries["1"])
	}
	if entries["7"] != 3 {
		t.Fatalf("expected mirrored entry to be added, got %d", entries["7"])
	}
	if got := accounts.mirror(user.ID); got != `{"1":2,"7":3}` {
		t.Fatalf("expected merged cart written back to mirror, got %q", got)
	}
}

func TestLoginSurvivesCorruptMirror(t *testing.T) {
	t.Parallel()

	accounts := newFakeAccounts()
	service := newTestAccountService(accounts)
	ctx := context.Background()

	user, err := service.Register(ctx, &session.Data{}, RegisterInput{Username: "ada", Password: "correct horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := accounts.SetMirror(ctx, user.ID, `not json`); err != nil {
		t.Fatalf("set mirror: %v", err)
	}

	st := &session.Data{}
	if _, err := service.Login(ctx, st, "ada", "correct horse"); err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}
	if _, ok := st.AuthenticatedUserID(); !ok {
		t.Fatalf("expected session to be signed in")
	}
}

func TestIsStaffReadsCurrentAccount(t *testing.T) {
	t.Parallel()

	accounts := newFakeAccounts()
	service := newTestAccountService(accounts)
	user, err := service.Register(context.Background(), &session.Data{}, RegisterInput{Username: "ada", Password: "correct horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if staff, err := service.IsStaff(context.Background(), user.ID); err != nil || staff {
		t.Fatalf("expected customer account, got staff=%v err=%v", staff, err)
	}

	accounts.users["ada"].IsStaff = true
	if staff, err := service.IsStaff(context.Background(), user.ID); err != nil || !staff {
		t.Fatalf("expected promoted account to be staff, got staff=%v err=%v", staff, err)
	}

	if staff, err := service.IsStaff(context.Background(), 404); err != nil || staff {
		t.Fatalf("expected unknown account to be non-staff, got staff=%v err=%v", staff, err)
	}
}
