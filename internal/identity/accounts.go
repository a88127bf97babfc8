package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ashureev/replycraft/internal/apperr"
	"github.com/ashureev/replycraft/internal/domain"
	"github.com/ashureev/replycraft/internal/shared"
	"github.com/ashureev/replycraft/internal/store"
)

// bcrypt only looks at the first 72 bytes of a password.
const maxPasswordBytes = 72

// Accounts registers and authenticates users.
type Accounts struct {
	repo store.Repository
	cost int
	now  func() time.Time
}

// NewAccounts creates an account service using bcrypt's default cost.
func NewAccounts(repo store.Repository) *Accounts {
	return &Accounts{repo: repo, cost: bcrypt.DefaultCost, now: time.Now}
}

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates a user with a hashed password.
func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	name := shared.SanitizeInput(in.Name)
	if email == "" || in.Password == "" || name == "" {
		return nil, apperr.Newf(apperr.KindValidation, "Missing required fields")
	}
	if !shared.ValidEmail(email) {
		return nil, apperr.Newf(apperr.KindValidation, "Invalid email format")
	}
	if msg := shared.ValidatePassword(in.Password); msg != "" {
		return nil, apperr.Newf(apperr.KindValidation, "%s", msg)
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, apperr.Newf(apperr.KindValidation, "Password must be at most %d bytes", maxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.cost)
	if err != nil {
		return nil, apperr.New(apperr.KindServer, fmt.Errorf("hash password: %w", err))
	}

	now := a.now()
	user := &domain.User{
		UserID:       uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.Newf(apperr.KindConflict, "Email already registered")
		}
		return nil, apperr.New(apperr.KindServer, fmt.Errorf("create user: %w", err))
	}
	return user, nil
}

// Login checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (a *Accounts) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Newf(apperr.KindValidation, "Missing credentials")
	}

	user, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.New(apperr.KindServer, fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return nil, apperr.Newf(apperr.KindUnauthorized, "Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Newf(apperr.KindUnauthorized, "Invalid credentials")
	}
	return user, nil
}

// User returns the account for userID, or an unauthorized error if it no
// longer exists.
func (a *Accounts) User(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindUnauthorized, nil)
	}
	user, err := a.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, apperr.New(apperr.KindServer, fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return nil, apperr.New(apperr.KindUnauthorized, nil)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
