package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	domain "github.com/urban-tuxedo/api/internal/domain"
	"github.com/urban-tuxedo/api/internal/platform/auth"
	"github.com/urban-tuxedo/api/internal/repositories"
)

const authMinPasswordLength = 8

var (
	// ErrAuthInvalidInput indicates the caller supplied invalid input parameters.
	ErrAuthInvalidInput = errors.New("auth: invalid input")
	// ErrAuthEmailTaken indicates an account already exists for the email.
	ErrAuthEmailTaken = errors.New("auth: email already registered")
	// ErrAuthInvalidCredentials indicates the email or password did not match.
	ErrAuthInvalidCredentials = errors.New("auth: invalid credentials")
)

type tokenIssuer interface {
	Issue(identity auth.Identity) (string, time.Time, error)
}

// AuthServiceDeps wires the dependencies required by the auth service.
type AuthServiceDeps struct {
	Users       repositories.UserRepository
	Tokens      tokenIssuer
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type authService struct {
	users  repositories.UserRepository
	tokens tokenIssuer
	now    func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

var _ AuthService = (*authService)(nil)

// NewAuthService constructs an AuthService validating required dependencies.
func NewAuthService(deps AuthServiceDeps) (AuthService, error) {
	if deps.Users == nil {
		return nil, errors.New("auth service: user repository is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("auth service: token issuer is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &authService{
		users:  deps.Users,
		tokens: deps.Tokens,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// Register creates an account and returns a signed session for it.
func (s *authService) Register(ctx context.Context, cmd RegisterCommand) (AuthSession, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if email == "" || !strings.Contains(email, "@") {
		return AuthSession{}, fmt.Errorf("%w: a valid email is required", ErrAuthInvalidInput)
	}
	if len(cmd.Password) < authMinPasswordLength {
		return AuthSession{}, fmt.Errorf("%w: password must be at least %d characters", ErrAuthInvalidInput, authMinPasswordLength)
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return AuthSession{}, ErrAuthEmailTaken
	} else if !isRepoNotFound(err) {
		return AuthSession{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthSession{}, fmt.Errorf("auth service: hash password: %w", err)
	}

	user := domain.User{
		ID:           "usr_" + s.newID(),
		Email:        email,
		FirstName:    strings.TrimSpace(cmd.FirstName),
		LastName:     strings.TrimSpace(cmd.LastName),
		PasswordHash: string(hash),
		Role:         auth.RoleCustomer,
		CreatedAt:    s.now(),
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if isRepoConflict(err) {
			return AuthSession{}, ErrAuthEmailTaken
		}
		return AuthSession{}, err
	}

	s.logger(ctx, "auth.registered", map[string]any{
		"userId": user.ID,
	})
	return s.issueSession(user)
}

// Login verifies credentials and returns a signed session.
func (s *authService) Login(ctx context.Context, cmd LoginCommand) (AuthSession, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if email == "" || cmd.Password == "" {
		return AuthSession{}, fmt.Errorf("%w: email and password are required", ErrAuthInvalidInput)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isRepoNotFound(err) {
			return AuthSession{}, ErrAuthInvalidCredentials
		}
		return AuthSession{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cmd.Password)); err != nil {
		return AuthSession{}, ErrAuthInvalidCredentials
	}

	s.logger(ctx, "auth.logged_in", map[string]any{
		"userId": user.ID,
	})
	return s.issueSession(user)
}

func (s *authService) issueSession(user domain.User) (AuthSession, error) {
	token, expiresAt, err := s.tokens.Issue(auth.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return AuthSession{}, fmt.Errorf("auth service: issue token: %w", err)
	}
	user.PasswordHash = ""
	return AuthSession{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}
