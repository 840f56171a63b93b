// Package service contains the business logic layer of the brief API.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never *sqlite.DB, so tests can inject
// in-memory fakes (see the _test.go files) and the handler layer never sees
// SQL. Services return apperror values; the handler maps them to status
// codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/brief-builder/internal/apperror"
	"github.com/sakif/brief-builder/internal/auth"
	"github.com/sakif/brief-builder/internal/model"
	"github.com/sakif/brief-builder/internal/repository"
)

// Registration limits.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 8
)

// TokenTypeBearer is the token_type reported alongside issued tokens.
const TokenTypeBearer = "bearer"

// AuthService handles registration, password login, GitHub login and
// resolving the caller of an authenticated request.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// TokenResult is returned by the login operations.
type TokenResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        *model.User `json:"-"`
}

// Register validates the input, hashes the password and stores a new active
// user. Duplicate usernames or emails come back as apperror.ErrConflict.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	switch {
	case len(username) < MinUsernameLength || len(username) > MaxUsernameLength:
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength))
	case strings.ContainsAny(username, "@ \t\n"):
		return nil, apperror.ValidationFailed("username", "username must not contain '@' or whitespace")
	case !strings.Contains(email, "@"):
		return nil, apperror.ValidationFailed("email", "email must be a valid address")
	case len(password) < MinPasswordLength:
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	case len(password) > auth.MaxPasswordBytes:
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: registering %q: %w", username, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Authenticate checks a username-or-email plus password and issues an access
// token. An identifier containing "@" is looked up as an email.
//
// Unknown identities and wrong passwords produce the same Unauthorized error
// so callers cannot probe which accounts exist.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*TokenResult, error) {
	identifier = strings.TrimSpace(identifier)
	invalid := apperror.Unauthorized("incorrect username or password")
	if identifier == "" || password == "" {
		return nil, invalid
	}

	var (
		user *model.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.users.GetUserByEmail(ctx, identifier)
	} else {
		user, err = s.users.GetUserByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", identifier, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("failed login", slog.String("userID", user.ID))
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: verifying password for %s: %w", user.ID, err)
	}

	return s.issue(user)
}

// ResolveCurrentUser validates an access token and loads its subject.
// Bad or expired tokens and unknown subjects are Unauthorized; a deactivated
// user is Forbidden. It satisfies auth.UserResolver.
func (s *AuthService) ResolveCurrentUser(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperror.Unauthorized("token has expired")
		}
		return nil, apperror.Unauthorized("could not validate credentials")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("could not validate credentials")
		}
		return nil, fmt.Errorf("service/auth: loading user %s: %w", userID, err)
	}

	if !user.IsActive {
		return nil, apperror.Inactive()
	}
	return user, nil
}

// LoginWithGitHub signs in the owner of a GitHub profile.
//
// Lookup order:
//  1. a user already linked to this GitHub id
//  2. a user with the same email, which gets linked
//  3. a new user whose username is derived from the GitHub login and whose
//     password hash is unusable
func (s *AuthService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*TokenResult, error) {
	if gh == nil || gh.ID == 0 {
		return nil, fmt.Errorf("service/auth: GitHub user must not be empty")
	}

	user, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	switch {
	case err == nil:
		if !user.IsActive {
			return nil, apperror.Inactive()
		}
		return s.issue(user)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up github id %d: %w", gh.ID, err)
	}

	if gh.Email != "" {
		user, err = s.users.GetUserByEmail(ctx, gh.Email)
		switch {
		case err == nil:
			if !user.IsActive {
				return nil, apperror.Inactive()
			}
			if err := s.users.LinkGitHub(ctx, user.ID, gh.ID); err != nil {
				return nil, fmt.Errorf("service/auth: linking github id %d: %w", gh.ID, err)
			}
			s.logger.Info("github account linked",
				slog.String("userID", user.ID),
				slog.Int64("githubID", gh.ID),
			)
			return s.issue(user)
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, fmt.Errorf("service/auth: looking up %q: %w", gh.Email, err)
		}
	}

	user, err = s.createGitHubUser(ctx, gh)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) createGitHubUser(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	hash, err := s.passwords.UnusableHash()
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	email := gh.Email
	if email == "" {
		email = strconv.FormatInt(gh.ID, 10) + "+" + gh.Login + "@users.noreply.github.com"
	}
	githubID := gh.ID

	user := &model.User{
		Username:     githubUsername(gh.Login, ""),
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		GitHubID:     &githubID,
	}

	err = s.users.CreateUser(ctx, user)
	if err != nil && errors.Is(err, apperror.ErrConflict) {
		// Login already taken locally: disambiguate with the GitHub id.
		user.Username = githubUsername(gh.Login, strconv.FormatInt(gh.ID, 10))
		err = s.users.CreateUser(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: creating user for github id %d: %w", gh.ID, err)
	}

	s.logger.Info("user registered via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// githubUsername fits a GitHub login (plus optional suffix) into the
// username length limits.
func githubUsername(login, suffix string) string {
	name := login
	if suffix != "" {
		limit := MaxUsernameLength - len(suffix) - 1
		if len(name) > limit {
			name = name[:limit]
		}
		name += "-" + suffix
	}
	if len(name) > MaxUsernameLength {
		name = name[:MaxUsernameLength]
	}
	for len(name) < MinUsernameLength {
		name += "_"
	}
	return name
}

// GetUserByID returns the user for the given internal ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}

func (s *AuthService) issue(user *model.User) (*TokenResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &TokenResult{AccessToken: token, TokenType: TokenTypeBearer, User: user}, nil
}
