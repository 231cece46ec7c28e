package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"controlling_resistances/internal/models"
	"controlling_resistances/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL   = time.Hour
	tokenIssuer       = "controlling_resistances"
	minPasswordLength = 8
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,31}$`)

// AuthOptions configures token signing. An empty SigningKey gets a random
// per-process key, so tokens do not survive a restart.
type AuthOptions struct {
	SigningKey string
	TokenTTL   time.Duration
}

var (
	ErrInvalidUsername    = errors.New("username must be 3-32 characters of a-z, 0-9, '.', '_' or '-'")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrUsernameTaken      = repository.ErrUsernameTaken
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidRole        = errors.New("role must be viewer or operator")
	ErrAccountNotFound    = errors.New("account not found")
)

// Identity is what a valid token proves about its bearer.
type Identity struct {
	OperatorID int
	Role       string
}

// CanControl reports whether the bearer may start or stop the schedule.
func (i Identity) CanControl() bool { return i.Role == models.RoleOperator }

type AuthService struct {
	accounts   repository.Accounts
	signingKey []byte
	tokenTTL   time.Duration
}

func NewAuthService(accounts repository.Accounts, opts AuthOptions) *AuthService {
	if opts.SigningKey == "" {
		opts.SigningKey = uuid.NewString()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	return &AuthService{accounts: accounts, signingKey: []byte(opts.SigningKey), tokenTTL: opts.TokenTTL}
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SignUp validates the credentials and stores a new account.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (models.Operator, error) {
	username = normalizeUsername(username)
	if !usernamePattern.MatchString(username) {
		return models.Operator{}, ErrInvalidUsername
	}
	if len(password) < minPasswordLength {
		return models.Operator{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Operator{}, fmt.Errorf("hash password: %w", err)
	}
	return s.accounts.Create(ctx, username, string(hash))
}

// claims are the registered JWT claims plus the account role; the subject
// holds the account id.
type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// GenerateToken checks the credentials and issues a signed token. Unknown
// users and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (string, error) {
	op, err := s.accounts.GetByUsername(ctx, normalizeUsername(username))
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.Itoa(op.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		Role: op.Role,
	})
	return token.SignedString(s.signingKey)
}

// ParseToken verifies an HS256 token issued by GenerateToken.
func (s *AuthService) ParseToken(accessToken string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(accessToken, &c,
		func(*jwt.Token) (any, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := strconv.Atoi(c.Subject)
	if err != nil || !models.ValidRole(c.Role) {
		return Identity{}, ErrInvalidToken
	}
	return Identity{OperatorID: id, Role: c.Role}, nil
}

// SetRole changes the role of account id. Tokens already issued keep the
// role they were signed with until they expire.
func (s *AuthService) SetRole(ctx context.Context, id int, role string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if !models.ValidRole(role) {
		return ErrInvalidRole
	}
	err := s.accounts.SetRole(ctx, id, role)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAccountNotFound
	}
	return err
}
