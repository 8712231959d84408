package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"degradation_monitor/internal/logger"
	"degradation_monitor/internal/models"
	"degradation_monitor/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// defaultTokenTTL applies when AuthConfig.TokenTTL is not set.
	defaultTokenTTL = time.Hour
	tokenIssuer     = "degradation_monitor"

	minUsernameLen = 3
	maxUsernameLen = 64
)

// AuthConfig carries the JWT settings.
type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

var (
	ErrInvalidPassword  = errors.New("invalid password")
	ErrInvalidUsername  = fmt.Errorf("username must be %d-%d letters, digits, '.', '-' or '_'", minUsernameLen, maxUsernameLen)
	ErrUsernameTaken    = errors.New("username already taken")
	ErrOperatorNotFound = repository.ErrOperatorNotFound
	ErrInvalidToken     = errors.New("invalid token")
)

// AuthService signs operators in and turns their tokens back into actors.
type AuthService struct {
	repo       repository.Authorization
	signingKey []byte
	tokenTTL   time.Duration
	log        *logger.Logger
	now        func() time.Time
}

func NewAuthService(repo repository.Authorization, cfg AuthConfig, log *logger.Logger) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{
		repo:       repo,
		signingKey: []byte(cfg.SigningKey),
		tokenTTL:   ttl,
		log:        log,
		now:        time.Now,
	}
}

// Claims identify the operator a token was issued to. Subject holds the username.
type Claims struct {
	jwt.RegisteredClaims
	OperatorID int `json:"operator_id"`
}

// SignUp registers an operator. Usernames are case-insensitive.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (int, error) {
	name, err := normalizeUsername(username)
	if err != nil {
		return 0, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	id, err := s.repo.Create(ctx, name, hash)
	if errors.Is(err, repository.ErrOperatorExists) {
		return 0, ErrUsernameTaken
	}
	return id, err
}

// GenerateToken checks the credentials and issues a signed token. The
// sign-in time is recorded on a best-effort basis.
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (string, error) {
	name, err := normalizeUsername(username)
	if err != nil {
		return "", ErrOperatorNotFound
	}
	op, err := s.repo.ByUsername(ctx, name)
	if err != nil {
		return "", err
	}
	if err := verifyPassword(op.PasswordHash, password); err != nil {
		return "", ErrInvalidPassword
	}

	token, err := s.issueToken(op)
	if err != nil {
		return "", err
	}
	if err := s.repo.RecordSignIn(ctx, op.ID, s.now()); err != nil && s.log != nil {
		s.log.Warnw("auth_record_sign_in_failed", "operator_id", op.ID, "error", err)
	}
	return token, nil
}

// ParseToken verifies accessToken and returns the operator it identifies.
func (s *AuthService) ParseToken(accessToken string) (models.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(accessToken, claims,
		func(*jwt.Token) (interface{}, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return models.Actor{}, err
	}
	if !token.Valid || claims.OperatorID <= 0 || claims.Subject == "" {
		return models.Actor{}, ErrInvalidToken
	}
	return models.Actor{OperatorID: claims.OperatorID, Username: claims.Subject}, nil
}

// Operator returns the account behind a token, for profile display.
func (s *AuthService) Operator(ctx context.Context, id int) (models.Operator, error) {
	return s.repo.ByID(ctx, id)
}

func normalizeUsername(username string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(username))
	if len(name) < minUsernameLen || len(name) > maxUsernameLen {
		return "", ErrInvalidUsername
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '-' && r != '_' {
			return "", ErrInvalidUsername
		}
	}
	return name, nil
}

func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) issueToken(op models.Operator) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   op.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OperatorID: op.ID,
	})
	return token.SignedString(s.signingKey)
}
