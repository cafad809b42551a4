package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vedran77/anonbox/internal/domain"
	"github.com/vedran77/anonbox/internal/repository"
	"golang.org/x/crypto/argon2"
)

const resetTokenTTL = time.Hour

var (
	ErrEmailTaken        = errors.New("email already taken")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrInvalidCreds      = errors.New("invalid username or password")
	ErrInvalidResetToken = errors.New("reset token is invalid or has expired")
	ErrEmailDelivery     = errors.New("failed to send reset email")
	ErrUserNotFound      = errors.New("user not found")
)

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordResetEmail(to, userName, resetURL string) error
}

type AuthService struct {
	userRepo repository.UserRepository
	mailer   Mailer
	baseURL  string
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, mailer Mailer, baseURL string) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		mailer:   mailer,
		baseURL:  strings.TrimRight(baseURL, "/"),
		now:      time.Now,
	}
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     strings.ToLower(strings.TrimSpace(input.Username)),
		PasswordHash: hash,
		Prompt:       domain.DefaultPrompt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if email := strings.ToLower(strings.TrimSpace(input.Email)); email != "" {
		user.Email = &email
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(input.Username)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCreds
	}

	if !verifyPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCreds
	}

	return user, nil
}

// ForgotPassword mails a reset link when identifier names an account with an
// email address. Unknown accounts succeed silently so callers cannot probe
// for registered users.
func (s *AuthService) ForgotPassword(ctx context.Context, identifier string) error {
	identifier = strings.ToLower(strings.TrimSpace(identifier))

	var (
		user *domain.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.userRepo.GetByEmail(ctx, identifier)
	} else {
		user, err = s.userRepo.GetByUsername(ctx, identifier)
	}
	if err != nil {
		return err
	}
	if user == nil || user.Email == nil {
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("generating reset token: %w", err)
	}

	tokenHash := hashResetToken(token)
	expires := s.now().Add(resetTokenTTL)
	if err := s.userRepo.SetResetToken(ctx, user.ID, &tokenHash, &expires); err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}

	resetURL := s.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	if err := s.mailer.SendPasswordResetEmail(*user.Email, user.Username, resetURL); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("password reset email failed")
		if err := s.userRepo.SetResetToken(ctx, user.ID, nil, nil); err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Error("reverting reset token failed")
		}
		return ErrEmailDelivery
	}

	return nil
}

// ResetPassword swaps the credential of the account holding token. The token
// is single use.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return ErrInvalidResetToken
	}

	user, err := s.userRepo.GetByResetToken(ctx, hashResetToken(token), s.now())
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidResetToken
	}

	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

func generateResetToken() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Only the digest of a reset token is stored.
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)

	return fmt.Sprintf("%s:%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func verifyPassword(password, encoded string) bool {
	saltB64, hashB64, ok := strings.Cut(encoded, ":")
	if !ok {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(hashB64)
	if err != nil {
		return false
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return subtle.ConstantTimeCompare(hash, expectedHash) == 1
}
