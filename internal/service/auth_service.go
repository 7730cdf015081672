package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"parking-service/internal/auth"
	"parking-service/internal/model"
)

type AuthService struct {
	userRepo UserStore
	tokens   *auth.Manager
	log      zerolog.Logger
}

func NewAuthService(userRepo UserStore, tokens *auth.Manager, log zerolog.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		log:      log,
	}
}

// Login verifies the credentials and issues an access token. Unknown
// username and wrong password produce the same error so nothing leaks
// about which one failed.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if hashPassword(password) != user.PasswordHash {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", err
	}

	s.log.Info().Str("username", username).Msg("user logged in")
	return token, nil
}

func (s *AuthService) Register(ctx context.Context, username, password string, role model.Role) error {
	_, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return fmt.Errorf("%w: user already exists", ErrConflict)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hashPassword(password),
		Role:         role,
	}

	if err := s.userRepo.Insert(ctx, user); err != nil {
		return err
	}

	s.log.Info().Str("username", username).Str("role", string(role)).Msg("registered user")
	return nil
}

// hashPassword is deliberately deterministic: the stored hash is compared by
// equality at login and the user listing can filter by it.
func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}
