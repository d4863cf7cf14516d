package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
	applog "bilancio/internal/log"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword bcrypt-hashes a plain password at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Service logs users in against the user store.
type Service struct {
	users  ledger.UserStore
	tokens *TokenManager
	logger *applog.Logger
}

func NewService(users ledger.UserStore, tokens *TokenManager, logger *applog.Logger) *Service {
	if logger == nil {
		logger = applog.Nop()
	}
	return &Service{users: users, tokens: tokens, logger: logger.WithComponent(applog.ComponentAuth)}
}

// Login checks the credentials and issues a token. Unknown emails and wrong
// passwords both yield core.ErrUnauthorized; deactivated accounts yield
// core.ErrInactiveUser.
func (s *Service) Login(ctx context.Context, email, password string) (Token, core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Token{}, core.User{}, core.ErrUnauthorized
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		s.logger.WarnContext(ctx, "Login for unknown email", applog.FieldOperation, applog.OpLogin)
		return Token{}, core.User{}, core.ErrUnauthorized
	}
	if err != nil {
		return Token{}, core.User{}, fmt.Errorf("load user: %w", err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		s.logger.WarnContext(ctx, "Login with wrong password", applog.FieldOperation, applog.OpLogin, applog.FieldUserID, u.ID)
		return Token{}, core.User{}, core.ErrUnauthorized
	}
	if !u.Active {
		return Token{}, core.User{}, core.ErrInactiveUser
	}

	tok, err := s.tokens.Issue(u)
	if err != nil {
		return Token{}, core.User{}, err
	}
	s.logger.InfoContext(ctx, "User logged in", applog.FieldOperation, applog.OpLogin, applog.FieldUserID, u.ID, applog.FieldRole, u.Role)
	return tok, u, nil
}
