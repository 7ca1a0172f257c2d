package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/order-intake/internal/common"
	"github.com/joseph-ayodele/order-intake/internal/entity"
	"github.com/joseph-ayodele/order-intake/internal/repository"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Service registers users, issues tokens and resolves bearer tokens to users.
type Service struct {
	users  repository.UserRepository
	tokens *TokenIssuer
	logger *slog.Logger
}

func NewService(users repository.UserRepository, tokens *TokenIssuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, tokens: tokens, logger: logger}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*entity.User, error) {
	if err := common.NewValidator().
		Field("username", req.Username, common.Required, common.MaxLength(150)).
		Field("email", req.Email, common.Required, common.Email).
		Field("password", req.Password, common.Required).
		Error(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return nil, common.InvalidInputf("Username already registered")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, common.InvalidInputf("Email already registered")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, common.WrapError(errors.Join(common.ErrInternal, err), "hash password")
	}
	u, err := s.users.Create(ctx, req.Username, req.Email, hashed)
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, common.ErrConflict) {
			return nil, common.InvalidInputf("Username or email already registered")
		}
		return nil, err
	}
	s.logger.Info("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Login checks credentials and returns a signed access token. Unknown users,
// wrong passwords and inactive accounts all fail with the same error.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", incorrectCredentials()
		}
		return "", err
	}
	if !VerifyPassword(password, u.HashedPassword) || !u.IsActive {
		s.logger.Warn("login rejected", "username", username)
		return "", incorrectCredentials()
	}
	return s.tokens.Issue(u.Username)
}

func incorrectCredentials() error {
	return common.NewAppError("UNAUTHORIZED", "Incorrect username or password", common.ErrUnauthorized)
}

func invalidCredentials() error {
	return common.NewAppError("UNAUTHORIZED", "Could not validate credentials", common.ErrUnauthorized)
}

// Authenticate resolves a bearer token to an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invalidCredentials()
	}
	username, err := s.tokens.Subject(token)
	if err != nil {
		return nil, invalidCredentials()
	}
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, common.NewAppError("FORBIDDEN", "User account is inactive", common.ErrForbidden)
	}
	return u, nil
}
