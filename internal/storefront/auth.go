package storefront

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/safar/storefront/internal/client"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/models"
)

// Auth forwards credentials to the auth service. It keeps no state.
type Auth struct {
	api *client.Client
	log *zap.Logger
}

func NewAuth(api *client.Client, log *zap.Logger) *Auth {
	return &Auth{api: api, log: logger.OrNop(log).Named("auth")}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account and returns the server's message.
func (a *Auth) Register(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", ErrMissingCredentials
	}

	var resp struct {
		Message string `json:"message"`
	}
	if err := a.api.Post(ctx, "/auth/register", credentials{username, password}, &resp); err != nil {
		a.log.Info("registration rejected", zap.String("username", username), zap.Error(err))
		return "", fmt.Errorf("register: %w", err)
	}
	return resp.Message, nil
}

// Login exchanges credentials for an identity. Every rejection collapses
// into ErrLoginFailed.
func (a *Auth) Login(ctx context.Context, username, password string) (*models.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	var user models.User
	if err := a.api.Post(ctx, "/auth/login", credentials{username, password}, &user); err != nil {
		a.log.Info("login rejected", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	if user.Username == "" {
		user.Username = username
	}
	return &user, nil
}
