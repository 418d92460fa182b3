package auth

import (
	"context"
	"fmt"

	"github.com/kobo-pay/kobo_pay/internal/config"
	"github.com/kobo-pay/kobo_pay/internal/identity"
	"github.com/kobo-pay/kobo_pay/internal/wallet"
)

// Service handles registration and login, issuing access tokens and
// auto-provisioning a wallet for every new user.
type Service struct {
	cfg     config.Config
	ids     *identity.Service
	wallets *wallet.Service
}

// NewService builds an auth service.
func NewService(cfg config.Config, ids *identity.Service, wallets *wallet.Service) *Service {
	return &Service{cfg: cfg, ids: ids, wallets: wallets}
}

// Session is the outcome of a successful register or login.
type Session struct {
	User  identity.User
	Token string
}

// Register creates the user, provisions a zero-balance wallet and issues a
// token.
func (s *Service) Register(ctx context.Context, input identity.RegisterInput) (Session, error) {
	user, err := s.ids.Register(ctx, input)
	if err != nil {
		return Session{}, err
	}
	if _, err := s.wallets.Create(ctx, user.ID); err != nil {
		return Session{}, fmt.Errorf("provision wallet: %w", err)
	}
	token, err := SignToken(user.ID, user.Email, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{User: user, Token: token}, nil
}

// Login validates credentials and issues a token.
func (s *Service) Login(ctx context.Context, creds identity.Credentials) (Session, error) {
	user, err := s.ids.Authenticate(ctx, creds)
	if err != nil {
		return Session{}, err
	}
	token, err := SignToken(user.ID, user.Email, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{User: user, Token: token}, nil
}
