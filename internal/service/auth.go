package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/store"
	"github.com/Skotchmaster/restaurant_orders/pkg/hash"
	"github.com/Skotchmaster/restaurant_orders/pkg/tokens"
)

type AuthService struct {
	Store     store.Store
	JWTSecret []byte
	TokenTTL  time.Duration
}

type LoginResult struct {
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        domain.User `json:"user"`
	Landing     domain.View `json:"landing"`
}

// LandingView is where a role lands after login.
func LandingView(r domain.Role) (domain.View, error) {
	v, ok := domain.LandingView(r)
	if !ok {
		return "", fmt.Errorf("%w: role %q has no dashboard", ErrForbidden, r)
	}
	return v, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: email and password required", ErrValidation)
	}

	u, err := s.Store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fromStore(err, "load user")
	}
	if !hash.CheckPassword(u.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}

	landing, err := LandingView(u.Role)
	if err != nil {
		return LoginResult{}, err
	}

	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	exp := time.Now().Add(ttl)
	token, err := tokens.NewAccessToken(u.UID, string(u.Role), u.RestaurantID, u.DisplayName, exp, s.JWTSecret)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	return LoginResult{AccessToken: token, ExpiresAt: exp, User: u, Landing: landing}, nil
}
