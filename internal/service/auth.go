package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
	"github.com/taskforge/taskforge/pkg/cryptox"
	"github.com/taskforge/taskforge/pkg/jwtx"
)

var (
	ErrUserNotFound       = errors.New("user_not_found")
	ErrInvalidCredentials = errors.New("invalid_credentials")
)

// AuthService implements the credential login protocol and token lifecycle.
//
// Three signers back the three token families. Access tokens authorize API
// calls, refresh tokens mint replacement access tokens, and pending tokens
// bridge a password-verified login to its second factor.
type AuthService struct {
	Store   store.Store
	Access  jwtx.Signer
	Refresh jwtx.Signer
	Pending jwtx.Signer
}

// Login verifies an email/password pair. Users with 2FA enabled get a
// pending token and must complete second-factor verification; everyone else
// gets a full token pair immediately.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.LoginResult, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResult{}, ErrUserNotFound
		}
		return domain.LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	// Federated identities carry no password hash and cannot log in here.
	if user.PasswordHash == "" || !cryptox.VerifyPassword(password, user.PasswordHash) {
		return domain.LoginResult{}, ErrInvalidCredentials
	}

	if user.TwoFAEnabled {
		authToken, err := s.Pending.Sign(user.Name, user.ID)
		if err != nil {
			return domain.LoginResult{}, fmt.Errorf("sign pending token: %w", err)
		}
		return domain.LoginResult{TwoFARequired: true, AuthToken: authToken}, nil
	}

	pair, err := s.IssuePair(user.Name, user.ID)
	if err != nil {
		return domain.LoginResult{}, err
	}
	return domain.LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// IssuePair signs a fresh access/refresh pair for an already-verified identity.
func (s *AuthService) IssuePair(username string, userID int64) (domain.TokenPair, error) {
	access, err := s.Access.Sign(username, userID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.Refresh.Sign(username, userID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// RefreshAccess exchanges a valid refresh token for a new access token.
// Verification failures surface as the jwtx sentinels so the transport layer
// can report expired vs malformed separately.
func (s *AuthService) RefreshAccess(refreshToken string) (string, error) {
	claims, err := s.Refresh.Verify(refreshToken)
	if err != nil {
		return "", err
	}
	return s.Access.Sign(claims.Username, claims.UserID)
}

// VerifyAccess validates an access token and returns its claims.
func (s *AuthService) VerifyAccess(token string) (jwtx.Claims, error) {
	return s.Access.Verify(token)
}

// VerifyPending validates a pending-2FA token and returns its claims.
func (s *AuthService) VerifyPending(token string) (jwtx.Claims, error) {
	return s.Pending.Verify(token)
}
