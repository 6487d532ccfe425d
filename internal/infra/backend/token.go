package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"tftstocks/internal/auth"
	"tftstocks/internal/domain"
)

// TokenSource supplies the bearer credential issued by the auth provider.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return strings.TrimSpace(string(t)), nil
}

var errNoSubject = errors.New("token carries no username or subject")

// ClaimsUsername reads the username claim (falling back to sub) from a JWT
// without verifying it. Only use it on the operator's own configured token;
// callers' tokens go through an Identifier.
func ClaimsUsername(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", err
	}
	return usernameOf(claims)
}

func usernameOf(claims jwt.MapClaims) (string, error) {
	if name, ok := claims["username"].(string); ok && name != "" {
		return name, nil
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errNoSubject
	}
	return sub, nil
}

// Identifier resolves the username behind a caller's bearer token. It fails
// with domain.ErrUnauthenticated for tokens it cannot trust.
type Identifier interface {
	Identify(ctx context.Context, token string) (string, error)
}

// HMACIdentity verifies HMAC-signed tokens against a shared secret before
// trusting their username claim. Expiry is enforced when the token has one.
type HMACIdentity []byte

func (k HMACIdentity) Identify(_ context.Context, token string) (string, error) {
	if len(k) == 0 {
		return "", fmt.Errorf("%w: no signing secret configured", domain.ErrUnauthenticated)
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(k), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	name, err := usernameOf(claims)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	return name, nil
}

// Identify confirms token with an authenticated backend call before trusting
// its username claim, so a forged token never reaches per-user state.
func (c *Client) Identify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrUnauthenticated
	}
	name, err := ClaimsUsername(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if _, err := c.HasFutureSight(auth.WithToken(ctx, token)); err != nil {
		if domain.HasStatus(err, http.StatusUnauthorized) || domain.HasStatus(err, http.StatusForbidden) {
			return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
		}
		return "", fmt.Errorf("confirm identity: %w", err)
	}
	return name, nil
}
