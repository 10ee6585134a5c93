package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates a bearer token failed verification.
var ErrInvalidToken = errors.New("invalid token")

// actorClaims is the internal claims type used for JWT parsing.
type actorClaims struct {
	jwt.RegisteredClaims
	Privileged bool `json:"priv,omitempty"`
}

// TokenResolver verifies HS256 bearer tokens. The subject is the actor id.
// Privilege requires both the priv claim and a privileged directory entry.
type TokenResolver struct {
	Secret    []byte
	Issuer    string
	Directory *Directory
	Now       func() time.Time
}

// Resolve implements Resolver.
func (t TokenResolver) Resolve(r *http.Request) (Actor, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Actor{}, ErrUnauthenticated
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return Actor{}, ErrUnauthenticated
	}
	return t.Verify(strings.TrimSpace(raw))
}

// Verify parses and validates a raw token.
func (t TokenResolver) Verify(raw string) (Actor, error) {
	if len(t.Secret) == 0 {
		return Actor{}, fmt.Errorf("%w: token auth is not configured", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if t.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.Issuer))
	}
	if t.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(t.Now))
	}

	var claims actorClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.Secret, nil
	}, opts...)
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return Actor{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	actor := t.Directory.Lookup(subject)
	actor.Privileged = actor.Privileged && claims.Privileged
	return actor, nil
}

// IssueToken signs a token for actorID valid for ttl.
func IssueToken(secret []byte, issuer, actorID string, privileged bool, now time.Time, ttl time.Duration) (string, error) {
	claims := actorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Privileged: privileged,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
