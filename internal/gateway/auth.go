package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/identity"
)

// Claims carry an authenticated caller. Subject is the full identity
// string; MSPID is its organization.
type Claims struct {
	MSPID string            `json:"mspid"`
	Attrs map[string]string `json:"attrs,omitempty"`
	jwt.RegisteredClaims
}

// Credential returns the caller the claims describe.
func (c *Claims) Credential() identity.Static {
	return identity.Static{Org: c.MSPID, Full: c.Subject, Attrs: c.Attrs}
}

// IssueToken signs an HS256 bearer token for cred, valid for ttl from now.
// A zero ttl issues a token without expiry.
func IssueToken(secret []byte, cred identity.Static, now time.Time, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("issue token: empty signing secret")
	}
	claims := Claims{
		MSPID: cred.Org,
		Attrs: cred.Attrs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  cred.Full,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(secret []byte, token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

type credentialKey struct{}

// CredentialFrom returns the caller stored by the authentication middleware.
func CredentialFrom(ctx context.Context) (identity.Credential, bool) {
	c, ok := ctx.Value(credentialKey{}).(identity.Credential)
	return c, ok
}

// authenticate rejects requests without a valid bearer token.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, r, domain.IdentityExtractionf("missing bearer token"))
			return
		}
		claims, err := ParseToken(s.secret, token)
		if err != nil {
			s.writeError(w, r, domain.IdentityExtractionf("invalid bearer token: %v", err))
			return
		}
		ctx := context.WithValue(r.Context(), credentialKey{}, identity.Credential(claims.Credential()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
