package identity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerifierConfig controls which claims a token must carry.
type VerifierConfig struct {
	// Issuer is compared against "iss" when set.
	Issuer string
	// ClientID must match "client_id" or be one of "aud" when set.
	ClientID string
	// UsernameClaim names the claim holding the username. Defaults to "username".
	UsernameClaim string
	Leeway        time.Duration
}

// Claims is the verified subset of token claims the rest of the service relies on.
type Claims struct {
	Username  string
	Subject   string
	TokenID   string
	ExpiresAt time.Time
}

type Verifier struct {
	keyfunc jwt.Keyfunc
	config  VerifierConfig
	parser  *jwt.Parser
}

// NewVerifier checks tokens with keys resolved by keyfunc, typically keyfunc.Keyfunc.Keyfunc.
func NewVerifier(keyfunc jwt.Keyfunc, config VerifierConfig) *Verifier {
	if config.UsernameClaim == "" {
		config.UsernameClaim = "username"
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}

	return &Verifier{
		keyfunc: keyfunc,
		config:  config,
		parser:  jwt.NewParser(opts...),
	}
}

// Verify checks the token signature and registered claims and extracts the username.
// Every failure wraps ErrUnauthenticated.
func (v *Verifier) Verify(_ context.Context, raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, fmt.Errorf("%w: empty token", ErrUnauthenticated)
	}

	mc := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(raw, mc, v.keyfunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrTokenExpired)
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !token.Valid {
		return Claims{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	if v.config.ClientID != "" && !v.clientMatches(mc) {
		return Claims{}, fmt.Errorf("%w: token issued for another client", ErrUnauthenticated)
	}

	username, ok := stringClaim(mc, v.config.UsernameClaim)
	if !ok {
		username, ok = stringClaim(mc, "cognito:username")
	}
	if !ok {
		return Claims{}, fmt.Errorf("%w: username missing", ErrUnauthenticated)
	}

	claims := Claims{Username: username}
	claims.Subject, _ = mc.GetSubject()
	claims.TokenID, _ = stringClaim(mc, "jti")
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

func (v *Verifier) clientMatches(mc jwt.MapClaims) bool {
	if clientID, ok := stringClaim(mc, "client_id"); ok {
		return clientID == v.config.ClientID
	}
	aud, err := mc.GetAudience()
	if err != nil {
		return false
	}
	return slices.Contains(aud, v.config.ClientID)
}

func stringClaim(mc jwt.MapClaims, name string) (string, bool) {
	s, ok := mc[name].(string)
	return s, ok && s != ""
}
