package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs RS256 tokens and publishes the matching JWKS over HTTP.
type TokenIssuer struct {
	Key    *rsa.PrivateKey
	KID    string
	Issuer string
	Server *httptest.Server

	fetches atomic.Int32
}

// NewTokenIssuer generates a signing key and starts a JWKS server that is closed with the test.
func NewTokenIssuer(t *testing.T) *TokenIssuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}

	ti := &TokenIssuer{Key: key, KID: "test-key", Issuer: "https://issuer.example.com"}
	ti.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ti.fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write(JWKS(ti.KID, &ti.Key.PublicKey))
	}))
	t.Cleanup(ti.Server.Close)
	return ti
}

// JWKSURL is the address the key set is served on.
func (ti *TokenIssuer) JWKSURL() string {
	return ti.Server.URL
}

// Fetches counts JWKS requests served so far.
func (ti *TokenIssuer) Fetches() int {
	return int(ti.fetches.Load())
}

// Sign signs claims with the issuer key under its kid.
func (ti *TokenIssuer) Sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = ti.KID
	signed, err := token.SignedString(ti.Key)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

// Token returns a signed access token for username valid for ttl.
func (ti *TokenIssuer) Token(t *testing.T, username string, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	return ti.Sign(t, jwt.MapClaims{
		"sub":       "sub-" + username,
		"username":  username,
		"iss":       ti.Issuer,
		"client_id": "test-client",
		"token_use": "access",
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
	})
}

// JWKS renders a single-key JWKS document.
func JWKS(kid string, pub *rsa.PublicKey) []byte {
	doc := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	data, _ := json.Marshal(doc)
	return data
}
