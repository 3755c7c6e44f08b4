package identity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// ProviderConfig describes the identity provider's OAuth2 endpoints and client.
type ProviderConfig struct {
	Issuer       string
	JWKSURL      string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RevokeURL    string
	RedirectURL  string
}

// TokenSet is what a successful code exchange hands back to the caller.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// UserInfo is the provider's description of the signed-in user.
type UserInfo struct {
	Subject           string `json:"sub"`
	Username          string `json:"username"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
}

// Login returns the username the provider knows the user by.
func (u UserInfo) Login() string {
	if u.Username != "" {
		return u.Username
	}
	return u.PreferredUsername
}

type Provider struct {
	oauth     *oauth2.Config
	oidc      *oidc.Provider
	revokeURL string
	client    *http.Client
}

func NewProvider(cfg ProviderConfig, client *http.Client) *Provider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			Scopes: []string{"openid", "email", "profile"},
		},
		oidc: (&oidc.ProviderConfig{
			IssuerURL:   cfg.Issuer,
			AuthURL:     cfg.AuthURL,
			TokenURL:    cfg.TokenURL,
			UserInfoURL: cfg.UserInfoURL,
			JWKSURL:     cfg.JWKSURL,
		}).NewProvider(context.Background()),
		revokeURL: cfg.RevokeURL,
		client:    client,
	}
}

// Exchange trades an authorization code for tokens.
func (p *Provider) Exchange(ctx context.Context, code string) (TokenSet, error) {
	tok, err := p.oauth.Exchange(p.withClient(ctx), code)
	if err != nil {
		return TokenSet{}, fmt.Errorf("%w: code exchange: %v", ErrProvider, err)
	}

	ts := TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		ts.IDToken = idToken
	}
	if !tok.Expiry.IsZero() {
		ts.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	return ts, nil
}

// UserInfo fetches the user's attributes with the given access token.
func (p *Provider) UserInfo(ctx context.Context, accessToken string) (UserInfo, error) {
	raw, err := p.oidc.UserInfo(oidc.ClientContext(ctx, p.client), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	if err != nil {
		return UserInfo{}, fmt.Errorf("%w: userinfo: %v", ErrProvider, err)
	}

	var info UserInfo
	if err := raw.Claims(&info); err != nil {
		return UserInfo{}, fmt.Errorf("%w: userinfo decode: %v", ErrProvider, err)
	}
	if info.Login() == "" || info.Email == "" {
		return UserInfo{}, fmt.Errorf("%w: userinfo lacks username or email", ErrProvider)
	}
	return info, nil
}

// Revoke asks the provider to invalidate the token (RFC 7009).
// Without a configured revocation endpoint it does nothing.
func (p *Provider) Revoke(ctx context.Context, token string) error {
	if p.revokeURL == "" {
		return nil
	}

	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", "access_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: revoke request: %v", ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(url.QueryEscape(p.oauth.ClientID), url.QueryEscape(p.oauth.ClientSecret))

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: revoke: %v", ErrProvider, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: revoke: unexpected status %d", ErrProvider, resp.StatusCode)
	}
	return nil
}

func (p *Provider) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.client)
}
