package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/infomap/infomap/internal/model"
)

// OAuth errors.
var (
	ErrMissingIDToken   = errors.New("token response has no id_token")
	ErrEmailUnavailable = errors.New("identity has no verified email")
)

// DefaultIssuer is the Google OpenID Connect issuer.
const DefaultIssuer = "https://accounts.google.com"

// IdentityProvider runs the authorization code flow.
type IdentityProvider interface {
	// AuthCodeURL returns the provider login URL carrying state.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for a verified identity.
	Exchange(ctx context.Context, code string) (*model.Identity, error)
}

// OIDCConfig configures an OIDCProvider.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OIDCProvider is an OpenID Connect identity provider (Google by default).
type OIDCProvider struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

// NewOIDCProvider discovers the issuer and builds the OAuth2 client.
func NewOIDCProvider(ctx context.Context, cfg OIDCConfig) (*OIDCProvider, error) {
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: cfg.ClientID,
	})

	return &OIDCProvider{
		oauth2Config: oauth2Config,
		verifier:     verifier,
	}, nil
}

// AuthCodeURL implements IdentityProvider.
func (p *OIDCProvider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// Exchange implements IdentityProvider.
func (p *OIDCProvider) Exchange(ctx context.Context, code string) (*model.Identity, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrMissingIDToken
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse ID token claims: %w", err)
	}

	return identityFromClaims(claims.Email, claims.EmailVerified, claims.Name, claims.Picture)
}

func identityFromClaims(email string, verified *bool, name, picture string) (*model.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || (verified != nil && !*verified) {
		return nil, ErrEmailUnavailable
	}
	return &model.Identity{Email: email, Name: name, Picture: picture}, nil
}
