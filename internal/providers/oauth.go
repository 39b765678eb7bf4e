package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// TokenSet is what the token endpoint hands back after an exchange or refresh.
type TokenSet struct {
	AccessToken           string
	RefreshToken          string
	TokenType             string
	ExpiresAt             time.Time
	RefreshTokenExpiresAt *time.Time
}

// OAuthClient wraps the authorization-code flow against the platform.
type OAuthClient struct {
	config  *oauth2.Config
	client  *http.Client
	timeout time.Duration
	now     func() time.Time
}

func NewOAuthClient(clientID, clientSecret, redirectURL, authURL, tokenURL string, scopes []string, timeout time.Duration) *OAuthClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OAuthClient{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		client:  &http.Client{},
		timeout: timeout,
		now:     time.Now,
	}
}

// AuthCodeURL is where the admin is sent to grant access.
func (c *OAuthClient) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (c *OAuthClient) Exchange(ctx context.Context, code string) (*TokenSet, error) {
	ctx, cancel := context.WithTimeout(context.WithValue(ctx, oauth2.HTTPClient, c.client), c.timeout)
	defer cancel()

	tok, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("authorization code exchange failed: %w", err)
	}
	return c.toTokenSet(tok), nil
}

// Refresh trades a refresh token for a new pair. The platform rotates the
// refresh token, so callers must persist both values.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	ctx, cancel := context.WithTimeout(context.WithValue(ctx, oauth2.HTTPClient, c.client), c.timeout)
	defer cancel()

	// An empty access token forces the source to hit the token endpoint.
	src := c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	set := c.toTokenSet(tok)
	if set.RefreshToken == "" {
		set.RefreshToken = refreshToken
	}
	return set, nil
}

func (c *OAuthClient) toTokenSet(tok *oauth2.Token) *TokenSet {
	set := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
	}
	if set.ExpiresAt.IsZero() {
		set.ExpiresAt = c.now().Add(time.Hour)
	}
	if secs, ok := tok.Extra("x_refresh_token_expires_in").(float64); ok && secs > 0 {
		exp := c.now().Add(time.Duration(secs) * time.Second)
		set.RefreshTokenExpiresAt = &exp
	}
	return set
}
