// Package auth attaches credentials to outgoing solver requests.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Authenticator sets credentials on a request.
type Authenticator interface {
	SetAuthHeader(r *http.Request) error
}

// New returns the Authenticator described by conf, or nil when conf
// carries no credentials.
func New(conf Conf) (Authenticator, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	switch {
	case conf.Token != "":
		header := conf.TokenHeader
		if header == "" {
			header = DefaultTokenHeader
		}
		return StaticToken{Header: header, Token: conf.Token}, nil
	case conf.ClientID != "":
		return NewClientCred(conf), nil
	default:
		return nil, nil
	}
}

// StaticToken sends a fixed API token in a header.
type StaticToken struct {
	Header string
	Token  string
}

func (s StaticToken) SetAuthHeader(r *http.Request) error {
	r.Header.Set(s.Header, s.Token)
	return nil
}

// ClientCred fetches and caches OAuth2 client-credentials tokens.
type ClientCred struct {
	conf  clientcredentials.Config
	mu    sync.Mutex
	token *oauth2.Token
}

func NewClientCred(conf Conf) *ClientCred {
	return &ClientCred{
		conf: conf.toOauth2Config(),
	}
}

// GetToken returns the cached access token, fetching a new one when it is
// missing or expired.
func (c *ClientCred) GetToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensure(ctx); err != nil {
		return "", err
	}
	return c.token.AccessToken, nil
}

// ForceRefresh discards the cached token and fetches a new one.
func (c *ClientCred) ForceRefresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = nil
	if err := c.ensure(ctx); err != nil {
		return "", err
	}
	return c.token.AccessToken, nil
}

// SetAuthHeader sets the bearer token, using the request context for any
// token fetch.
func (c *ClientCred) SetAuthHeader(r *http.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensure(r.Context()); err != nil {
		return err
	}
	c.token.SetAuthHeader(r)
	return nil
}

func (c *ClientCred) ensure(ctx context.Context) error {
	if c.token != nil && c.token.Valid() {
		return nil
	}
	tok, err := c.conf.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	c.token = tok
	return nil
}
