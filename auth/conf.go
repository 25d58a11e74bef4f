package auth

import (
	"fmt"

	"golang.org/x/oauth2/clientcredentials"
)

// DefaultTokenHeader carries the API token of hosted solver services.
const DefaultTokenHeader = "X-Auth-Token"

// Conf selects how requests to the solver endpoint are authenticated.
// A static Token is sent in TokenHeader; otherwise, when ClientID is set,
// an OAuth2 client-credentials token is fetched from AuthURL.
type Conf struct {
	Token        string   `json:"token"`
	TokenHeader  string   `json:"token_header"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURL      string   `json:"auth_url"`
	Scopes       []string `json:"scopes"`
}

// Validate reports contradictory settings.
func (c Conf) Validate() error {
	if c.Token != "" && c.ClientID != "" {
		return fmt.Errorf("auth: token and client_id are mutually exclusive")
	}
	if c.ClientID != "" && c.AuthURL == "" {
		return fmt.Errorf("auth: client_id requires auth_url")
	}
	return nil
}

func (c *Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.AuthURL,
		Scopes:       c.Scopes,
	}
}
