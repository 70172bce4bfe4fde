package token

import (
	"strings"

	"golang.org/x/oauth2"
)

// Pair is the token response returned by the login, refresh and profile-update
// endpoints.
type Pair struct {
	// AccessToken is the short-lived JWT sent as "Authorization: Bearer <token>".
	AccessToken string `json:"access_token"`

	// RefreshToken is only populated by the remember-me login. The backend also
	// sets it as an http-only cookie, which is what the refresh call relies on.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "bearer" for this backend.
	TokenType string `json:"token_type,omitempty"`
}

// OAuth2 converts the pair into an oauth2.Token so the standard header
// helpers can be used. Expiry comes from the unverified exp claim.
func (p Pair) OAuth2() *oauth2.Token {
	return Bearer(p.AccessToken, p.TokenType, p.RefreshToken)
}

// Bearer builds an oauth2.Token for a raw access token
func Bearer(accessToken, tokenType, refreshToken string) *oauth2.Token {
	if strings.TrimSpace(tokenType) == "" {
		tokenType = "bearer"
	}
	return &oauth2.Token{
		AccessToken:  accessToken,
		TokenType:    tokenType,
		RefreshToken: refreshToken,
		Expiry:       Expiry(accessToken),
	}
}
