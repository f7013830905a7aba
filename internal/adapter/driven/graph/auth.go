package graph

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/intunetools/intune-export/internal/domain/model"
	"github.com/intunetools/intune-export/internal/domain/port/driven"
)

// graphResource prefixes delegated scope names into their fully qualified
// Microsoft Graph form.
const graphResource = "https://graph.microsoft.com/"

// Compile-time interface satisfaction check.
var _ driven.IdentityProvider = (*Authenticator)(nil)

// Authenticator implements the IdentityProvider port with the OAuth2
// authorization-code flow against the Microsoft identity platform.
type Authenticator struct {
	cfg *oauth2.Config
}

// NewAuthenticator creates an Authenticator for the given Entra app
// registration. tenantID is usually "organizations"; a concrete tenant GUID
// restricts sign-in to that tenant. clientSecret is empty for public client
// registrations.
func NewAuthenticator(clientID, clientSecret, tenantID, redirectURL string) *Authenticator {
	required := model.RequiredScopes()
	scopes := make([]string, 0, len(required)+1)
	for _, s := range required {
		scopes = append(scopes, graphResource+s)
	}
	// offline_access makes the token endpoint return a refresh token.
	scopes = append(scopes, "offline_access")

	return &Authenticator{cfg: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     microsoft.AzureADEndpoint(tenantID),
		RedirectURL:  redirectURL,
		Scopes:       scopes,
	}}
}

// NewAuthenticatorWithEndpoint creates an Authenticator against a custom
// OAuth2 endpoint. This constructor is intended for testing against an
// httptest token server.
func NewAuthenticatorWithEndpoint(clientID, redirectURL string, endpoint oauth2.Endpoint) *Authenticator {
	a := NewAuthenticator(clientID, "", "organizations", redirectURL)
	a.cfg.Endpoint = endpoint
	return a
}

// AuthCodeURL builds the browser URL that starts the interactive sign-in.
func (a *Authenticator) AuthCodeURL(state string) string {
	return a.cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades the callback's authorization code for tokens.
func (a *Authenticator) Exchange(ctx context.Context, code string) (model.Credential, error) {
	tok, err := a.cfg.Exchange(ctx, code)
	if err != nil {
		return model.Credential{}, &model.AuthError{Reason: "authorization code rejected", Err: err}
	}
	return credentialFromToken(tok), nil
}

// Refresh obtains a fresh access token from a stored refresh token. When the
// token endpoint does not rotate the refresh token, the old one is carried
// forward.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (model.Credential, error) {
	src := a.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return model.Credential{}, &model.AuthError{Reason: "refresh token rejected", Err: err}
	}

	cred := credentialFromToken(tok)
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}
	return cred, nil
}

func credentialFromToken(tok *oauth2.Token) model.Credential {
	return model.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
}
