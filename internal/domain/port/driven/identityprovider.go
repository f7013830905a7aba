package driven

import (
	"context"

	"github.com/intunetools/intune-export/internal/domain/model"
)

// IdentityProvider defines the driven port for the OAuth2 delegated sign-in
// against the Microsoft identity platform.
type IdentityProvider interface {
	// AuthCodeURL builds the browser URL that starts the interactive
	// authorization-code flow. state is echoed back on the callback.
	AuthCodeURL(state string) string

	// Exchange trades the callback's authorization code for tokens.
	Exchange(ctx context.Context, code string) (model.Credential, error)

	// Refresh obtains a fresh access token from a stored refresh token.
	Refresh(ctx context.Context, refreshToken string) (model.Credential, error)

	// GrantedScopes decodes the delegated scopes actually present in an
	// access token, without verifying its signature.
	GrantedScopes(accessToken string) ([]string, error)
}
