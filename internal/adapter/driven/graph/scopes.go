package graph

import (
	"fmt"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwt"
)

// GrantedScopes decodes the delegated scopes actually present in a Graph
// access token by reading its scp claim. The signature is deliberately not
// verified: the token came straight from the token endpoint and is only
// inspected to find out which catalog reports the tenant admin has consented
// to.
func (a *Authenticator) GrantedScopes(accessToken string) ([]string, error) {
	tok, err := jwt.ParseInsecure([]byte(accessToken))
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	var scp string
	if err := tok.Get("scp", &scp); err != nil {
		// No scp claim at all. Treat as no delegated scopes granted.
		return nil, nil
	}

	return strings.Fields(scp), nil
}
