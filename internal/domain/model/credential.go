// Package model holds the domain types shared by all adapters and services.
package model

import "time"

// refreshBuffer is how long before expiry a token is considered stale.
const refreshBuffer = 5 * time.Minute

// Credential is the delegated-permission session obtained from the Microsoft
// identity platform. It lives for the duration of the process; only the
// refresh token is (optionally) persisted, encrypted, between runs.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Valid reports whether the access token exists and has not expired.
func (c Credential) Valid() bool {
	return c.AccessToken != "" && time.Now().Before(c.Expiry)
}

// ExpiresSoon reports whether the access token is within the refresh buffer
// of its expiry and should be refreshed before the next call.
func (c Credential) ExpiresSoon() bool {
	return c.AccessToken == "" || time.Now().After(c.Expiry.Add(-refreshBuffer))
}

// UserInfo is the signed-in user's identity as reported by the /me endpoint.
type UserInfo struct {
	DisplayName       string
	UserPrincipalName string
}
