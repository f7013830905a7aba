package driven

import (
	"context"
	"errors"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// INTUNE_EXPORT_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set INTUNE_EXPORT_SECRET_KEY")

// CredentialStore defines the driven port for encrypted credential
// persistence. The adapter encrypts on write and decrypts on read; this
// interface operates on plaintext values at the domain boundary.
type CredentialStore interface {
	// Set stores or replaces the named credential.
	Set(ctx context.Context, key, plaintext string) error

	// Get retrieves the plaintext credential for key.
	// Returns ("", nil) if no credential exists.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes the credential for key.
	Delete(ctx context.Context, key string) error
}
