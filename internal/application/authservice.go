// Package application wires the domain ports into the use cases the driving
// adapters call: sign-in, report retrieval, column selection and export.
package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/intunetools/intune-export/internal/domain/model"
	"github.com/intunetools/intune-export/internal/domain/port/driven"
)

// refreshTokenKey is the credential store key for the persisted refresh token.
const refreshTokenKey = "refresh_token"

// AuthService owns the delegated session: it drives the interactive sign-in,
// keeps the in-memory credential fresh, and persists the refresh token
// (encrypted) so the next run can restore the session without a browser
// round-trip.
type AuthService struct {
	idp    driven.IdentityProvider
	creds  driven.CredentialStore
	graph  driven.GraphClient
	logger *slog.Logger

	mu           sync.Mutex
	pendingState string
	cred         model.Credential
	user         model.UserInfo
	scopes       []string
}

// NewAuthService creates an AuthService. The Graph client is attached
// separately with AttachGraph because its token source is this service.
func NewAuthService(idp driven.IdentityProvider, creds driven.CredentialStore) *AuthService {
	return &AuthService{
		idp:    idp,
		creds:  creds,
		logger: slog.Default(),
	}
}

// AttachGraph hands the service the Graph client used to resolve the
// signed-in user's identity. Called once from the composition root.
func (s *AuthService) AttachGraph(graph driven.GraphClient) {
	s.graph = graph
}

// BeginSignIn generates a fresh state value and returns the browser URL that
// starts the interactive sign-in.
func (s *AuthService) BeginSignIn() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", &model.AuthError{Reason: "generate state", Err: err}
	}
	state := hex.EncodeToString(buf)

	s.mu.Lock()
	s.pendingState = state
	s.mu.Unlock()

	return s.idp.AuthCodeURL(state), nil
}

// CompleteSignIn handles the OAuth2 callback: it verifies the state echo,
// exchanges the code, discovers the granted scopes, resolves the signed-in
// user and persists the refresh token.
func (s *AuthService) CompleteSignIn(ctx context.Context, state, code string) (model.UserInfo, error) {
	s.mu.Lock()
	expected := s.pendingState
	s.pendingState = ""
	s.mu.Unlock()

	if expected == "" || state != expected {
		return model.UserInfo{}, &model.AuthError{Reason: "state mismatch on callback"}
	}

	cred, err := s.idp.Exchange(ctx, code)
	if err != nil {
		return model.UserInfo{}, err
	}

	return s.establishSession(ctx, cred)
}

// RestoreSession rebuilds the session from a persisted refresh token. It
// returns an AuthError when no token is stored or the token is no longer
// accepted, in which case the user must sign in interactively.
func (s *AuthService) RestoreSession(ctx context.Context) (model.UserInfo, error) {
	stored, err := s.creds.Get(ctx, refreshTokenKey)
	if err != nil {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			return model.UserInfo{}, &model.AuthError{Reason: "no persisted session", Err: err}
		}
		return model.UserInfo{}, err
	}
	if stored == "" {
		return model.UserInfo{}, &model.AuthError{Reason: "no persisted session"}
	}

	cred, err := s.idp.Refresh(ctx, stored)
	if err != nil {
		return model.UserInfo{}, err
	}

	return s.establishSession(ctx, cred)
}

// establishSession installs the credential, discovers scopes, resolves the
// user identity and persists the refresh token.
func (s *AuthService) establishSession(ctx context.Context, cred model.Credential) (model.UserInfo, error) {
	scopes, err := s.idp.GrantedScopes(cred.AccessToken)
	if err != nil {
		s.logger.Warn("could not decode granted scopes from access token", "error", err)
		scopes = nil
	}

	s.mu.Lock()
	s.cred = cred
	s.scopes = scopes
	s.mu.Unlock()

	user, err := s.graph.SignedInUser(ctx)
	if err != nil {
		s.clearSession()
		return model.UserInfo{}, err
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	s.persistRefreshToken(ctx, cred.RefreshToken)

	s.logger.Info("signed in", "user", user.UserPrincipalName, "scopes", len(scopes))
	return user, nil
}

// EnsureValid refreshes the access token when it is missing or close to
// expiry. It returns an AuthError when there is no session to refresh.
func (s *AuthService) EnsureValid(ctx context.Context) error {
	s.mu.Lock()
	cred := s.cred
	s.mu.Unlock()

	if cred.AccessToken == "" && cred.RefreshToken == "" {
		return &model.AuthError{Reason: "not signed in"}
	}
	if !cred.ExpiresSoon() {
		return nil
	}

	fresh, err := s.idp.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		s.clearSession()
		return err
	}

	s.mu.Lock()
	s.cred = fresh
	s.mu.Unlock()

	if fresh.RefreshToken != cred.RefreshToken {
		s.persistRefreshToken(ctx, fresh.RefreshToken)
	}
	return nil
}

// SignOut drops the in-memory session and deletes the persisted refresh
// token.
func (s *AuthService) SignOut(ctx context.Context) error {
	s.clearSession()

	if err := s.creds.Delete(ctx, refreshTokenKey); err != nil && !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		return err
	}
	return nil
}

// SignedIn reports whether a session is established.
func (s *AuthService) SignedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred.AccessToken != ""
}

// User returns the signed-in user's identity.
func (s *AuthService) User() model.UserInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// HasScope reports whether the tenant granted the named delegated scope. An
// empty discovered-scope list answers true so reports are not spuriously
// flagged when the token carried no scp claim.
func (s *AuthService) HasScope(scope string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.scopes) == 0 {
		return true
	}
	for _, granted := range s.scopes {
		if granted == scope {
			return true
		}
	}
	return false
}

// GrantedScopes returns the delegated scopes discovered at sign-in.
func (s *AuthService) GrantedScopes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.scopes))
	copy(out, s.scopes)
	return out
}

// TokenSource returns an oauth2.TokenSource backed by this session, suitable
// for the Graph client's transport.
func (s *AuthService) TokenSource() oauth2.TokenSource {
	return tokenSource{svc: s}
}

type tokenSource struct {
	svc *AuthService
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	if err := ts.svc.EnsureValid(context.Background()); err != nil {
		return nil, err
	}

	ts.svc.mu.Lock()
	defer ts.svc.mu.Unlock()
	return &oauth2.Token{
		AccessToken: ts.svc.cred.AccessToken,
		Expiry:      ts.svc.cred.Expiry,
	}, nil
}

func (s *AuthService) clearSession() {
	s.mu.Lock()
	s.cred = model.Credential{}
	s.user = model.UserInfo{}
	s.scopes = nil
	s.mu.Unlock()
}

// persistRefreshToken stores the refresh token, tolerating a missing
// encryption key (persistence is then simply disabled).
func (s *AuthService) persistRefreshToken(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.creds.Set(ctx, refreshTokenKey, token); err != nil {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			s.logger.Debug("refresh token not persisted, encryption key not configured")
			return
		}
		s.logger.Warn("could not persist refresh token", "error", err)
	}
}
