package session

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/sync/singleflight"
)

// Manager owns the session state and is its only writer. Readers take
// snapshots; every mutation happens atomically under the state lock, so a
// snapshot never observes a partially applied transition.
type Manager struct {
	api    APIClient
	store  *Store
	logger Logger

	mu    sync.RWMutex
	state sessionState

	// concurrent guards observing a token-only session share one verify
	// round trip
	verify singleflight.Group
}

// NewManager returns a Manager over the given API client and store
func NewManager(api APIClient, store *Store) *Manager {
	return &Manager{
		api:    api,
		store:  store,
		logger: defLogger{},
	}
}

// WithLogger replaces the manager logger
func (m *Manager) WithLogger(logger Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Snapshot returns a copy of the current session state
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.snapshot()
}

// Login authenticates against the backend and installs the resulting
// identity. A failed login records the error and leaves any previously
// established session untouched.
func (m *Manager) Login(ctx context.Context, creds Credentials) error {
	if err := creds.Validate(); err != nil {
		verr := ErrInvalidCredentials.WithMetadata(map[string]any{
			"validation": err.Error(),
		})
		m.setError(verr.Message)
		return verr
	}

	resp, err := m.api.Login(ctx, creds)
	if err != nil {
		m.logger.Error("login failed: %v", err)
		m.setError(messageOf(err))
		return err
	}

	if resp == nil || resp.User == nil || isAbsent(resp.Token) {
		err := authError("login response is missing user or token")
		m.setError(err.Message)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.install(resp.User, TokenPair{
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
	})
	m.logger.Info("session established for %s (%s)", resp.User.Email, resp.User.Role)
	return nil
}

// Register creates an account. The backend logs the new account in within
// the same response, so a token-bearing reply installs the session just
// like Login.
func (m *Manager) Register(ctx context.Context, reg Registration) error {
	if err := reg.Validate(); err != nil {
		verr := ErrInvalidCredentials.WithMetadata(map[string]any{
			"validation": err.Error(),
		})
		m.setError(verr.Message)
		return verr
	}

	resp, err := m.api.Register(ctx, reg)
	if err != nil {
		m.logger.Error("registration failed: %v", err)
		m.setError(messageOf(err))
		return err
	}

	if resp == nil || resp.User == nil || isAbsent(resp.Token) {
		// account created but not auto-logged-in; nothing to install
		m.clearError()
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.install(resp.User, TokenPair{
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
	})
	return nil
}

// Logout invalidates the session server-side best-effort and always
// clears local state and storage. A network failure never leaves a
// half-logged-out client behind.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.RLock()
	token := m.state.tokens.AccessToken
	m.mu.RUnlock()

	if !isAbsent(token) {
		if err := m.api.Logout(ctx, token); err != nil {
			m.logger.Warn("server logout failed, clearing locally: %v", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.clear()
	m.logger.Info("session cleared")
	return nil
}

// RestoreFromStore seeds the session from persisted values. It never
// fails: corrupted values degrade to an anonymous session with a logged
// warning. Called once per process start by the Bootstrapper.
func (m *Manager) RestoreFromStore(ctx context.Context) {
	access := m.store.Get(KeyToken)
	refresh := m.store.Get(KeyRefreshToken)

	// legacy repair: some upstream flows persisted only the refresh
	// token; promote it so the session survives. Do not extend this to
	// new token kinds, the two have different lifetimes.
	if access == "" && refresh != "" {
		access = refresh
		if err := m.store.Set(KeyToken, refresh); err != nil {
			m.logger.Warn("unable to persist promoted refresh token: %v", err)
		} else {
			m.logger.Info("promoted refresh token into access slot")
		}
	}

	user := m.readStoredUser()
	if user != nil && access == "" {
		// a user without a token cannot satisfy the authenticated
		// invariant; keep the user visible but unauthenticated
		m.logger.Debug("restored user without access token")
	}

	if access != "" {
		m.inspectToken(access)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.user = user
	m.state.tokens = TokenPair{AccessToken: access, RefreshToken: refresh}
}

// VerifySession upgrades a token-only session into a verified one by
// fetching the profile. Any failure clears the session: an unverifiable
// token is treated as no session at all. Concurrent callers share a
// single in-flight round trip, and a result that arrives after the
// session changed (logout, re-login) is discarded.
func (m *Manager) VerifySession(ctx context.Context) error {
	m.mu.RLock()
	token := m.state.tokens.AccessToken
	hasUser := m.state.user != nil
	gen := m.state.generation
	m.mu.RUnlock()

	if hasUser {
		return nil
	}
	if isAbsent(token) {
		return ErrSessionExpired
	}

	result, err, _ := m.verify.Do("verify", func() (any, error) {
		return m.api.Profile(ctx, token)
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.generation != gen {
		m.logger.Debug("discarding stale verify result (gen %d != %d)", gen, m.state.generation)
		return nil
	}

	if err != nil {
		m.logger.Warn("session verification failed, clearing: %v", err)
		m.clear()
		return err
	}

	user, ok := result.(*User)
	if !ok || user == nil {
		m.clear()
		return authError("verification returned no user")
	}

	m.state.user = user
	m.state.err = ""
	m.persistUser(user)
	m.logger.Info("session verified for %s (%s)", user.Email, user.Role)
	return nil
}

// RefreshProfile re-fetches the profile for an authenticated session and
// updates the user in place.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	m.mu.RLock()
	token := m.state.tokens.AccessToken
	gen := m.state.generation
	m.mu.RUnlock()

	if isAbsent(token) {
		return ErrSessionExpired
	}

	user, err := m.api.Profile(ctx, token)
	if err != nil {
		m.setError(messageOf(err))
		return err
	}

	m.applyUser(user, gen)
	return nil
}

// UpdateProfile sends the allow-listed subset of the partial payload and
// applies the server's updated user. Unknown fields are dropped before
// transmission. Errors are mirrored into state and returned so the
// calling form gets a synchronous failure signal.
func (m *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	if err := update.Validate(); err != nil {
		verr := goerrors.Wrap(err, goerrors.CategoryValidation, "invalid profile update")
		m.setError(verr.Message)
		return verr
	}

	m.mu.RLock()
	token := m.state.tokens.AccessToken
	gen := m.state.generation
	m.mu.RUnlock()

	if isAbsent(token) {
		return ErrSessionExpired
	}

	user, err := m.api.UpdateProfile(ctx, token, update.Fields())
	if err != nil {
		m.logger.Error("profile update failed: %v", err)
		m.setError(messageOf(err))
		return err
	}

	m.applyUser(user, gen)
	return nil
}

// ChangePassword performs the password round trip; success produces no
// state change.
func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		verr := goerrors.New("both passwords are required", goerrors.CategoryValidation)
		m.setError(verr.Message)
		return verr
	}

	m.mu.RLock()
	token := m.state.tokens.AccessToken
	m.mu.RUnlock()

	if isAbsent(token) {
		return ErrSessionExpired
	}

	if err := m.api.ChangePassword(ctx, token, oldPassword, newPassword); err != nil {
		m.logger.Error("password change failed: %v", err)
		m.setError(messageOf(err))
		return err
	}

	m.clearError()
	return nil
}

// UploadAvatar uploads a new profile picture and applies the server's
// updated user.
func (m *Manager) UploadAvatar(ctx context.Context, filename string, file io.Reader) error {
	m.mu.RLock()
	token := m.state.tokens.AccessToken
	gen := m.state.generation
	m.mu.RUnlock()

	if isAbsent(token) {
		return ErrSessionExpired
	}

	user, err := m.api.UploadAvatar(ctx, token, filename, file)
	if err != nil {
		m.logger.Error("avatar upload failed: %v", err)
		m.setError(messageOf(err))
		return err
	}

	m.applyUser(user, gen)
	return nil
}

// HandleUnauthorized is the hook the domain REST client calls when any
// endpoint answers 401. It delegates to Logout.
func (m *Manager) HandleUnauthorized() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Logout(ctx); err != nil {
		m.logger.Warn("forced logout failed: %v", err)
	}
}

// ClearError clears the transient error message. Errors are cleared
// explicitly, never as a side effect of unrelated transitions.
func (m *Manager) ClearError() {
	m.clearError()
}

// install replaces identity and tokens together and persists them.
// Callers hold the write lock.
func (m *Manager) install(user *User, tokens TokenPair) {
	m.state.user = user
	m.state.tokens = tokens
	m.state.err = ""
	m.state.generation++

	if err := m.store.Set(KeyToken, tokens.AccessToken); err != nil {
		m.logger.Warn("unable to persist access token: %v", err)
	}
	if tokens.HasRefresh() {
		if err := m.store.Set(KeyRefreshToken, tokens.RefreshToken); err != nil {
			m.logger.Warn("unable to persist refresh token: %v", err)
		}
	} else {
		m.store.Remove(KeyRefreshToken)
	}
	m.persistUser(user)
}

// clear wipes state and storage together. Callers hold the write lock.
func (m *Manager) clear() {
	m.state.clear()
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("unable to clear session store: %v", err)
	}
}

// applyUser installs an updated user unless the session has moved on
// since the round trip started.
func (m *Manager) applyUser(user *User, gen uint64) {
	if user == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.generation != gen {
		m.logger.Debug("discarding stale profile result")
		return
	}
	m.state.user = user
	m.state.err = ""
	m.persistUser(user)
}

// persistUser writes the user JSON through the store. Callers hold the
// write lock.
func (m *Manager) persistUser(user *User) {
	if user == nil {
		m.store.Remove(KeyUser)
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		m.logger.Warn("unable to encode user for storage: %v", err)
		return
	}
	if err := m.store.Set(KeyUser, string(data)); err != nil {
		m.logger.Warn("unable to persist user: %v", err)
	}
}

// readStoredUser parses the persisted user, degrading to nil on any
// corruption.
func (m *Manager) readStoredUser() *User {
	raw := m.store.Get(KeyUser)
	if raw == "" {
		return nil
	}

	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		m.logger.Warn("persisted user is corrupted, discarding: %v", err)
		m.store.Remove(KeyUser)
		return nil
	}

	if !user.Role.IsValid() {
		m.logger.Warn("persisted user has unknown role %q, discarding", user.Role)
		m.store.Remove(KeyUser)
		return nil
	}

	return &user
}

// inspectToken logs expiry information for a restored JWT. Tokens are
// opaque to this client; a token that does not parse is left for the
// server to judge.
func (m *Manager) inspectToken(token string) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		m.logger.Debug("restored token is not a JWT, deferring to server")
		return
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	if exp.Before(time.Now()) {
		m.logger.Info("restored access token expired at %s, verification will clear it", exp.Format(time.RFC3339))
	}
}

func (m *Manager) setError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.err = msg
}

func (m *Manager) clearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.err = ""
}

func (m *Manager) setLoading(loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.loading = loading
}
