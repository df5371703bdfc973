package session

import (
	"context"
	"net/http"
	"strconv"

	"github.com/vitrinelabs/vitrine/core"
	"github.com/vitrinelabs/vitrine/transport"
)

const usersBasePath = "/MS-CLIENT/api/v1/users"

// Manager performs authentication and profile operations and publishes the
// resulting Session to the store. It is the only component allowed to
// mutate session state, with one exception: the auth transport routes
// credential invalidation through Invalidate.
type Manager struct {
	api    *transport.Client
	creds  core.CredentialStore
	store  *Store
	nav    core.Navigator
	logger core.Logger
}

// NewManager creates a session manager and restores any session found in
// the credential store. A missing, expired or corrupt stored credential
// leaves the session unauthenticated and clears the slot.
func NewManager(api *transport.Client, creds core.CredentialStore, store *Store, nav core.Navigator, logger core.Logger) *Manager {
	if nav == nil {
		nav = &core.NoOpNavigator{}
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	m := &Manager{api: api, creds: creds, store: store, nav: nav, logger: logger}
	m.restore(context.Background())
	return m
}

// restore rebuilds the Session from the credential slot at construction
func (m *Manager) restore(ctx context.Context) {
	stored, err := m.creds.Load(ctx)
	if err != nil {
		m.logger.Warn("Stored credentials unreadable, starting unauthenticated", map[string]interface{}{
			"operation": "session_restore",
			"error":     err.Error(),
		})
		_ = m.creds.Clear(ctx)
		return
	}
	if stored == nil || stored.AccessToken == "" || stored.User == nil {
		return
	}
	if tokenExpired(stored.AccessToken) {
		m.logger.Info("Stored access token expired, starting unauthenticated", map[string]interface{}{
			"operation": "session_restore",
		})
		_ = m.creds.Clear(ctx)
		return
	}

	m.store.publish(core.Session{
		Authenticated: true,
		User:          stored.User,
		Role:          core.DeriveRole(stored.User.Roles),
	}, stored.AccessToken)
}

// Login authenticates against the auth service. On success the token and
// derived user are persisted to the credential store and the new Session is
// published to all subscribers.
func (m *Manager) Login(ctx context.Context, email, password string) (core.Session, error) {
	var resp core.LoginResponse
	err := m.api.Do(ctx, transport.Request{
		Op:     "session.Login",
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   core.LoginRequest{Email: email, Password: password},
		Out:    &resp,
		Messages: transport.StatusMessages{
			http.StatusUnauthorized: "invalid email or password",
		},
	})
	if err != nil {
		return core.Session{}, err
	}

	user := &core.User{
		ID:       strconv.FormatInt(resp.UserID, 10),
		Username: resp.Email,
		Email:    resp.Email,
		Roles:    []string{resp.Role},
	}

	if err := m.creds.Save(ctx, &core.Credentials{AccessToken: resp.Token, User: user}); err != nil {
		m.logger.Error("Failed to persist credentials", map[string]interface{}{
			"operation": "session_login",
			"error":     err.Error(),
		})
	}

	sess := core.Session{
		Authenticated: true,
		User:          user,
		Role:          core.DeriveRole(user.Roles),
	}
	m.store.publish(sess, resp.Token)

	m.logger.Info("Login succeeded", map[string]interface{}{
		"operation": "session_login",
		"user_id":   user.ID,
		"role":      string(sess.Role),
	})
	return sess, nil
}

// Register delegates to the auth service. Registration does not imply
// login, so the Session is left untouched.
func (m *Manager) Register(ctx context.Context, req core.RegisterRequest) (core.Registration, error) {
	var reg core.Registration
	err := m.api.Do(ctx, transport.Request{
		Op:     "session.Register",
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body:   req,
		Out:    &reg,
		Messages: transport.StatusMessages{
			http.StatusBadRequest: "registration was rejected, please check the submitted details",
			http.StatusConflict:   "an account with this email already exists",
		},
	})
	return reg, err
}

// Logout best-effort informs the backend when a refresh credential is
// present, then unconditionally clears the credential slot, resets the
// Session and navigates to the login entry point. A failing backend call
// never prevents the local teardown.
func (m *Manager) Logout(ctx context.Context) {
	stored, err := m.creds.Load(ctx)
	if err == nil && stored != nil && stored.RefreshToken != "" {
		logoutErr := m.api.Do(ctx, transport.Request{
			Op:     "session.Logout",
			Method: http.MethodPost,
			Path:   "/auth/logout",
			Body:   map[string]string{"refreshToken": stored.RefreshToken},
		})
		if logoutErr != nil {
			m.logger.Warn("Backend logout failed, proceeding with local teardown", map[string]interface{}{
				"operation": "session_logout",
				"error":     logoutErr.Error(),
			})
		}
	}
	m.clearLocal(ctx)
}

// Invalidate tears the session down after an authorization failure. Wired
// into the auth transport; business logic never calls this directly.
func (m *Manager) Invalidate() {
	m.clearLocal(context.Background())
}

func (m *Manager) clearLocal(ctx context.Context) {
	if err := m.creds.Clear(ctx); err != nil {
		m.logger.Error("Failed to clear credential slot", map[string]interface{}{
			"operation": "session_clear",
			"error":     err.Error(),
		})
	}
	m.store.publish(core.Session{}, "")
	m.nav.NavigateToLogin()
}

// Profile fetches the canonical profile from the user service and
// republishes the User inside the current Session without altering the
// authenticated flag.
func (m *Manager) Profile(ctx context.Context) (*core.User, error) {
	sess := m.store.Snapshot()
	if sess.User == nil || sess.User.ID == "" {
		return nil, core.NewAPIError("session.Profile", 0, "no authenticated user", core.ErrNotAuthenticated)
	}

	var profile core.UserProfile
	err := m.api.Do(ctx, transport.Request{
		Op:     "session.Profile",
		Method: http.MethodGet,
		Path:   usersBasePath + "/" + sess.User.ID,
		Out:    &profile,
		Messages: transport.StatusMessages{
			http.StatusNotFound: "your account could not be found",
		},
	})
	if err != nil {
		return nil, err
	}

	user := profile.AsUser()
	m.republishUser(user)
	return user, nil
}

// UpdateProfileRequest carries the mutable profile fields
type UpdateProfileRequest struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Password  string `json:"password,omitempty"`
}

// UpdateProfile mutates the backend profile and republishes the result
func (m *Manager) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*core.User, error) {
	sess := m.store.Snapshot()
	if sess.User == nil || sess.User.ID == "" {
		return nil, core.NewAPIError("session.UpdateProfile", 0, "no authenticated user", core.ErrNotAuthenticated)
	}

	var profile core.UserProfile
	err := m.api.Do(ctx, transport.Request{
		Op:     "session.UpdateProfile",
		Method: http.MethodPut,
		Path:   usersBasePath + "/" + sess.User.ID,
		Body:   req,
		Out:    &profile,
		Messages: transport.StatusMessages{
			http.StatusBadRequest: "profile update was rejected, please check the submitted details",
			http.StatusNotFound:   "your account could not be found",
		},
	})
	if err != nil {
		return nil, err
	}

	user := profile.AsUser()
	m.republishUser(user)
	return user, nil
}

// DeleteProfile removes the account and logs out
func (m *Manager) DeleteProfile(ctx context.Context) error {
	sess := m.store.Snapshot()
	if sess.User == nil || sess.User.ID == "" {
		return core.NewAPIError("session.DeleteProfile", 0, "no authenticated user", core.ErrNotAuthenticated)
	}

	err := m.api.Do(ctx, transport.Request{
		Op:     "session.DeleteProfile",
		Method: http.MethodDelete,
		Path:   usersBasePath + "/" + sess.User.ID,
		Messages: transport.StatusMessages{
			http.StatusNotFound: "your account could not be found",
		},
	})
	if err != nil {
		return err
	}

	m.Logout(ctx)
	return nil
}

// republishUser swaps the User inside the Session, re-deriving the role
// once, and refreshes the persisted user record alongside the token.
func (m *Manager) republishUser(user *core.User) {
	token := m.store.Token()
	sess := m.store.Snapshot()
	sess.User = user
	if len(user.Roles) > 0 {
		sess.Role = core.DeriveRole(user.Roles)
	}
	m.store.publish(sess, token)

	ctx := context.Background()
	if stored, err := m.creds.Load(ctx); err == nil && stored != nil {
		stored.User = user
		if err := m.creds.Save(ctx, stored); err != nil {
			m.logger.Warn("Failed to refresh stored user record", map[string]interface{}{
				"operation": "session_republish",
				"error":     err.Error(),
			})
		}
	}
}

// IsLoggedIn reports whether the latest published Session is authenticated.
// Never blocks, never performs I/O.
func (m *Manager) IsLoggedIn() bool {
	return m.store.Snapshot().Authenticated
}

// IsAdmin reports whether the latest published Session carries the ADMIN role
func (m *Manager) IsAdmin() bool {
	return m.store.Snapshot().Role == core.RoleAdmin
}

// Token returns the access token of the latest published Session, or the
// empty string when unauthenticated
func (m *Manager) Token() string {
	return m.store.Token()
}

// Session returns the latest published Session
func (m *Manager) Session() core.Session {
	return m.store.Snapshot()
}

// Subscribe registers fn for session updates; the returned function cancels
func (m *Manager) Subscribe(fn func(core.Session)) func() {
	return m.store.Subscribe(fn)
}
