package core

import "context"

// Logger interface - minimal logging interface
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})
}

// Credentials is the durable record identifying an authenticated session.
// The three fields live and die together: partial persistence is never valid.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// CredentialStore holds the current credentials in a durable per-profile slot.
// Load returns (nil, nil) when the slot is empty. A store that cannot decode
// what it finds must return an error so the caller can force the
// unauthenticated state.
type CredentialStore interface {
	Load(ctx context.Context) (*Credentials, error)
	Save(ctx context.Context, creds *Credentials) error
	Clear(ctx context.Context) error
}

// Navigator is the hook the SDK uses to send the UI back to the login entry
// point after a logout or a credential invalidation. Host applications plug
// in their own routing here.
type Navigator interface {
	NavigateToLogin()
}

// NavigatorFunc adapts a plain function to the Navigator interface.
type NavigatorFunc func()

func (f NavigatorFunc) NavigateToLogin() { f() }

// Default no-op implementations

// NoOpLogger provides a no-op logger implementation
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Error(msg string, fields map[string]interface{}) {}
func (n *NoOpLogger) Warn(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Debug(msg string, fields map[string]interface{}) {}

// NoOpNavigator provides a no-op navigator implementation
type NoOpNavigator struct{}

func (n *NoOpNavigator) NavigateToLogin() {}
