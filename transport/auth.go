// Package transport implements the authenticated HTTP layer shared by every
// service client: bearer credential injection, centralized handling of
// authorization failures, retry with exponential backoff, client-side rate
// limiting and response classification.
package transport

import (
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/vitrinelabs/vitrine/core"
)

// AuthTransport is an http.RoundTripper applied to every outbound request.
// When the credential store holds a token it is attached as a bearer
// credential header; requests are otherwise sent unmodified, so a missing
// token means an anonymous request, not a blocked one.
//
// On receiving a 401 the transport invokes OnUnauthorized exactly once per
// response and then hands the response back unchanged, so the caller's
// failure path still executes. This is the single point of truth for
// "my credential became invalid" - no other component performs this
// invalidation.
type AuthTransport struct {
	Base        http.RoundTripper
	Credentials core.CredentialStore
	Logger      core.Logger

	// OnUnauthorized clears the credential slot, resets the session and
	// navigates to the login entry point. Wired by the SDK entry point.
	OnUnauthorized func()

	limiter *rate.Limiter
}

// NewAuthTransport creates an AuthTransport over the given base transport
func NewAuthTransport(base http.RoundTripper, creds core.CredentialStore, logger core.Logger) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &AuthTransport{
		Base:        base,
		Credentials: creds,
		Logger:      logger,
	}
}

// SetRateLimit enables client-side throttling of outbound requests
func (t *AuthTransport) SetRateLimit(requestsPerSecond float64, burst int) {
	t.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// RoundTrip implements http.RoundTripper
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	// RoundTrippers must not mutate the caller's request
	out := req.Clone(req.Context())
	out.Header.Set("X-Request-ID", uuid.New().String())

	if t.Credentials != nil {
		creds, err := t.Credentials.Load(req.Context())
		if err != nil {
			t.Logger.Warn("Credential slot unreadable, sending anonymous request", map[string]interface{}{
				"operation": "auth_transport",
				"error":     err.Error(),
			})
		} else if creds != nil && creds.AccessToken != "" {
			out.Header.Set("Authorization", "Bearer "+creds.AccessToken)
		}
	}

	resp, err := t.Base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && t.OnUnauthorized != nil {
		t.Logger.Warn("Unauthorized response, invalidating session", map[string]interface{}{
			"operation": "auth_invalidation",
			"method":    req.Method,
			"url":       req.URL.Path,
		})
		t.OnUnauthorized()
	}

	return resp, nil
}
