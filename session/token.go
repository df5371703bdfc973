package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpired reports whether a stored access token carries an exp claim
// that has already passed. The signature is not verified - only the backend
// can do that - this is a local check so a restart does not restore a
// session the gateway would reject anyway. Opaque (non-JWT) tokens are
// treated as still valid.
func tokenExpired(token string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
