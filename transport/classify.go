package transport

import (
	"net/http"

	"github.com/vitrinelabs/vitrine/core"
)

// StatusMessages maps HTTP status codes to the fixed, user-facing message a
// service wants surfaced for that code. Codes without an entry fall back to
// generic messages.
type StatusMessages map[int]string

// Classify translates a non-2xx response into a typed error. The returned
// error wraps one of the core sentinels so callers can branch with errors.Is
// while the message stays stable and human-readable.
func Classify(op string, status int, msgs StatusMessages) error {
	message := msgs[status]

	switch {
	case status == http.StatusUnauthorized:
		if message == "" {
			message = "your session has expired, please log in again"
		}
		return core.NewAPIError(op, status, message, core.ErrUnauthorized)
	case status == http.StatusNotFound:
		if message == "" {
			message = "the requested resource was not found"
		}
		return core.NewAPIError(op, status, message, core.ErrNotFound)
	case status >= 400 && status < 500:
		if message == "" {
			message = "the request was rejected, please check your input"
		}
		return core.NewAPIError(op, status, message, core.ErrValidation)
	default:
		if message == "" {
			message = "service unavailable, please try again later"
		}
		return core.NewAPIError(op, status, message, core.ErrServer)
	}
}
