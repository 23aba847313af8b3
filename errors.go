package squeeze

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// AuthError variants. These surface as 401-equivalent rejections with no retry.
var (
	// ErrMissingToken is returned when a route requires authentication and
	// the resolver found no credential in any transport location.
	ErrMissingToken = errors.New("authentication token required", errors.CategoryAuth).
			WithTextCode("MISSING_TOKEN").
			WithCode(errors.CodeUnauthorized)

	// ErrTokenMalformed is returned when the credential payload cannot be decoded.
	ErrTokenMalformed = errors.New("malformed authentication token", errors.CategoryAuth).
				WithTextCode("MALFORMED_TOKEN").
				WithCode(errors.CodeUnauthorized)

	// ErrTokenExpired is returned when expiry verification is enabled and the
	// token's expiry timestamp is in the past.
	ErrTokenExpired = errors.New("authentication token expired", errors.CategoryAuth).
			WithTextCode("EXPIRED_TOKEN").
			WithCode(errors.CodeUnauthorized)
)

// AuthzError variants, distinct so callers can map to the right response.
var (
	ErrInsufficientRole = errors.New("insufficient role for this resource", errors.CategoryAuthz).
				WithTextCode("INSUFFICIENT_ROLE").
				WithCode(errors.CodeForbidden)

	ErrOrgMismatch = errors.New("principal does not belong to the required organization", errors.CategoryAuthz).
			WithTextCode("ORG_MISMATCH").
			WithCode(errors.CodeForbidden)
)

// IsAuthError reports whether err belongs to the authentication taxonomy.
func IsAuthError(err error) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryAuth
	}
	return false
}

// IsAuthzError reports whether err belongs to the authorization taxonomy.
func IsAuthzError(err error) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryAuthz
	}
	return false
}

// IsTokenExpiredError checks for expired tokens, including errors coming from
// the jwt library before they are wrapped.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == ErrTokenExpired.TextCode {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError checks for undecodable tokens by message, covering both
// our taxonomy and raw jwt parse errors.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == ErrTokenMalformed.TextCode {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
