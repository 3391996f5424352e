package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("missing token")
	ErrMalformedToken     = errors.New("malformed token")
	ErrInvalidSignature   = errors.New("invalid token signature")
	ErrExpired            = errors.New("token expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrEncoding           = errors.New("token encoding failed")
	ErrStoreUnavailable   = errors.New("user store unavailable")
)

var kinds = []struct {
	err   error
	label string
}{
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrMissingToken, "missing_token"},
	{ErrMalformedToken, "malformed_token"},
	{ErrInvalidSignature, "invalid_signature"},
	{ErrExpired, "expired"},
	{ErrUserNotFound, "user_not_found"},
	{ErrEncoding, "encoding_error"},
	{ErrStoreUnavailable, "store_unavailable"},
}

// Kind returns a stable label for err, used in logs and metric labels.
// It never includes the error text itself.
func Kind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.label
		}
	}
	return "unknown"
}
