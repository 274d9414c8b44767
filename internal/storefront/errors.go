package storefront

import (
	"errors"

	"github.com/safar/storefront/internal/client"
)

// Precondition failures. These are returned before any request is sent.
var (
	ErrLoginRequired      = errors.New("login required")
	ErrBlankComment       = errors.New("comment is empty")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrMissingCredentials = errors.New("username and password are required")
)

// ErrLoginFailed is returned by Login for any rejection. The server's
// reason is deliberately not passed through.
var ErrLoginFailed = errors.New("login failed")

// IsPrecondition reports whether err was raised client-side without a
// network round-trip.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrLoginRequired) ||
		errors.Is(err, ErrBlankComment) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrMissingCredentials)
}

// Message turns err into text for the shopper. Server validation details
// and precondition failures are shown as-is; anything else (network
// errors, malformed responses) becomes fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrLoginFailed) {
		return ErrLoginFailed.Error()
	}
	if IsPrecondition(err) {
		return err.Error()
	}
	if apiErr, ok := client.AsAPIError(err); ok && apiErr.HasDetail() {
		return apiErr.Detail
	}
	return fallback
}
