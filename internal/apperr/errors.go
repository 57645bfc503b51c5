package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure for the client. Values are stable wire strings.
type Kind string

const (
	KindLocationUnavailable Kind = "LOCATION_UNAVAILABLE"
	KindGeocodingNoResults  Kind = "GEOCODING_NO_RESULTS"
	KindGeocodingFailed     Kind = "GEOCODING_FAILED"
	KindRouteNotFound       Kind = "ROUTE_NOT_FOUND"
	KindNetwork             Kind = "NETWORK_ERROR"
	KindConfigMissing       Kind = "config.missing"
	KindInvalidRouteID      Kind = "INVALID_ROUTE_ID"
	KindUnknown             Kind = "UNKNOWN_ERROR"
)

// MissingAPIKeyWarning is shown whenever a maps request is attempted without a key.
const MissingAPIKeyWarning = "Missing Google Maps API key. Set GOOGLE_MAPS_API_KEY in your .env file or environment."

var defaultMessages = map[Kind]string{
	KindLocationUnavailable: "Unable to get your current location. Please check your device settings and try again.",
	KindGeocodingNoResults:  "No results found for that address. Please try a more specific location.",
	KindGeocodingFailed:     "Unable to find that destination. Please try again.",
	KindRouteNotFound:       "No walking routes found for that destination.",
	KindNetwork:             "Network error. Please check your connection and try again.",
	KindConfigMissing:       MissingAPIKeyWarning,
	KindInvalidRouteID:      "That route is not part of the current route set.",
	KindUnknown:             "An unexpected error occurred. Please try again.",
}

// DefaultMessage returns the user-facing text for a kind.
func DefaultMessage(kind Kind) string {
	if msg, ok := defaultMessages[kind]; ok {
		return msg
	}
	return defaultMessages[KindUnknown]
}

// Error is a classified failure carrying a user-facing message.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error. An empty message falls back to the kind's default text.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = DefaultMessage(kind)
	}
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies err under kind, keeping it as the cause.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: DefaultMessage(kind), Err: err}
}

// Wrapf is Wrap with a custom message.
func Wrapf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// As extracts the classified error from err. Unclassified errors are mapped
// to NETWORK_ERROR for context cancellation and UNKNOWN_ERROR otherwise.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindNetwork, err)
	}
	return Wrap(KindUnknown, err)
}

// KindOf returns the kind of err, or "" for a nil error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return As(err).Kind
}
