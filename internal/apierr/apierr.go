// Package apierr provides the structured error taxonomy surfaced by the
// platform and simulator HTTP handlers.
package apierr

import (
	"errors"
	"fmt"
)

// Kind is a stable error code returned to callers as {ok:false, error:<kind>}.
type Kind string

const (
	MissingArgument      Kind = "missing_argument"
	MissingRequiredField Kind = "missing_required_field"
	InvalidAuth          Kind = "invalid_auth"
	InvalidConfig        Kind = "invalid_config"
	NoWebsocketConn      Kind = "no_websocket_connection"
	RegistrationFailed   Kind = "registration_failed"
	UnknownMethod        Kind = "unknown_method"
	MessageNotFound      Kind = "message_not_found"
	ViewNotFound         Kind = "view_not_found"
	UserNotFound         Kind = "user_not_found"
	FileNotFound         Kind = "file_not_found"
	ChannelExists        Kind = "channel_exists"
	ChannelNotFound      Kind = "channel_not_found"
	CannotDeletePreset   Kind = "cannot_delete_preset"
	ExpiredTriggerID     Kind = "expired_trigger_id"
	NoReaction           Kind = "no_reaction"
	InvalidJSON          Kind = "invalid_json"
	InternalError        Kind = "internal_error"
)

// httpStatus lists the kinds with an explicit status code; every kind not
// listed here maps to 400.
var httpStatus = map[Kind]int{
	NoWebsocketConn:    503,
	RegistrationFailed: 500,
	UnknownMethod:      404,
	InvalidJSON:        400,
	InternalError:      500,
}

// Error is a Kind bound to a human-readable message, satisfying the error
// interface so call sites can use errors.Is/errors.As against sentinels.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error for the given kind wrapping an underlying cause.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

// HTTPStatus returns the status code conventionally associated with kind.
// Most lookup/precondition failures map to 400; a handful carry their own
// code per spec.md §7.
func HTTPStatus(kind Kind) int {
	if s, ok := httpStatus[kind]; ok {
		return s
	}
	return 400
}

// As extracts an *Error from err, if any is present in its chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
