package errs

import "errors"

// Kind groups error codes into the classes callers act on.
type Kind string

const (
	KindAuth          Kind = "auth"
	KindNotAuthorized Kind = "not_authorized"
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindRateLimited   Kind = "rate_limited"
	KindStore         Kind = "store"
	KindUnknown       Kind = "unknown"
)

var kindByCode = map[int]Kind{
	ErrInvalidParams:         KindValidation,
	ErrInvalidJSONFormat:     KindValidation,
	ErrUnsupportedEvent:      KindValidation,
	ErrMessageContentEmpty:   KindValidation,
	ErrMessageContentTooLong: KindValidation,
	ErrInvalidCursor:         KindValidation,
	ErrInvalidLimit:          KindValidation,
	ErrRateLimitExceeded:     KindRateLimited,
	ErrChannelNotFound:       KindNotFound,
	ErrAuthFailed:            KindAuth,
	ErrNotAuthorized:         KindNotAuthorized,
	ErrStoreFailed:           KindStore,
	ErrUnknown:               KindUnknown,
}

// KindOf classifies err. Errors without a CustomError in their chain are KindUnknown.
func KindOf(err error) Kind {
	var customErr *CustomError
	if !errors.As(err, &customErr) {
		return KindUnknown
	}

	if kind, ok := kindByCode[customErr.Code]; ok {
		return kind
	}
	return KindUnknown
}
