/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both inside the server
and in acknowledgments and HTTP responses sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that a request body or WebSocket frame is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrUnsupportedEvent indicates that a WebSocket frame carried an unknown event type.
	ErrUnsupportedEvent = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Channel and Message Errors
const (
	// ErrChannelNotFound indicates that the referenced channel does not exist.
	ErrChannelNotFound = 2101

	// ErrMessageContentEmpty indicates that message content was empty after trimming.
	ErrMessageContentEmpty = 2201

	// ErrMessageContentTooLong indicates that message content exceeded the maximum length.
	ErrMessageContentTooLong = 2202

	// ErrInvalidCursor indicates that a history cursor could not be parsed.
	ErrInvalidCursor = 2203

	// ErrInvalidLimit indicates that a history page size was out of range.
	ErrInvalidLimit = 2204
)

// 3xxx: Authentication and Authorization Errors
const (
	// ErrAuthFailed indicates a missing, malformed, expired or unverifiable credential.
	ErrAuthFailed = 3101

	// ErrNotAuthorized indicates the identity is known but may not perform the operation.
	ErrNotAuthorized = 3102
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStoreFailed indicates a failure of the durable message or membership store.
	ErrStoreFailed = 5001
)
