/*
Package errs provides custom error types and application-level error code constants.

This file maps every error code to its CustomError template, so acknowledgments, HTTP
responses and internal classification agree on message and status.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
// The key is the error code (int); the value carries the client message and HTTP status.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrUnsupportedEvent:  {Code: ErrUnsupportedEvent, Message: "Unsupported event type.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Channel and Message Errors
	ErrChannelNotFound:       {Code: ErrChannelNotFound, Message: "Channel not found.", Status: http.StatusNotFound},
	ErrMessageContentEmpty:   {Code: ErrMessageContentEmpty, Message: "Message cannot be empty.", Status: http.StatusBadRequest},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long (max %d characters).", Status: http.StatusBadRequest},
	ErrInvalidCursor:         {Code: ErrInvalidCursor, Message: "Invalid history cursor.", Status: http.StatusBadRequest},
	ErrInvalidLimit:          {Code: ErrInvalidLimit, Message: "Invalid page size.", Status: http.StatusBadRequest},

	// 3xxx: Authentication and Authorization Errors
	ErrAuthFailed:    {Code: ErrAuthFailed, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrNotAuthorized: {Code: ErrNotAuthorized, Message: "You are not a member of this channel.", Status: http.StatusForbidden},

	// 5xxx: Internal System Errors
	ErrUnknown:     {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStoreFailed: {Code: ErrStoreFailed, Message: "Message service is unavailable. Please try again.", Status: http.StatusInternalServerError},
}
