/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to
standardize HTTP responses, WebSocket error frames, and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
// A zero Status means HTTP 200 with a non-zero business code in the envelope.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Discussion and Real-Time Session Errors
	ErrDiscussionNotFound:    {Code: ErrDiscussionNotFound, Message: "Discussion not found.", Status: http.StatusNotFound},
	ErrNotDiscussionAuthor:   {Code: ErrNotDiscussionAuthor, Message: "Only the discussion author can do that."},
	ErrBannedFromDiscussion:  {Code: ErrBannedFromDiscussion, Message: "You are banned from this discussion."},
	ErrNotJoined:             {Code: ErrNotJoined, Message: "Join the discussion before sending messages."},
	ErrBannedByModerator:     {Code: ErrBannedByModerator, Message: "You have been banned from this discussion."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},

	// 3xxx: Post and Content Errors
	ErrPostNotFound:      {Code: ErrPostNotFound, Message: "Post not found.", Status: http.StatusNotFound},
	ErrNotPostOwner:      {Code: ErrNotPostOwner, Message: "Only the post author can do that.", Status: http.StatusForbidden},
	ErrFileSizeTooLarge:  {Code: ErrFileSizeTooLarge, Message: "File is too large.", Status: http.StatusBadRequest},
	ErrFileTypeInvalid:   {Code: ErrFileTypeInvalid, Message: "File type is not allowed.", Status: http.StatusBadRequest},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},

	// 4xxx: User, Session, and Security Errors
	ErrUnauthorized:             {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrInvalidCredentials:       {Code: ErrInvalidCredentials, Message: "Incorrect email or password.", Status: http.StatusUnauthorized},
	ErrEmailExists:              {Code: ErrEmailExists, Message: "Email already exists.", Status: http.StatusConflict},
	ErrNicknameExists:           {Code: ErrNicknameExists, Message: "Nickname already exists.", Status: http.StatusConflict},
	ErrUserNotFound:             {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusNotFound},
	ErrInvalidPassword:          {Code: ErrInvalidPassword, Message: "Invalid password.", Status: http.StatusBadRequest},
	ErrOldPasswordInvalid:       {Code: ErrOldPasswordInvalid, Message: "Current password is incorrect.", Status: http.StatusBadRequest},
	ErrVerificationCodeMismatch: {Code: ErrVerificationCodeMismatch, Message: "Authentication code does not match.", Status: http.StatusBadRequest},
	ErrMailDeliveryFailed:       {Code: ErrMailDeliveryFailed, Message: "Failed to send mail.", Status: http.StatusBadGateway},
	ErrAlreadyBlocked:           {Code: ErrAlreadyBlocked, Message: "Already blocked user.", Status: http.StatusConflict},
	ErrSocialLoginOnly:          {Code: ErrSocialLoginOnly, Message: "This feature is not available to social sign-up users.", Status: http.StatusBadRequest},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
