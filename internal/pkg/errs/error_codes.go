/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
and in responses sent to clients, including scoped WebSocket error frames.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON is malformed.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Discussion and Real-Time Session Errors
const (
	// ErrDiscussionNotFound indicates that the requested discussion does not exist.
	ErrDiscussionNotFound = 2101

	// ErrNotDiscussionAuthor indicates an author-only action attempted by a non-author.
	ErrNotDiscussionAuthor = 2102

	// ErrBannedFromDiscussion indicates the participant is on the discussion's ban list.
	ErrBannedFromDiscussion = 2103

	// ErrNotJoined indicates a room action from a connection that never joined the room.
	ErrNotJoined = 2104

	// ErrBannedByModerator is the scoped error sent to a participant evicted by a live ban.
	ErrBannedByModerator = 2105

	// ErrMessageContentTooLong indicates that the chat message exceeded the size limit.
	ErrMessageContentTooLong = 2201
)

// 3xxx: Post and Content Errors
const (
	// ErrPostNotFound indicates that the requested post does not exist.
	ErrPostNotFound = 3101

	// ErrNotPostOwner indicates a mutation attempted by someone other than the post's author.
	ErrNotPostOwner = 3102

	// ErrFileSizeTooLarge indicates that the uploaded image exceeded the size limit.
	ErrFileSizeTooLarge = 3201

	// ErrFileTypeInvalid indicates that the uploaded file type is not allowed.
	ErrFileTypeInvalid = 3202

	// ErrFileStorageFailed indicates a failure in the object storage backend.
	ErrFileStorageFailed = 3203
)

// 4xxx: User, Session, and Security Errors
const (
	// ErrUnauthorized indicates a protected route accessed without a valid identity.
	ErrUnauthorized = 4001

	// ErrInvalidCredentials indicates an email/password mismatch at login.
	ErrInvalidCredentials = 4002

	// ErrEmailExists indicates the signup email is already registered.
	ErrEmailExists = 4003

	// ErrNicknameExists indicates the requested nickname is already taken.
	ErrNicknameExists = 4004

	// ErrUserNotFound indicates the referenced user account does not exist.
	ErrUserNotFound = 4005

	// ErrInvalidPassword indicates the password failed validation rules.
	ErrInvalidPassword = 4006

	// ErrOldPasswordInvalid indicates the current password supplied for a change was wrong.
	ErrOldPasswordInvalid = 4007

	// ErrVerificationCodeMismatch indicates the mail verification code did not match.
	ErrVerificationCodeMismatch = 4008

	// ErrMailDeliveryFailed indicates the verification mail could not be sent.
	ErrMailDeliveryFailed = 4009

	// ErrAlreadyBlocked indicates the target user is already on the block list.
	ErrAlreadyBlocked = 4010

	// ErrSocialLoginOnly indicates a password flow attempted on a social sign-up account.
	ErrSocialLoginOnly = 4011
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
