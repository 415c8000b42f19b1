package resputil

type ErrorCode int

const (
	OK ErrorCode = 0

	// General
	InvalidRequest ErrorCode = 40001

	// Field-level validation failures, reported as a list of field+message pairs
	ValidationFailed ErrorCode = 40002

	// Assignee is not a member of the task's project
	InvalidAssignee ErrorCode = 40003

	// Token
	TokenExpired ErrorCode = 40101
	TokenInvalid ErrorCode = 40102

	// Login
	InvalidCredentials ErrorCode = 40103
	UserInactive       ErrorCode = 40104

	// Caller is not a member of the project
	AccessDenied ErrorCode = 40301

	// Caller is a member but lacks the required capability
	InsufficientPermissions ErrorCode = 40302

	// Entity absent
	NotFound ErrorCode = 40401

	// Unique-constraint violation (e.g. re-registering an email)
	DuplicateKey ErrorCode = 40901

	// Indicates laziness of the developer
	// Frontend will directly print the message without any translation
	NotSpecified ErrorCode = 99999
)
