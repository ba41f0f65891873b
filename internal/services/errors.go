package services

import "github.com/postertrack/backend/internal/apperr"

// Sentinel errors callers branch on. They carry an apperr kind so the HTTP layer maps
// them without special cases.
var (
	ErrInvalidCredentials = &apperr.Error{Kind: apperr.KindUnauthorized, Message: "invalid email or password"}
	ErrSessionInvalid     = &apperr.Error{Kind: apperr.KindUnauthorized, Message: "invalid or expired token"}
	ErrSessionRevoked     = &apperr.Error{Kind: apperr.KindUnauthorized, Message: "session has been revoked"}
	ErrUserInactive       = &apperr.Error{Kind: apperr.KindUnauthorized, Message: "account is deactivated"}
	ErrTokenInvalid       = &apperr.Error{Kind: apperr.KindValidation, Message: "password reset token is invalid or expired"}
	ErrEmployeeOnly       = &apperr.Error{Kind: apperr.KindForbidden, Message: "only company employees can perform this action"}
)
