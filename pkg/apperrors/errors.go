package apperrors

import "errors"

var (
	ErrTenantDescriptor = errors.New("invalid tenant connection descriptor")
	ErrConnection       = errors.New("datasource connection failed")
	ErrNoActiveHandle   = errors.New("no active connection handle")
	ErrRouterClosed     = errors.New("connection router closed")
)
