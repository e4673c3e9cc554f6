package status

import "errors"

var (
	ErrTicketNotFound     = errors.New("ticket: ticket not found")
	ErrTicketNotValid     = errors.New("ticket: ticket is not in valid status")
	ErrTransitionRejected = errors.New("ticket: status transition lost to a concurrent update")
	ErrTransitionInvalid  = errors.New("ticket: status transition not allowed")
	ErrEntropy            = errors.New("credential: entropy source failed")
	ErrCorruptSecret      = errors.New("credential: stored secret is not valid base32")
	ErrMissingIdentity    = errors.New("credential: ticket id and owner id are required")
	ErrMalformedPayload   = errors.New("credential: malformed payload")
	ErrAuthUnavailable    = errors.New("auth: no authentication provider configured")
	ErrUnauthenticated    = errors.New("auth: scanner not authenticated")
	ErrForbiddenScanner   = errors.New("auth: caller is not allowed to scan")
	ErrCircuitOpen        = errors.New("breaker: circuit breaker is open")
	ErrTooManyHalfOpen    = errors.New("breaker: too many requests when circuit breaker is half open")
)
