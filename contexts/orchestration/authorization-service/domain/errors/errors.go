package errors

import "errors"

var (
	ErrUnauthorized          = errors.New("caller is not the owner or a sub-owner")
	ErrUnknownLabel          = errors.New("authorization label not found")
	ErrLabelExists           = errors.New("authorization label already exists")
	ErrInvalidInput          = errors.New("authorization input is invalid")
	ErrEmptySubroutine       = errors.New("subroutine has no functions")
	ErrMixedDomainSubroutine = errors.New("subroutine functions span multiple domains")
	ErrDisabled              = errors.New("authorization is disabled")
	ErrNotActive             = errors.New("authorization is expired or not yet valid")
	ErrConcurrencyLimit      = errors.New("authorization concurrent execution limit reached")
	ErrCallerNotPermitted    = errors.New("caller is not permitted or out of uses")
	ErrMessageShape          = errors.New("message violates the authorization message details")
	ErrMessageCount          = errors.New("message count does not match subroutine function count")
	ErrUnknownDomain         = errors.New("external domain not found")
	ErrDuplicateDomain       = errors.New("external domain name already registered")
	ErrNotPermissioned       = errors.New("authorization is not permissioned")
	ErrCallbackOrigin        = errors.New("callback origin does not match the domain processor or relayer")
	ErrCallbackConflict      = errors.New("callback for execution id already delivered with a different result")
	ErrUnknownExecution      = errors.New("execution id not found")
	ErrProxyNotCreated       = errors.New("polytone proxy is not in created state")
	ErrProxyTransition       = errors.New("proxy state transition is not allowed")
)
