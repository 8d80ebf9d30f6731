package errors

import "errors"

var (
	ErrUnknownRoute            = errors.New("no route registered for domain")
	ErrDuplicateRoute          = errors.New("route already registered for domain")
	ErrProxyNotCreated         = errors.New("proxy account is not created on target domain")
	ErrUnsupportedEnvironment  = errors.New("no bridge available for target environment")
	ErrMissingBridgeConfig     = errors.New("route is missing its bridge configuration")
	ErrInvalidDispatch         = errors.New("dispatch is malformed")
	ErrRelayTimeout            = errors.New("bridge relay timed out")
	ErrUnexpectedBridgeFailure = errors.New("bridge relay failed unexpectedly")
)
