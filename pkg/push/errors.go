package push

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid push gateway config")
	ErrGatewayInit   = errors.New("failed to initialize push gateway")
	ErrMissingToken  = errors.New("push message has no device token")
	ErrSendFailed    = errors.New("failed to send push message")
)
