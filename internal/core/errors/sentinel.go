package errors

// 哨兵错误，只用于 errors.Is 比较
var (
	ErrUnavailable    = New(CodeUnavailable, "overlay engine unavailable")
	ErrConfigRejected = New(CodeConfigRejected, "config rejected")
	ErrStartFailed    = New(CodeStartFailed, "failed to start network instance")
	ErrInstanceDied   = New(CodeInstanceDied, "network instance stopped")
	ErrDecodeFailure  = New(CodeDecodeFailure, "failed to decode status")
	ErrStopFailed     = New(CodeStopFailed, "failed to stop network instances")

	ErrInvalidParam = New(CodeInvalidParam, "invalid parameter")
	ErrInvalidState = New(CodeInvalidState, "invalid state")
	ErrConfigError  = New(CodeConfigError, "config error")
	ErrRateLimited  = New(CodeRateLimited, "rate limit exceeded")

	ErrInternal       = New(CodeInternal, "internal error")
	ErrTimeout        = New(CodeTimeout, "operation timeout")
	ErrResourceClosed = New(CodeResourceClosed, "resource closed")
	ErrNotSupported   = New(CodeNotSupported, "not supported on this platform")

	ErrTunError = New(CodeTunError, "tun device error")
)
