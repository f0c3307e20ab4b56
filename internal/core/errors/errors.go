// Package errors 统一错误类型
//
// 每个错误带一个 ErrorCode，errors.Is 按错误码比较，
// 引擎、配置、隧道失败都包装成 *Error 再向上返回。
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode 错误码类型
type ErrorCode string

const (
	// 引擎相关
	CodeUnavailable    ErrorCode = "UNAVAILABLE"     // 本地引擎库未加载
	CodeConfigRejected ErrorCode = "CONFIG_REJECTED" // 引擎拒绝配置
	CodeStartFailed    ErrorCode = "START_FAILED"    // 实例启动失败
	CodeInstanceDied   ErrorCode = "INSTANCE_DIED"   // 运行中实例退出
	CodeDecodeFailure  ErrorCode = "DECODE_FAILURE"  // 状态快照解析失败
	CodeStopFailed     ErrorCode = "STOP_FAILED"     // 停止实例失败

	// 请求错误
	CodeInvalidParam ErrorCode = "INVALID_PARAM"
	CodeInvalidState ErrorCode = "INVALID_STATE"
	CodeConfigError  ErrorCode = "CONFIG_ERROR"
	CodeRateLimited  ErrorCode = "RATE_LIMITED"

	// 系统错误
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeTimeout        ErrorCode = "TIMEOUT"
	CodeResourceClosed ErrorCode = "RESOURCE_CLOSED"
	CodeNotSupported   ErrorCode = "NOT_SUPPORTED"

	// 网卡
	CodeTunError ErrorCode = "TUN_ERROR"
)

// Error 统一错误类型
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按错误码比较
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New 创建新错误
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf 创建格式化错误
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装错误，err 为 nil 时仍返回新错误
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Cause: err}
}

// Wrapf 格式化包装错误
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// GetCode 提取错误码，非 *Error 返回 CodeInternal
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode 检查错误链中是否有指定错误码
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Message 返回面向用户的消息（不含错误码前缀）
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// Is 重导出 errors.Is
var Is = errors.Is

// As 重导出 errors.As
var As = errors.As
