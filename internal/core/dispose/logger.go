package dispose

import "sync/atomic"

type logFn func(level string, format string, args ...interface{})

// dispose 不依赖 log 包，日志由上层通过 SetLogger 注入，未注入时丢弃
var logFunc atomic.Pointer[logFn]

// SetLogger 设置日志函数，level 为 debug / warn / error
func SetLogger(fn func(level string, format string, args ...interface{})) {
	if fn == nil {
		logFunc.Store(nil)
		return
	}
	f := logFn(fn)
	logFunc.Store(&f)
}

func log(level string, format string, args ...interface{}) {
	if f := logFunc.Load(); f != nil {
		(*f)(level, format, args...)
	}
}

func Debugf(format string, args ...interface{}) { log("debug", format, args...) }
func Errorf(format string, args ...interface{}) { log("error", format, args...) }
func Warn(msg string)                           { log("warn", "%s", msg) }
