package log

// 包级便捷函数，写到 Default()
// 长生命周期组件应持有 Component() 返回的实例

func Debugf(format string, args ...interface{}) { Default().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { Default().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { Default().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { Default().Errorf(format, args...) }

// Component 带 component 字段的默认 Logger
func Component(name string) Logger {
	return Default().WithField("component", name)
}
