// Package log 日志接口与 logrus 实现
// 组件通过构造参数拿到 Logger，测试中替换为 NopLogger 或 Recorder
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger 组件日志接口
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
}

// ============================================================================
// logrusLogger
// ============================================================================

type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger 包装 logrus 实例
func NewLogrusLogger(l *logrus.Logger) Logger {
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debug(args ...interface{}) { l.entry.Log(logrus.DebugLevel, args...) }
func (l *logrusLogger) Info(args ...interface{})  { l.entry.Log(logrus.InfoLevel, args...) }
func (l *logrusLogger) Warn(args ...interface{})  { l.entry.Log(logrus.WarnLevel, args...) }
func (l *logrusLogger) Error(args ...interface{}) { l.entry.Log(logrus.ErrorLevel, args...) }

func (l *logrusLogger) Debugf(format string, args ...interface{}) {
	l.entry.Logf(logrus.DebugLevel, format, args...)
}

func (l *logrusLogger) Infof(format string, args ...interface{}) {
	l.entry.Logf(logrus.InfoLevel, format, args...)
}

func (l *logrusLogger) Warnf(format string, args ...interface{}) {
	l.entry.Logf(logrus.WarnLevel, format, args...)
}

func (l *logrusLogger) Errorf(format string, args ...interface{}) {
	l.entry.Logf(logrus.ErrorLevel, format, args...)
}

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

func (l *logrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *logrusLogger) WithError(err error) Logger {
	return &logrusLogger{entry: l.entry.WithError(err)}
}

// ============================================================================
// NopLogger
// ============================================================================

// NopLogger 丢弃所有输出
type NopLogger struct{}

func (NopLogger) Debug(args ...interface{})                         {}
func (NopLogger) Info(args ...interface{})                          {}
func (NopLogger) Warn(args ...interface{})                          {}
func (NopLogger) Error(args ...interface{})                         {}
func (NopLogger) Debugf(format string, args ...interface{})         {}
func (NopLogger) Infof(format string, args ...interface{})          {}
func (NopLogger) Warnf(format string, args ...interface{})          {}
func (NopLogger) Errorf(format string, args ...interface{})         {}
func (n NopLogger) WithField(key string, value interface{}) Logger  { return n }
func (n NopLogger) WithFields(fields map[string]interface{}) Logger { return n }
func (n NopLogger) WithError(err error) Logger                      { return n }

// NewNopLogger 创建静默日志
func NewNopLogger() Logger {
	return NopLogger{}
}

// ============================================================================
// Recorder 记录到内存，测试里断言日志内容
// ============================================================================

// Entry 一条记录
type Entry struct {
	Level   logrus.Level
	Message string
	Fields  map[string]interface{}
}

type recorderSink struct {
	mu      sync.Mutex
	entries []Entry
}

// Recorder 内存日志，WithField 派生的实例共享同一份记录
type Recorder struct {
	sink   *recorderSink
	fields map[string]interface{}
}

// NewRecorder 创建内存日志
func NewRecorder() *Recorder {
	return &Recorder{sink: &recorderSink{}}
}

func (r *Recorder) record(level logrus.Level, msg string) {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	r.sink.entries = append(r.sink.entries, Entry{Level: level, Message: msg, Fields: r.fields})
}

func (r *Recorder) Debug(args ...interface{}) { r.record(logrus.DebugLevel, fmt.Sprint(args...)) }
func (r *Recorder) Info(args ...interface{})  { r.record(logrus.InfoLevel, fmt.Sprint(args...)) }
func (r *Recorder) Warn(args ...interface{})  { r.record(logrus.WarnLevel, fmt.Sprint(args...)) }
func (r *Recorder) Error(args ...interface{}) { r.record(logrus.ErrorLevel, fmt.Sprint(args...)) }

func (r *Recorder) Debugf(format string, args ...interface{}) {
	r.record(logrus.DebugLevel, fmt.Sprintf(format, args...))
}

func (r *Recorder) Infof(format string, args ...interface{}) {
	r.record(logrus.InfoLevel, fmt.Sprintf(format, args...))
}

func (r *Recorder) Warnf(format string, args ...interface{}) {
	r.record(logrus.WarnLevel, fmt.Sprintf(format, args...))
}

func (r *Recorder) Errorf(format string, args ...interface{}) {
	r.record(logrus.ErrorLevel, fmt.Sprintf(format, args...))
}

func (r *Recorder) WithField(key string, value interface{}) Logger {
	return r.WithFields(map[string]interface{}{key: value})
}

func (r *Recorder) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(r.fields)+len(fields))
	for k, v := range r.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Recorder{sink: r.sink, fields: merged}
}

func (r *Recorder) WithError(err error) Logger {
	return r.WithField(logrus.ErrorKey, err)
}

// Entries 当前所有记录的副本
func (r *Recorder) Entries() []Entry {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	return append([]Entry(nil), r.sink.entries...)
}

// Contains 是否有消息包含 substr
func (r *Recorder) Contains(substr string) bool {
	for _, e := range r.Entries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// CountAt 指定级别的记录数
func (r *Recorder) CountAt(level logrus.Level) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

// ============================================================================
// 默认 Logger
// ============================================================================

var (
	defaultLogger     Logger
	defaultLoggerOnce sync.Once
	defaultLoggerMu   sync.RWMutex
	currentLogFile    *os.File
	currentLogrus     *logrus.Logger
)

// 未调用 Setup 前默认丢弃输出，库被嵌入时不污染宿主的 stderr
func initDefaultLogger() {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})
	l.SetOutput(io.Discard)
	currentLogrus = l
	defaultLogger = NewLogrusLogger(l)
}

// Default 当前默认 Logger
func Default() Logger {
	defaultLoggerOnce.Do(initDefaultLogger)
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// SetDefault 替换默认 Logger
func SetDefault(l Logger) {
	defaultLoggerOnce.Do(initDefaultLogger)
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = l
}

func setDefaultLogrus(l *logrus.Logger) {
	defaultLoggerOnce.Do(initDefaultLogger)
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = NewLogrusLogger(l)
	currentLogrus = l
}
