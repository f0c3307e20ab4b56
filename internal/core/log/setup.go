package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"

	OutputStdout  = "stdout"
	OutputStderr  = "stderr"
	OutputFile    = "file"
	OutputDiscard = "discard"
)

// Config 日志配置
type Config struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	Output string `json:"output" yaml:"output"`
	File   string `json:"file" yaml:"file"`
}

// Setup 按配置创建 logrus 实例并替换默认 Logger
func Setup(cfg Config) (Logger, error) {
	l := logrus.New()

	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s", cfg.Level)
		}
		level = parsed
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case FormatJSON:
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "", FormatText:
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	default:
		return nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	out, file, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}
	l.SetOutput(out)

	defaultLoggerMu.Lock()
	if currentLogFile != nil {
		_ = currentLogFile.Close()
	}
	currentLogFile = file
	defaultLoggerMu.Unlock()

	setDefaultLogrus(l)
	return Default(), nil
}

func openOutput(cfg Config) (io.Writer, *os.File, error) {
	switch strings.ToLower(cfg.Output) {
	case "", OutputStderr:
		return os.Stderr, nil, nil
	case OutputStdout:
		return os.Stdout, nil, nil
	case OutputDiscard:
		return io.Discard, nil, nil
	case OutputFile:
		if cfg.File == "" {
			return nil, nil, fmt.Errorf("log output is file but no file path given")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return f, f, nil
	default:
		return nil, nil, fmt.Errorf("invalid log output: %s", cfg.Output)
	}
}

// Close 关闭日志文件（如果有）
func Close() error {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	if currentLogFile == nil {
		return nil
	}
	err := currentLogFile.Close()
	currentLogFile = nil
	if currentLogrus != nil {
		currentLogrus.SetOutput(io.Discard)
	}
	return err
}
