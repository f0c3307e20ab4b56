package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"lanlink-core/internal/constants"
	coreerrors "lanlink-core/internal/core/errors"
	corelog "lanlink-core/internal/core/log"
)

// Manager 配置文件查找、加载与保存
type Manager struct {
	searchPaths []string // 按优先级排序
}

// NewManager 依次搜索可执行文件目录、工作目录、~/.lanlink
func NewManager() *Manager {
	return NewManagerWithPaths(
		filepath.Join(executableDir(), constants.DefaultConfigFile),
		filepath.Join(workingDir(), constants.DefaultConfigFile),
		DefaultPath(),
	)
}

// NewManagerWithPaths 指定搜索路径
func NewManagerWithPaths(paths ...string) *Manager {
	return &Manager{searchPaths: paths}
}

// DefaultPath 用户目录下的配置文件
func DefaultPath() string {
	return filepath.Join(homeDir(), constants.DefaultConfigDir, constants.DefaultConfigFile)
}

// SearchPaths 搜索路径
func (m *Manager) SearchPaths() []string {
	return append([]string(nil), m.searchPaths...)
}

// Load 加载配置并应用环境变量，返回实际使用的文件路径（未找到时为空）
// 显式指定的路径不存在视为错误
func (m *Manager) Load(explicitPath string) (*Config, string, error) {
	if explicitPath != "" {
		cfg, err := loadFile(explicitPath)
		if err != nil {
			return nil, "", coreerrors.Wrapf(err, coreerrors.CodeConfigError, "failed to load config from %s", explicitPath)
		}
		return finish(cfg, explicitPath)
	}

	for _, path := range m.searchPaths {
		cfg, err := loadFile(path)
		if err == nil {
			return finish(cfg, path)
		}
		if !os.IsNotExist(err) {
			return nil, "", coreerrors.Wrapf(err, coreerrors.CodeConfigError, "failed to load config from %s", path)
		}
	}

	corelog.Debugf("config: no config file found, using defaults")
	return finish(Default(), "")
}

func finish(cfg *Config, path string) (*Config, string, error) {
	ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Save 原子写入配置，path 为空时依次尝试搜索路径
func (m *Manager) Save(cfg *Config, path string) (string, error) {
	if path != "" {
		if err := saveFile(path, cfg); err != nil {
			return "", err
		}
		return path, nil
	}

	var lastErr error
	for _, p := range m.searchPaths {
		if err := saveFile(p, cfg); err != nil {
			corelog.Warnf("config: failed to save to %s: %v, trying next...", p, err)
			lastErr = err
			continue
		}
		return p, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no save location configured")
	}
	return "", coreerrors.Wrap(lastErr, coreerrors.CodeConfigError, "failed to save config to any location")
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// saveFile 先写临时文件再重命名；文件含房间密码，权限 0600
func saveFile(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Marshal YAML 序列化
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

func executableDir() string {
	p, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(p)
}

func workingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func homeDir() string {
	h, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return h
}
