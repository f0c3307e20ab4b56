// Package version 构建信息
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version 版本号，构建时通过 -ldflags 注入
	Version = "dev"

	// BuildTime 构建时间
	BuildTime = ""

	// GitCommit 提交哈希
	GitCommit = ""
)

func init() {
	if GitCommit != "" {
		return
	}
	// go install 构建时从模块信息补齐
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			GitCommit = s.Value
		case "vcs.time":
			if BuildTime == "" {
				BuildTime = s.Value
			}
		}
	}
}

// GetVersion 完整版本信息
func GetVersion() string {
	v := Version
	if BuildTime != "" {
		v += " (built " + BuildTime + ")"
	}
	if len(GitCommit) >= 8 {
		v += " commit " + GitCommit[:8]
	}
	return v
}

// Platform 运行平台
func Platform() string {
	return fmt.Sprintf("%s/%s %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}
