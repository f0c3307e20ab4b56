// Package engine 覆盖网络引擎的调用边界
//
// 引擎以本地库形式提供，所有调用都是同步阻塞的，不能在界面线程调用。
// 实例注册表是进程级的，同一进程只应有一个会话在使用引擎。
package engine

import (
	coreerrors "lanlink-core/internal/core/errors"
)

// Engine 引擎调用面
type Engine interface {
	// Available 本地库是否已加载
	Available() bool
	// LoadError 本地库加载失败原因
	LoadError() string

	// ParseConfig 校验配置文本，不启动实例
	ParseConfig(cfg string) error
	// RunNetworkInstance 按配置启动一个实例
	RunNetworkInstance(cfg string) error
	// CollectNetworkInfos 返回所有实例的运行状态 JSON
	CollectNetworkInfos() (string, error)
	// StopAllInstances 停止全部实例
	StopAllInstances() error
	// SetTunFd 把已建立的 TUN 描述符交给实例
	SetTunFd(instanceName string, fd int) error

	// LastError 引擎最近一次错误信息
	LastError() string
}

// callError 把引擎返回码转换为带错误码的 error
func callError(e Engine, code coreerrors.ErrorCode, op string, fallback string) error {
	msg := e.LastError()
	if msg == "" {
		msg = fallback
	}
	return coreerrors.Newf(code, "%s: %s", op, msg)
}
