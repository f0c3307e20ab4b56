//go:build !easytier || !cgo

package engine

import (
	coreerrors "lanlink-core/internal/core/errors"
)

const unavailableReason = "native overlay library not linked (build with -tags easytier and cgo enabled)"

// unavailableEngine 未链接本地库时的占位实现
type unavailableEngine struct{}

// Default 返回当前构建可用的引擎
func Default() Engine {
	return unavailableEngine{}
}

func (unavailableEngine) Available() bool   { return false }
func (unavailableEngine) LoadError() string { return unavailableReason }
func (unavailableEngine) LastError() string { return unavailableReason }

func (unavailableEngine) ParseConfig(string) error {
	return coreerrors.New(coreerrors.CodeUnavailable, unavailableReason)
}

func (unavailableEngine) RunNetworkInstance(string) error {
	return coreerrors.New(coreerrors.CodeUnavailable, unavailableReason)
}

func (unavailableEngine) CollectNetworkInfos() (string, error) {
	return "", coreerrors.New(coreerrors.CodeUnavailable, unavailableReason)
}

func (unavailableEngine) StopAllInstances() error {
	return coreerrors.New(coreerrors.CodeUnavailable, unavailableReason)
}

func (unavailableEngine) SetTunFd(string, int) error {
	return coreerrors.New(coreerrors.CodeUnavailable, unavailableReason)
}
