//go:build !linux

package tun

import (
	"context"

	coreerrors "lanlink-core/internal/core/errors"
)

type unsupportedEstablisher struct{}

// NewEstablisher 当前平台无法自建网卡，移动端请使用 NewFdEstablisher
func NewEstablisher() Establisher {
	return unsupportedEstablisher{}
}

func (unsupportedEstablisher) Establish(context.Context, DeviceConfig) (Device, error) {
	return nil, coreerrors.New(coreerrors.CodeNotSupported, "creating tun devices is not supported on this platform")
}
