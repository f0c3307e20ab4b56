//go:build !unix

package tun

import (
	"context"

	coreerrors "lanlink-core/internal/core/errors"
)

// FdEstablisher 当前平台不支持外部描述符
type FdEstablisher struct{}

func NewFdEstablisher(int, string) *FdEstablisher { return &FdEstablisher{} }

func (*FdEstablisher) Establish(context.Context, DeviceConfig) (Device, error) {
	return nil, coreerrors.New(coreerrors.CodeNotSupported, "tun file descriptors are not supported on this platform")
}
