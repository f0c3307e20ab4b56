//go:build unix

package tun

import (
	"context"
	"sync"

	"golang.org/x/sys/unix"

	coreerrors "lanlink-core/internal/core/errors"
)

// fdDevice 外部交来的描述符，例如 Android VpnService.Builder.establish() 的结果
type fdDevice struct {
	name string
	fd   int

	once sync.Once
	err  error
}

func (d *fdDevice) Name() string { return d.name }
func (d *fdDevice) Fd() int      { return d.fd }

func (d *fdDevice) Close() error {
	d.once.Do(func() {
		if err := unix.Close(d.fd); err != nil {
			d.err = coreerrors.Wrapf(err, coreerrors.CodeTunError, "failed to close tun fd %d", d.fd)
		}
	})
	return d.err
}

// FdEstablisher 不创建网卡，只接管已配置好的描述符
// 地址与路由由交出描述符的一方负责
type FdEstablisher struct {
	fd   int
	name string
}

// NewFdEstablisher 包装已有描述符，描述符所有权随 Establish 转移
func NewFdEstablisher(fd int, name string) *FdEstablisher {
	if name == "" {
		name = "vpn"
	}
	return &FdEstablisher{fd: fd, name: name}
}

func (e *FdEstablisher) Establish(ctx context.Context, _ DeviceConfig) (Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.fd < 0 {
		return nil, coreerrors.Newf(coreerrors.CodeTunError, "invalid tun fd %d", e.fd)
	}
	if _, err := unix.FcntlInt(uintptr(e.fd), unix.F_GETFD, 0); err != nil {
		return nil, coreerrors.Wrapf(err, coreerrors.CodeTunError, "tun fd %d is not open", e.fd)
	}
	return &fdDevice{name: e.name, fd: e.fd}, nil
}
