//go:build linux

package tun

import (
	"context"
	"errors"
	"os"
	"syscall"

	"github.com/songgao/water"
	"github.com/vishvananda/netlink"

	coreerrors "lanlink-core/internal/core/errors"
	corelog "lanlink-core/internal/core/log"
)

type linuxDevice struct {
	iface *water.Interface
	fd    int
}

func (d *linuxDevice) Name() string { return d.iface.Name() }
func (d *linuxDevice) Fd() int      { return d.fd }
func (d *linuxDevice) Close() error { return d.iface.Close() }

type linuxEstablisher struct {
	logger corelog.Logger
}

// NewEstablisher 通过 /dev/net/tun 创建网卡并用 netlink 配置地址、MTU 与路由，需要 CAP_NET_ADMIN
func NewEstablisher() Establisher {
	return &linuxEstablisher{logger: corelog.Component("tun")}
}

func (e *linuxEstablisher) Establish(ctx context.Context, cfg DeviceConfig) (Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return establishWithin(ctx, func() (Device, error) { return e.establish(cfg) })
}

func (e *linuxEstablisher) establish(cfg DeviceConfig) (Device, error) {
	iface, err := water.New(water.Config{
		DeviceType:             water.TUN,
		PlatformSpecificParams: water.PlatformSpecificParams{Name: cfg.Name},
	})
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeTunError, "failed to create tun device")
	}

	file, ok := iface.ReadWriteCloser.(*os.File)
	if !ok {
		_ = iface.Close()
		return nil, coreerrors.New(coreerrors.CodeTunError, "tun device has no file descriptor")
	}

	if err := configureLink(iface.Name(), cfg); err != nil {
		_ = iface.Close()
		return nil, err
	}

	e.logger.Infof("tun device %s up, address=%s mtu=%d", iface.Name(), cfg.Address, cfg.MTU)
	return &linuxDevice{iface: iface, fd: int(file.Fd())}, nil
}

func configureLink(name string, cfg DeviceConfig) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeTunError, "tun link %s not found", name)
	}

	addr, err := netlink.ParseAddr(cfg.Address)
	if err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeTunError, "invalid tun address %s", cfg.Address)
	}
	if err := netlink.AddrAdd(link, addr); err != nil && !errors.Is(err, syscall.EEXIST) {
		return coreerrors.Wrapf(err, coreerrors.CodeTunError, "failed to assign %s to %s", cfg.Address, name)
	}
	if err := netlink.LinkSetMTU(link, cfg.MTU); err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeTunError, "failed to set mtu on %s", name)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeTunError, "failed to bring %s up", name)
	}

	for _, r := range cfg.Routes {
		dst, err := netlink.ParseIPNet(r)
		if err != nil {
			return coreerrors.Wrapf(err, coreerrors.CodeTunError, "invalid route %s", r)
		}
		// 地址所在子网的路由内核已自动添加，这里用 replace 覆盖
		route := &netlink.Route{LinkIndex: link.Attrs().Index, Dst: dst}
		if err := netlink.RouteReplace(route); err != nil {
			return coreerrors.Wrapf(err, coreerrors.CodeTunError, "failed to add route %s via %s", r, name)
		}
	}
	return nil
}
