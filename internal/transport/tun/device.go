// Package tun 全隧道模式下的虚拟网卡
//
// Surface 负责网卡与引擎实例的启停顺序：先建网卡，再启动实例，最后把描述符交给实例；
// 停止时顺序相反。默认的端口转发模式不经过这里。
package tun

import (
	"context"
	"net/netip"

	"lanlink-core/internal/constants"
	coreerrors "lanlink-core/internal/core/errors"
)

// Device 已建立的虚拟网卡
type Device interface {
	Name() string
	Fd() int
	Close() error
}

// DeviceConfig 网卡参数
type DeviceConfig struct {
	Name    string   `yaml:"name" json:"name"`
	Address string   `yaml:"address" json:"address"` // CIDR
	MTU     int      `yaml:"mtu" json:"mtu"`
	Routes  []string `yaml:"routes" json:"routes"`
}

// DefaultDeviceConfig 主机地址、默认 MTU 与房间子网路由
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		Name:    constants.DefaultTunName,
		Address: constants.HostCIDR,
		MTU:     constants.DefaultMTU,
		Routes:  []string{constants.RoomSubnet},
	}
}

// Validate 检查地址、路由与 MTU
func (c DeviceConfig) Validate() error {
	if _, err := netip.ParsePrefix(c.Address); err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeInvalidParam, "invalid tun address %q", c.Address)
	}
	if c.MTU < 576 || c.MTU > 65535 {
		return coreerrors.Newf(coreerrors.CodeInvalidParam, "invalid tun mtu %d", c.MTU)
	}
	for _, r := range c.Routes {
		if _, err := netip.ParsePrefix(r); err != nil {
			return coreerrors.Wrapf(err, coreerrors.CodeInvalidParam, "invalid tun route %q", r)
		}
	}
	return nil
}

// Establisher 创建网卡
type Establisher interface {
	Establish(ctx context.Context, cfg DeviceConfig) (Device, error)
}

// EstablisherFunc 函数适配
type EstablisherFunc func(ctx context.Context, cfg DeviceConfig) (Device, error)

func (f EstablisherFunc) Establish(ctx context.Context, cfg DeviceConfig) (Device, error) {
	return f(ctx, cfg)
}

// establishWithin 在 ctx 截止前等待建网卡，超时后到达的网卡直接关闭
func establishWithin(ctx context.Context, fn func() (Device, error)) (Device, error) {
	type result struct {
		dev Device
		err error
	}
	ch := make(chan result, 1)
	go func() {
		dev, err := fn()
		ch <- result{dev, err}
	}()

	select {
	case r := <-ch:
		return r.dev, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.dev != nil {
				_ = r.dev.Close()
			}
		}()
		return nil, coreerrors.Wrap(ctx.Err(), coreerrors.CodeTimeout, "tun device setup timed out")
	}
}
