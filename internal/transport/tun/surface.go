package tun

import (
	"context"
	"sync"

	"lanlink-core/internal/constants"
	"lanlink-core/internal/core/dispose"
	coreerrors "lanlink-core/internal/core/errors"
	corelog "lanlink-core/internal/core/log"
	"lanlink-core/internal/engine"
)

// StartRequest 全隧道启动参数
type StartRequest struct {
	Config       string // 引擎配置文本
	InstanceName string
	Device       DeviceConfig
}

// Surface 网卡与引擎实例的生命周期
// 失败只返回给调用方，不写入会话状态
type Surface struct {
	*dispose.ServiceBase

	engine      engine.Engine
	establisher Establisher
	logger      corelog.Logger

	mu       sync.Mutex
	device   Device
	instance string // 已绑定描述符的实例，空表示未启动
}

// NewSurface 创建网卡生命周期管理
func NewSurface(parentCtx context.Context, eng engine.Engine, est Establisher, logger corelog.Logger) *Surface {
	if logger == nil {
		logger = corelog.Component("tun")
	}
	s := &Surface{
		ServiceBase: dispose.NewService("TunSurface", parentCtx),
		engine:      eng,
		establisher: est,
		logger:      logger,
	}
	s.AddCleanHandler(s.Stop)
	return s
}

// Close 停止实例并关闭网卡，之后不可再用
func (s *Surface) Close() error {
	return s.ServiceBase.CloseWithError()
}

// TunFd 当前描述符，供会话管理器在启动实例后绑定
func (s *Surface) TunFd() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return -1, false
	}
	return s.device.Fd(), true
}

// InitOnly 只建立网卡并返回描述符，已存在时直接返回
func (s *Surface) InitOnly(ctx context.Context, cfg DeviceConfig) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dev, err := s.ensureDevice(ctx, cfg)
	if err != nil {
		return -1, err
	}
	return dev.Fd(), nil
}

// Start 依次建立网卡、启动实例、绑定描述符，任一步失败回滚已完成的步骤
func (s *Surface) Start(ctx context.Context, req StartRequest) error {
	if req.InstanceName == "" {
		req.InstanceName = constants.DefaultInstanceName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.IsClosed() {
		return coreerrors.ErrResourceClosed
	}
	if s.instance != "" {
		return coreerrors.Newf(coreerrors.CodeInvalidState, "instance %s already bound to tun", s.instance)
	}

	created := s.device == nil
	dev, err := s.ensureDevice(ctx, req.Device)
	if err != nil {
		return err
	}
	rollback := func() {
		if created {
			s.closeDevice()
		}
	}

	if err := s.engine.RunNetworkInstance(req.Config); err != nil {
		rollback()
		return keepCode(err, coreerrors.CodeStartFailed, "failed to start network instance")
	}

	if err := s.engine.SetTunFd(req.InstanceName, dev.Fd()); err != nil {
		if stopErr := s.engine.StopAllInstances(); stopErr != nil {
			s.logger.Warnf("Start: rollback stop failed: %v", stopErr)
		}
		rollback()
		return keepCode(err, coreerrors.CodeTunError, "failed to bind tun fd")
	}

	s.instance = req.InstanceName
	s.logger.Infof("Start: instance %s bound to %s (fd %d), address %s",
		req.InstanceName, dev.Name(), dev.Fd(), req.Device.Address)
	return nil
}

// Stop 先停实例再关网卡，重复调用无副作用
func (s *Surface) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.instance != "" {
		if err := s.engine.StopAllInstances(); err != nil {
			firstErr = keepCode(err, coreerrors.CodeStopFailed, "failed to stop network instances")
			s.logger.Warnf("Stop: %v", firstErr)
		}
		s.instance = ""
	}
	if err := s.closeDevice(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (s *Surface) ensureDevice(ctx context.Context, cfg DeviceConfig) (Device, error) {
	if s.device != nil {
		return s.device, nil
	}
	if cfg.Address == "" {
		cfg = DefaultDeviceConfig()
	}

	ctx, cancel := context.WithTimeout(ctx, constants.TunInitTimeout)
	defer cancel()

	dev, err := s.establisher.Establish(ctx, cfg)
	if err != nil {
		s.logger.Errorf("failed to establish tun device: %v", err)
		return nil, keepCode(err, coreerrors.CodeTunError, "failed to establish tun device")
	}
	s.device = dev
	s.logger.Infof("tun device %s established, fd %d", dev.Name(), dev.Fd())
	return dev, nil
}

func (s *Surface) closeDevice() error {
	if s.device == nil {
		return nil
	}
	dev := s.device
	s.device = nil
	if err := dev.Close(); err != nil {
		s.logger.Warnf("failed to close tun device %s: %v", dev.Name(), err)
		return keepCode(err, coreerrors.CodeTunError, "failed to close tun device")
	}
	return nil
}

func keepCode(err error, code coreerrors.ErrorCode, msg string) error {
	var ce *coreerrors.Error
	if coreerrors.As(err, &ce) {
		return err
	}
	return coreerrors.Wrap(err, code, msg)
}
