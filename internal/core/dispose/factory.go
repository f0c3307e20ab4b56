package dispose

import (
	"context"
)

// ManagerBase 管理器基类
type ManagerBase struct {
	*ResourceBase
}

// ServiceBase 服务基类
type ServiceBase struct {
	*ResourceBase
}

// NewManager 创建并初始化管理器基类
func NewManager(name string, parentCtx context.Context) *ManagerBase {
	m := &ManagerBase{ResourceBase: NewResourceBase(name)}
	m.Initialize(parentCtx)
	return m
}

// NewService 创建并初始化服务基类
func NewService(name string, parentCtx context.Context) *ServiceBase {
	s := &ServiceBase{ResourceBase: NewResourceBase(name)}
	s.Initialize(parentCtx)
	return s
}
