package dispose

import (
	"context"
)

// ResourceBase 带名字的资源基类
type ResourceBase struct {
	Dispose
}

// NewResourceBase 创建资源基类
func NewResourceBase(name string) *ResourceBase {
	r := &ResourceBase{}
	r.name = name
	return r
}

// Initialize 绑定父上下文
func (r *ResourceBase) Initialize(parentCtx context.Context) {
	r.SetCtx(parentCtx, r.onClose)
}

func (r *ResourceBase) onClose() error {
	Debugf("%s resources cleaned up", r.name)
	return nil
}

// GetName 获取资源名称
func (r *ResourceBase) GetName() string {
	return r.name
}
