// Package idgen 生成带前缀的短随机标识，用于访客主机名等
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// PrefixGuestHostname 访客节点主机名前缀
	PrefixGuestHostname = "guest_"

	defaultShortLen = 8
)

// Generator ID 生成器接口
type Generator interface {
	Generate() string
}

// UUIDGenerator 基于 UUID v7 的生成器，取随机段的前 N 个十六进制字符
type UUIDGenerator struct {
	prefix string
	length int
}

// NewUUIDGenerator 创建生成器，length <= 0 时使用完整 UUID
func NewUUIDGenerator(prefix string, length int) *UUIDGenerator {
	return &UUIDGenerator{prefix: prefix, length: length}
}

// NewGuestHostnameGenerator guest_xxxxxxxx
func NewGuestHostnameGenerator() *UUIDGenerator {
	return NewUUIDGenerator(PrefixGuestHostname, defaultShortLen)
}

// Generate 生成 ID
func (g *UUIDGenerator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	if g.length <= 0 {
		return g.prefix + id.String()
	}
	// v7 前 48 位是时间戳，取尾部随机段
	hex := strings.ReplaceAll(id.String(), "-", "")
	n := g.length
	if n > len(hex) {
		n = len(hex)
	}
	return g.prefix + hex[len(hex)-n:]
}

// Func 函数适配器
type Func func() string

func (f Func) Generate() string { return f() }

// 编译时接口断言
var _ Generator = (*UUIDGenerator)(nil)
