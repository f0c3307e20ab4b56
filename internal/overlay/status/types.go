// Package status 解析引擎状态快照
package status

// PeerInfo 对端信息，每次轮询整体替换
type PeerInfo struct {
	ID             string  `json:"id"`
	VirtualAddress string  `json:"virtual_address"`
	Hostname       string  `json:"hostname"`
	LatencyMs      int     `json:"latency_ms,omitempty"` // 0 表示未知
	TunnelProtocol string  `json:"tunnel_protocol"`
	NATType        string  `json:"nat_type"`
	LossRate       float32 `json:"loss_rate"`
}

// HasLatency 是否测得延迟
func (p PeerInfo) HasLatency() bool {
	return p.LatencyMs > 0
}

// InstanceSnapshot 单个实例的解析结果
type InstanceSnapshot struct {
	InstanceName   string     `json:"instance_name"`
	Running        bool       `json:"running"`
	VirtualAddress string     `json:"virtual_address,omitempty"` // a.b.c.d/len，未分配为空
	Peers          []PeerInfo `json:"peers"`
	ErrorMessage   string     `json:"error_message,omitempty"`
}

// AddressUnknown 对端地址缺失时的占位
const AddressUnknown = "N/A"

// TunnelUnknown 缺少连接信息时的隧道协议
const TunnelUnknown = "unknown"
