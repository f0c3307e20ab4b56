// Package config 生成覆盖网络引擎的实例配置
//
// Build 是纯函数：相同参数得到相同文本，不做任何 I/O。
// 访客首次连接就带上全部游戏端口的转发规则，发现主机后不需要重启实例。
package config

import (
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"lanlink-core/internal/constants"
	coreerrors "lanlink-core/internal/core/errors"
)

// Params 构建参数
type Params struct {
	InstanceName    string
	RoomName        string
	RoomSecret      string
	IsHost          bool
	WithPortForward bool
	GamePorts       []int
	PublicServers   []string
	// Hostname 为空时主机用 host，访客用 guest
	Hostname string
	// FullTunnel 使用 TUN 网卡而不是应用层端口转发
	FullTunnel bool
}

// Document 引擎配置文档
type Document struct {
	InstanceName string   `toml:"instance_name"`
	Hostname     string   `toml:"hostname"`
	IPv4         string   `toml:"ipv4,omitempty"`
	DHCP         bool     `toml:"dhcp"`
	Listeners    []string `toml:"listeners"`
	TCPWhitelist []string `toml:"tcp_whitelist,omitempty"`
	UDPWhitelist []string `toml:"udp_whitelist,omitempty"`

	NetworkIdentity NetworkIdentity `toml:"network_identity"`
	Peers           []PeerEntry     `toml:"peer,omitempty"`
	PortForwards    []PortForward   `toml:"port_forward,omitempty"`
	Flags           Flags           `toml:"flags"`
}

// NetworkIdentity 房间身份
type NetworkIdentity struct {
	NetworkName   string `toml:"network_name"`
	NetworkSecret string `toml:"network_secret"`
}

// PeerEntry 初始连接的中继节点
type PeerEntry struct {
	URI string `toml:"uri"`
}

// PortForward 本地端口到主机端口的转发规则
type PortForward struct {
	BindAddr string `toml:"bind_addr"`
	DstAddr  string `toml:"dst_addr"`
	Proto    string `toml:"proto"`
}

// Flags 引擎行为开关
type Flags struct {
	NoTun            bool `toml:"no_tun"`
	EnableEncryption bool `toml:"enable_encryption"`
	EnableKCPProxy   bool `toml:"enable_kcp_proxy"`
	LatencyFirst     bool `toml:"latency_first"`
	MultiThread      bool `toml:"multi_thread"`
	DataCompressAlgo int  `toml:"data_compress_algo"`
	MTU              int  `toml:"mtu"`
}

// Build 生成配置文本
func Build(p Params) (string, error) {
	doc, err := NewDocument(p)
	if err != nil {
		return "", err
	}
	out, err := toml.Marshal(doc)
	if err != nil {
		return "", coreerrors.Wrap(err, coreerrors.CodeInternal, "encode engine config")
	}
	return string(out), nil
}

// NewDocument 按参数组装配置文档
func NewDocument(p Params) (*Document, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	doc := &Document{
		InstanceName: p.InstanceName,
		Hostname:     hostname(p),
		Listeners:    []string{constants.ListenerTCP, constants.ListenerUDP},
		NetworkIdentity: NetworkIdentity{
			NetworkName:   p.RoomName,
			NetworkSecret: p.RoomSecret,
		},
		Flags: Flags{
			NoTun:            !p.FullTunnel,
			EnableEncryption: true,
			EnableKCPProxy:   true,
			LatencyFirst:     true,
			MultiThread:      true,
			DataCompressAlgo: constants.DataCompressAlgoZstd,
			MTU:              constants.DefaultMTU,
		},
	}

	for _, server := range p.PublicServers {
		doc.Peers = append(doc.Peers, PeerEntry{URI: server})
	}

	if p.IsHost {
		doc.IPv4 = constants.HostCIDR
		doc.DHCP = false
		for _, port := range p.GamePorts {
			doc.TCPWhitelist = append(doc.TCPWhitelist, strconv.Itoa(port))
			doc.UDPWhitelist = append(doc.UDPWhitelist, strconv.Itoa(port))
		}
		return doc, nil
	}

	doc.DHCP = true
	if p.WithPortForward {
		for _, port := range p.GamePorts {
			bind := "0.0.0.0:" + strconv.Itoa(port)
			dst := constants.HostIP + ":" + strconv.Itoa(port)
			doc.PortForwards = append(doc.PortForwards,
				PortForward{BindAddr: bind, DstAddr: dst, Proto: "tcp"},
				PortForward{BindAddr: bind, DstAddr: dst, Proto: "udp"},
			)
		}
	}
	return doc, nil
}

// Parse 解析配置文本，用于诊断与测试
func Parse(text string) (*Document, error) {
	var doc Document
	if err := toml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeConfigError, "decode engine config")
	}
	return &doc, nil
}

func hostname(p Params) string {
	if p.Hostname != "" {
		return p.Hostname
	}
	if p.IsHost {
		return constants.HostHostname
	}
	return constants.GuestHostname
}

func validate(p Params) error {
	if p.RoomName == "" {
		return coreerrors.New(coreerrors.CodeInvalidParam, "room name is required")
	}
	if p.InstanceName == "" {
		return coreerrors.New(coreerrors.CodeInvalidParam, "instance name is required")
	}
	for _, port := range p.GamePorts {
		if port <= 0 || port > 65535 {
			return coreerrors.Newf(coreerrors.CodeInvalidParam, "invalid game port: %d", port)
		}
	}
	return nil
}
