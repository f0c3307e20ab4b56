package constants

import "time"

// 房间子网与主机地址
const (
	// HostIP 主机在房间子网内的固定虚拟地址，访客据此识别主机
	HostIP = "10.126.126.1"

	// HostCIDR 主机地址带前缀长度
	HostCIDR = "10.126.126.1/24"

	// RoomSubnet 房间子网，全隧道模式下路由到 TUN
	RoomSubnet = "10.126.126.0/24"

	// HostHostname 主机节点名
	HostHostname = "host"

	// GuestHostname 访客默认节点名
	GuestHostname = "guest"
)

// 游戏端口
const (
	PortTerraria  = 7777
	PortStardew   = 24642
	PortMinecraft = 25565
)

// DefaultGamePorts 默认转发的游戏端口
var DefaultGamePorts = []int{PortTerraria, PortStardew}

// PublicServers 公共中继节点，无直连路径时使用
var PublicServers = []string{
	"tcp://public.easytier.cn:11010",
	"tcp://public.easytier.top:11010",
	"tcp://public2.easytier.cn:54321",
	"tcp://ah.nkbpal.cn:11010",
	"tcp://turn.hb.629957.xyz:11010",
	"tcp://turn.js.629957.xyz:11012",
	"tcp://sh.993555.xyz:11010",
	"tcp://turn.bj.629957.xyz:11010",
	"tcp://et.sh.suhoan.cn:11010",
	"tcp://et-hk.clickor.click:11010",
}

// 会话
const (
	// DefaultInstanceName 引擎实例默认名
	DefaultInstanceName = "lan_multiplayer"

	// MonitorInterval 状态轮询间隔
	MonitorInterval = 3 * time.Second

	// MinStatusBlobLength 短于此长度的状态快照视为引擎未就绪
	MinStatusBlobLength = 50

	// PublicServerHostnamePrefix 公共中继节点主机名前缀
	PublicServerHostnamePrefix = "PublicServer_"
)

// 网卡
const (
	// DefaultMTU 虚拟网卡与引擎共用的 MTU
	DefaultMTU = 1380

	// DefaultTunName Linux 下默认网卡名
	DefaultTunName = "lanlink0"

	// TunInitTimeout 网卡初始化超时
	TunInitTimeout = 10 * time.Second

	// HealthCheckTimeout 单个健康检查器超时
	HealthCheckTimeout = 2 * time.Second
)

// 引擎配置
const (
	// DataCompressAlgoZstd 引擎 data_compress_algo 取值
	DataCompressAlgoZstd = 2

	ListenerTCP = "tcp://0.0.0.0:0"
	ListenerUDP = "udp://0.0.0.0:0"
)

// 控制接口
const (
	DefaultAPIListen   = "127.0.0.1:9870"
	DefaultConfigDir   = ".lanlink"
	DefaultConfigFile  = "config.yaml"
	DefaultLogFileName = "lanlink.log"
)
