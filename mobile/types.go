package mobile

// 连接状态名，与 OnStateChanged 的 state 参数一致
const (
	StateDisconnected = "DISCONNECTED"
	StateConnecting   = "CONNECTING"
	StateFindingHost  = "FINDING_HOST"
	StateConnected    = "CONNECTED"
	StateError        = "ERROR"
)

// SessionStatus 会话状态快照
type SessionStatus struct {
	State          string // 连接状态名
	VirtualAddress string // 本机虚拟地址
	PeerCount      int    // 成员数
	ErrorMessage   string // ERROR 状态下的原因
	RoomName       string // 当前房间，未连接时为空
	Hostname       string // 本机在房间中的名字
	IsHost         bool   // 是否为主机
}

// Options 客户端参数
type Options struct {
	InstanceName  string // 引擎实例名，空为默认
	GamePorts     string // 逗号分隔的端口转发列表，空为默认
	PublicServers string // 逗号分隔的公共节点，空为默认
	FullTunnel    bool   // 经 VpnService 网卡转发房间流量
	LogLevel      string // debug / info / warn / error
}
