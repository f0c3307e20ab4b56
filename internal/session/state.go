package session

import (
	"fmt"
	"slices"

	"lanlink-core/internal/overlay/status"
)

// ConnectionState 会话连接状态
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateFindingHost
	StateConnected
	StateError
)

var stateNames = map[ConnectionState]string{
	StateDisconnected: "DISCONNECTED",
	StateConnecting:   "CONNECTING",
	StateFindingHost:  "FINDING_HOST",
	StateConnected:    "CONNECTED",
	StateError:        "ERROR",
}

func (s ConnectionState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ConnectionState(%d)", int(s))
}

// MarshalText JSON 中输出状态名
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 解析状态名
func (s *ConnectionState) UnmarshalText(text []byte) error {
	for k, v := range stateNames {
		if v == string(text) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown connection state: %s", text)
}

// monitored 监控循环只在这两个状态下运行
func (s ConnectionState) monitored() bool {
	return s == StateFindingHost || s == StateConnected
}

// busy 连接进行中或已连接
func (s ConnectionState) busy() bool {
	return s == StateConnecting || s.monitored()
}

// StateNames 全部状态名，按枚举顺序
func StateNames() []string {
	out := make([]string, 0, len(stateNames))
	for s := StateDisconnected; s <= StateError; s++ {
		out = append(out, s.String())
	}
	return out
}

// State 对外发布的会话状态
type State struct {
	Connection     ConnectionState   `json:"connection_state"`
	VirtualAddress string            `json:"virtual_address,omitempty"`
	Peers          []status.PeerInfo `json:"peers"`
	ErrorMessage   string            `json:"error_message,omitempty"`
}

func newState(c ConnectionState) State {
	return State{Connection: c, Peers: []status.PeerInfo{}}
}

func errorState(msg string) State {
	s := newState(StateError)
	s.ErrorMessage = msg
	return s
}

// Equal 值比较
func (s State) Equal(o State) bool {
	return s.Connection == o.Connection &&
		s.VirtualAddress == o.VirtualAddress &&
		s.ErrorMessage == o.ErrorMessage &&
		slices.Equal(s.Peers, o.Peers)
}

// Identity 一次连接的身份，Connect 创建，Disconnect 清除
type Identity struct {
	InstanceName string `json:"instance_name"`
	RoomName     string `json:"room_name"`
	RoomSecret   string `json:"-"`
	IsHost       bool   `json:"is_host"`
	Hostname     string `json:"hostname"`
}

// Role host / guest
func (i Identity) Role() string {
	if i.IsHost {
		return "host"
	}
	return "guest"
}

// ConnectOptions Connect 参数
type ConnectOptions struct {
	RoomName     string `json:"room_name"`
	RoomSecret   string `json:"room_secret"`
	IsHost       bool   `json:"is_host"`
	InstanceName string `json:"instance_name,omitempty"`
}
