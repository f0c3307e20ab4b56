package mobile

// EventCallback 事件回调接口，由 Android 实现
// 回调在后台 goroutine 中触发，实现方需自行切换到主线程
type EventCallback interface {
	// OnStateChanged 连接状态变化
	// state: DISCONNECTED / CONNECTING / FINDING_HOST / CONNECTED / ERROR
	// virtualAddress: 本机虚拟地址，未分配时为空
	OnStateChanged(state string, virtualAddress string)

	// OnPeersUpdated 成员列表变化
	// peersJSON: PeerInfo 数组的 JSON
	OnPeersUpdated(peersJSON string)

	// OnError 会话进入 ERROR 或后台操作失败
	OnError(errMsg string)
}
