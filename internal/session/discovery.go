package session

import (
	"strings"

	"lanlink-core/internal/constants"
	"lanlink-core/internal/overlay/status"
)

// IsHostPeer 主机判定：主机名含 host（不区分大小写），或地址为主机固定地址（可带 /掩码）
// 10.126.126.12 这类访客地址不算
func IsHostPeer(p status.PeerInfo) bool {
	if strings.Contains(strings.ToLower(p.Hostname), constants.HostHostname) {
		return true
	}
	return p.VirtualAddress == constants.HostIP || strings.HasPrefix(p.VirtualAddress, constants.HostIP+"/")
}

func findHost(peers []status.PeerInfo) (status.PeerInfo, bool) {
	for _, p := range peers {
		if IsHostPeer(p) {
			return p, true
		}
	}
	return status.PeerInfo{}, false
}
