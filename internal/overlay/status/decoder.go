package status

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"lanlink-core/internal/constants"
)

const defaultNetworkLength = 24

// Decode 解析状态快照
// 任何结构错误都返回 (nil, false)，不会返回部分结果
func Decode(blob string) (map[string]InstanceSnapshot, bool) {
	var raw statusBlob
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, false
	}
	if raw.Map == nil {
		return nil, false
	}

	out := make(map[string]InstanceSnapshot, len(*raw.Map))
	for name, info := range *raw.Map {
		if info == nil {
			return nil, false
		}
		out[name] = decodeInstance(name, *info)
	}
	return out, true
}

func decodeInstance(name string, info instanceInfo) InstanceSnapshot {
	snap := InstanceSnapshot{
		InstanceName: name,
		Running:      info.Running,
	}
	if info.ErrorMsg != nil {
		snap.ErrorMessage = *info.ErrorMsg
	}

	var myPeerID uint64
	if info.MyNodeInfo != nil {
		myPeerID = info.MyNodeInfo.PeerID
		snap.VirtualAddress = formatInet(info.MyNodeInfo.VirtualIPv4)
	}

	peers := make([]PeerInfo, 0, len(info.PeerRoutePairs))
	for _, pair := range info.PeerRoutePairs {
		if pair.Route == nil {
			continue
		}
		p, ok := decodeRoute(*pair.Route, myPeerID)
		if !ok {
			continue
		}
		if pair.Peer != nil && len(pair.Peer.Conns) > 0 {
			c := pair.Peer.Conns[0]
			if c.Tunnel != nil && c.Tunnel.TunnelType != "" {
				p.TunnelProtocol = c.Tunnel.TunnelType
			}
			if c.Stats != nil && c.Stats.LatencyUs > 0 {
				p.LatencyMs = latencyMs(c.Stats.LatencyUs)
			}
			p.LossRate = float32(c.LossRate)
		}
		peers = append(peers, p)
	}

	// peer_route_pairs 没有可用对端时退回 routes
	if len(peers) == 0 {
		for _, r := range info.Routes {
			if p, ok := decodeRoute(r, myPeerID); ok {
				peers = append(peers, p)
			}
		}
	}

	snap.Peers = peers
	return snap
}

// decodeRoute 跳过自身、无效 ID 与公共中继节点
func decodeRoute(r route, myPeerID uint64) (PeerInfo, bool) {
	if r.PeerID == 0 || r.PeerID == myPeerID {
		return PeerInfo{}, false
	}
	if IsPublicServer(r.Hostname, r.FeatureFlag != nil && r.FeatureFlag.IsPublicServer) {
		return PeerInfo{}, false
	}

	id := strconv.FormatUint(r.PeerID, 10)
	p := PeerInfo{
		ID:             id,
		VirtualAddress: AddressUnknown,
		Hostname:       r.Hostname,
		TunnelProtocol: TunnelUnknown,
		NATType:        NATTypeName(0),
	}
	if p.Hostname == "" {
		p.Hostname = "Peer-" + id
	}
	if addr := routeAddr(r.IPv4Addr); addr != 0 {
		p.VirtualAddress = formatIPv4(addr)
	}
	if r.StunInfo != nil {
		p.NATType = NATTypeName(r.StunInfo.UDPNatType)
	}
	return p, true
}

// IsPublicServer 公共中继节点判定
func IsPublicServer(hostname string, flagged bool) bool {
	return flagged || strings.HasPrefix(hostname, constants.PublicServerHostnamePrefix)
}

func routeAddr(v *routeIPv4) uint32 {
	if v == nil {
		return 0
	}
	if v.Address != nil && v.Address.Addr != 0 {
		return uint32(v.Address.Addr)
	}
	return uint32(v.Addr)
}

func formatInet(v *ipv4Inet) string {
	if v == nil || v.Address == nil || uint32(v.Address.Addr) == 0 {
		return ""
	}
	length := defaultNetworkLength
	if v.NetworkLength != nil {
		length = *v.NetworkLength
	}
	return fmt.Sprintf("%s/%d", formatIPv4(uint32(v.Address.Addr)), length)
}

// latencyMs 微秒转毫秒，不足 1ms 记为 1，0 留给未测得
func latencyMs(us int64) int {
	if us <= 0 {
		return 0
	}
	if ms := int(us / 1000); ms > 0 {
		return ms
	}
	return 1
}

func formatIPv4(addr uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(addr>>24), byte(addr>>16), byte(addr>>8), byte(addr))
}
