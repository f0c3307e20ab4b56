package enginetest

import (
	"encoding/binary"
	"encoding/json"
	"net/netip"
)

// Instance 描述一个实例的运行状态
type Instance struct {
	Running   bool
	ErrorMsg  string
	VirtualIP string // a.b.c.d，空表示尚未分配
	PrefixLen int    // 0 表示省略 network_length
	MyPeerID  uint32
	Peers     []Peer
	// RoutesOnly 只输出 routes，不输出 peer_route_pairs
	RoutesOnly bool
	// LegacyAddr 对端地址使用 ipv4_addr.addr 形式
	LegacyAddr bool
}

// Peer 描述一个对端路由
type Peer struct {
	ID           uint32
	Hostname     string
	IP           string
	LatencyUs    int64
	Tunnel       string
	NatType      int
	LossRate     float64
	PublicServer bool
}

// StatusJSON 按引擎运行信息格式生成状态快照
func StatusJSON(instances map[string]Instance) string {
	m := make(map[string]interface{}, len(instances))
	for name, inst := range instances {
		m[name] = instanceJSON(inst)
	}
	blob, err := json.Marshal(map[string]interface{}{"map": m})
	if err != nil {
		panic(err)
	}
	return string(blob)
}

func instanceJSON(inst Instance) map[string]interface{} {
	out := map[string]interface{}{
		"running": inst.Running,
	}
	if inst.ErrorMsg != "" {
		out["error_msg"] = inst.ErrorMsg
	}

	node := map[string]interface{}{"peer_id": inst.MyPeerID}
	if inst.VirtualIP != "" {
		v4 := map[string]interface{}{
			"address": map[string]interface{}{"addr": ipToUint32(inst.VirtualIP)},
		}
		if inst.PrefixLen > 0 {
			v4["network_length"] = inst.PrefixLen
		}
		node["virtual_ipv4"] = v4
	}
	out["my_node_info"] = node

	routes := make([]interface{}, 0, len(inst.Peers))
	pairs := make([]interface{}, 0, len(inst.Peers))
	for _, p := range inst.Peers {
		route := routeJSON(p, inst.LegacyAddr)
		routes = append(routes, route)

		conn := map[string]interface{}{
			"tunnel":    map[string]interface{}{"tunnel_type": p.Tunnel},
			"stats":     map[string]interface{}{"latency_us": p.LatencyUs},
			"loss_rate": p.LossRate,
		}
		pairs = append(pairs, map[string]interface{}{
			"route": route,
			"peer":  map[string]interface{}{"conns": []interface{}{conn}},
		})
	}
	out["routes"] = routes
	if !inst.RoutesOnly {
		out["peer_route_pairs"] = pairs
	}
	return out
}

func routeJSON(p Peer, legacy bool) map[string]interface{} {
	route := map[string]interface{}{
		"peer_id":      p.ID,
		"hostname":     p.Hostname,
		"stun_info":    map[string]interface{}{"udp_nat_type": p.NatType},
		"feature_flag": map[string]interface{}{"is_public_server": p.PublicServer},
	}
	if p.IP != "" {
		addr := ipToUint32(p.IP)
		if legacy {
			route["ipv4_addr"] = map[string]interface{}{"addr": addr}
		} else {
			route["ipv4_addr"] = map[string]interface{}{
				"address":        map[string]interface{}{"addr": addr},
				"network_length": 24,
			}
		}
	}
	return route
}

func ipToUint32(ip string) uint32 {
	a := netip.MustParseAddr(ip).As4()
	return binary.BigEndian.Uint32(a[:])
}
