package status

// 引擎运行信息的 JSON 结构，只声明用到的字段

type statusBlob struct {
	Map *map[string]*instanceInfo `json:"map"`
}

type instanceInfo struct {
	Running        bool            `json:"running"`
	ErrorMsg       *string         `json:"error_msg"`
	MyNodeInfo     *nodeInfo       `json:"my_node_info"`
	PeerRoutePairs []peerRoutePair `json:"peer_route_pairs"`
	Routes         []route         `json:"routes"`
}

type nodeInfo struct {
	PeerID      uint64    `json:"peer_id"`
	VirtualIPv4 *ipv4Inet `json:"virtual_ipv4"`
}

// ipv4Inet {"address": {"addr": u32}, "network_length": n}
type ipv4Inet struct {
	Address       *ipv4Addr `json:"address"`
	NetworkLength *int      `json:"network_length"`
}

// ipv4Addr {"addr": u32}
type ipv4Addr struct {
	Addr int64 `json:"addr"`
}

// routeIPv4 兼容 {"address": {"addr": n}} 与 {"addr": n} 两种形式
type routeIPv4 struct {
	Address *ipv4Addr `json:"address"`
	Addr    int64     `json:"addr"`
}

type peerRoutePair struct {
	Route *route    `json:"route"`
	Peer  *peerConn `json:"peer"`
}

type route struct {
	PeerID      uint64       `json:"peer_id"`
	Hostname    string       `json:"hostname"`
	IPv4Addr    *routeIPv4   `json:"ipv4_addr"`
	StunInfo    *stunInfo    `json:"stun_info"`
	FeatureFlag *featureFlag `json:"feature_flag"`
}

type stunInfo struct {
	UDPNatType int `json:"udp_nat_type"`
}

type featureFlag struct {
	IsPublicServer bool `json:"is_public_server"`
}

type peerConn struct {
	Conns []conn `json:"conns"`
}

type conn struct {
	Tunnel   *tunnelInfo `json:"tunnel"`
	Stats    *connStats  `json:"stats"`
	LossRate float64     `json:"loss_rate"`
}

type tunnelInfo struct {
	TunnelType string `json:"tunnel_type"`
}

type connStats struct {
	LatencyUs int64 `json:"latency_us"`
}
