package status

var natTypeNames = [...]string{
	0: "Unknown",
	1: "OpenInternet",
	2: "NoPAT",
	3: "FullCone",
	4: "Restricted",
	5: "PortRestricted",
	6: "Symmetric",
	7: "SymUdpFirewall",
}

// NATTypeName 把 udp_nat_type 转换为名称，未知取值返回 Unknown
func NATTypeName(t int) string {
	if t < 0 || t >= len(natTypeNames) {
		return natTypeNames[0]
	}
	return natTypeNames[t]
}
