package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanlink-core/internal/engine/enginetest"
)

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"empty", ""},
		{"not json", "{{{"},
		{"missing map", `{"instances": {}}`},
		{"null map", `{"map": null}`},
		{"entry not object", `{"map": {"room": "running"}}`},
		{"null entry", `{"map": {"room": null}}`},
		{"one bad entry spoils all", `{"map": {"a": {"running": true}, "b": 7}}`},
		{"wrong field type", `{"map": {"room": {"running": "yes"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decode(tt.blob)
			assert.False(t, ok)
			assert.Nil(t, got)
		})
	}
}

func TestDecode_EmptyMap(t *testing.T) {
	got, ok := Decode(`{"map": {}}`)
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestDecode_PeerRoutePairs(t *testing.T) {
	blob := enginetest.StatusJSON(map[string]enginetest.Instance{
		"lan-party": {
			Running:   true,
			VirtualIP: "10.126.126.5",
			PrefixLen: 24,
			MyPeerID:  100,
			Peers: []enginetest.Peer{
				{ID: 100, Hostname: "guest_self", IP: "10.126.126.5"},
				{ID: 0, Hostname: "ghost"},
				{ID: 200, Hostname: "host", IP: "10.126.126.1", LatencyUs: 35_400, Tunnel: "udp", NatType: 3, LossRate: 0.25},
				{ID: 300, Hostname: "PublicServer_cn", IP: "10.0.0.9"},
				{ID: 400, Hostname: "relay", PublicServer: true},
				{ID: 500, Hostname: "", NatType: 42},
			},
		},
	})

	got, ok := Decode(blob)
	require.True(t, ok)
	snap := got["lan-party"]

	assert.Equal(t, "lan-party", snap.InstanceName)
	assert.True(t, snap.Running)
	assert.Equal(t, "10.126.126.5/24", snap.VirtualAddress)
	require.Len(t, snap.Peers, 2)

	host := snap.Peers[0]
	assert.Equal(t, PeerInfo{
		ID:             "200",
		VirtualAddress: "10.126.126.1",
		Hostname:       "host",
		LatencyMs:      35,
		TunnelProtocol: "udp",
		NATType:        "FullCone",
		LossRate:       0.25,
	}, host)
	assert.True(t, host.HasLatency())

	anon := snap.Peers[1]
	assert.Equal(t, "Peer-500", anon.Hostname)
	assert.Equal(t, AddressUnknown, anon.VirtualAddress)
	assert.Equal(t, "Unknown", anon.NATType)
	assert.False(t, anon.HasLatency())
}

func TestDecode_FallsBackToRoutes(t *testing.T) {
	blob := enginetest.StatusJSON(map[string]enginetest.Instance{
		"room": {
			Running:    true,
			MyPeerID:   1,
			RoutesOnly: true,
			LegacyAddr: true,
			Peers: []enginetest.Peer{
				{ID: 2, Hostname: "host", IP: "10.126.126.1", LatencyUs: 9000, Tunnel: "tcp"},
			},
		},
	})

	got, ok := Decode(blob)
	require.True(t, ok)
	peers := got["room"].Peers
	require.Len(t, peers, 1)
	assert.Equal(t, "10.126.126.1", peers[0].VirtualAddress)
	// routes 不带连接信息
	assert.Equal(t, TunnelUnknown, peers[0].TunnelProtocol)
	assert.Zero(t, peers[0].LatencyMs)
}

func TestDecode_PairsOnlySelfFallsBackToRoutes(t *testing.T) {
	blob := `{"map": {"room": {
		"running": true,
		"my_node_info": {"peer_id": 1},
		"peer_route_pairs": [{"route": {"peer_id": 1, "hostname": "me"}}],
		"routes": [{"peer_id": 9, "hostname": "host"}]
	}}}`

	got, ok := Decode(blob)
	require.True(t, ok)
	require.Len(t, got["room"].Peers, 1)
	assert.Equal(t, "9", got["room"].Peers[0].ID)
}

func TestDecode_NotRunningCarriesError(t *testing.T) {
	got, ok := Decode(`{"map": {"room": {"running": false, "error_msg": "port in use"}}}`)
	require.True(t, ok)
	assert.False(t, got["room"].Running)
	assert.Equal(t, "port in use", got["room"].ErrorMessage)
	assert.Empty(t, got["room"].VirtualAddress)
	assert.Empty(t, got["room"].Peers)
}

func TestDecode_VirtualAddressDefaults(t *testing.T) {
	blob := `{"map": {
		"a": {"running": true, "my_node_info": {"virtual_ipv4": {"address": {"addr": 176061953}}}},
		"b": {"running": true, "my_node_info": {"virtual_ipv4": {"address": {"addr": 0}, "network_length": 24}}},
		"c": {"running": true, "my_node_info": {"virtual_ipv4": {"address": {"addr": 176061954}, "network_length": 16}}}
	}}`

	got, ok := Decode(blob)
	require.True(t, ok)
	assert.Equal(t, "10.126.126.1/24", got["a"].VirtualAddress)
	assert.Empty(t, got["b"].VirtualAddress)
	assert.Equal(t, "10.126.126.2/16", got["c"].VirtualAddress)
}

func TestNATTypeName(t *testing.T) {
	assert.Equal(t, "Symmetric", NATTypeName(6))
	assert.Equal(t, "SymUdpFirewall", NATTypeName(7))
	assert.Equal(t, "Unknown", NATTypeName(8))
	assert.Equal(t, "Unknown", NATTypeName(-1))
}

func TestDecode_SubMillisecondLatencyIsKnown(t *testing.T) {
	blob := enginetest.StatusJSON(map[string]enginetest.Instance{
		"room": {
			Running:  true,
			MyPeerID: 1,
			Peers: []enginetest.Peer{
				{ID: 2, Hostname: "host", IP: "10.126.126.1", LatencyUs: 400, Tunnel: "udp"},
			},
		},
	})

	got, ok := Decode(blob)
	require.True(t, ok)
	require.Len(t, got["room"].Peers, 1)
	assert.Equal(t, 1, got["room"].Peers[0].LatencyMs)
	assert.True(t, got["room"].Peers[0].HasLatency())
}

func TestLatencyMs(t *testing.T) {
	tests := []struct {
		us   int64
		want int
	}{
		{0, 0},
		{-5, 0},
		{1, 1},
		{999, 1},
		{1000, 1},
		{35_400, 35},
	}
	for _, tt := range tests {
		if got := latencyMs(tt.us); got != tt.want {
			t.Errorf("latencyMs(%d) = %d, want %d", tt.us, got, tt.want)
		}
	}
}
