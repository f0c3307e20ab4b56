package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanlink-core/internal/constants"
	coreerrors "lanlink-core/internal/core/errors"
)

func hostParams() Params {
	return Params{
		InstanceName:  "lan_multiplayer",
		RoomName:      "lan-party",
		RoomSecret:    "s3cret",
		IsHost:        true,
		GamePorts:     []int{7777, 24642},
		PublicServers: []string{"tcp://relay-a:11010", "tcp://relay-b:11010"},
	}
}

func guestParams() Params {
	p := hostParams()
	p.IsHost = false
	p.WithPortForward = true
	return p
}

func TestBuild_Host(t *testing.T) {
	text, err := Build(hostParams())
	require.NoError(t, err)

	doc, err := Parse(text)
	require.NoError(t, err)

	assert.Equal(t, "lan_multiplayer", doc.InstanceName)
	assert.Equal(t, "host", doc.Hostname)
	assert.Equal(t, "10.126.126.1/24", doc.IPv4)
	assert.False(t, doc.DHCP)
	assert.Equal(t, []string{"7777", "24642"}, doc.TCPWhitelist)
	assert.Equal(t, []string{"7777", "24642"}, doc.UDPWhitelist)
	assert.Empty(t, doc.PortForwards)
	assert.Equal(t, NetworkIdentity{NetworkName: "lan-party", NetworkSecret: "s3cret"}, doc.NetworkIdentity)
	assert.Equal(t, []PeerEntry{{URI: "tcp://relay-a:11010"}, {URI: "tcp://relay-b:11010"}}, doc.Peers)
	assert.Equal(t, []string{"tcp://0.0.0.0:0", "udp://0.0.0.0:0"}, doc.Listeners)
}

func TestBuild_GuestForwardsEveryPortBothProtocols(t *testing.T) {
	text, err := Build(guestParams())
	require.NoError(t, err)

	doc, err := Parse(text)
	require.NoError(t, err)

	assert.Equal(t, "guest", doc.Hostname)
	assert.True(t, doc.DHCP)
	assert.Empty(t, doc.IPv4)
	assert.Empty(t, doc.TCPWhitelist)
	assert.Equal(t, []PortForward{
		{BindAddr: "0.0.0.0:7777", DstAddr: "10.126.126.1:7777", Proto: "tcp"},
		{BindAddr: "0.0.0.0:7777", DstAddr: "10.126.126.1:7777", Proto: "udp"},
		{BindAddr: "0.0.0.0:24642", DstAddr: "10.126.126.1:24642", Proto: "tcp"},
		{BindAddr: "0.0.0.0:24642", DstAddr: "10.126.126.1:24642", Proto: "udp"},
	}, doc.PortForwards)
}

func TestBuild_GuestWithoutForward(t *testing.T) {
	p := guestParams()
	p.WithPortForward = false

	doc, err := NewDocument(p)
	require.NoError(t, err)
	assert.Empty(t, doc.PortForwards)
}

func TestBuild_Flags(t *testing.T) {
	doc, err := NewDocument(hostParams())
	require.NoError(t, err)
	assert.Equal(t, Flags{
		NoTun:            true,
		EnableEncryption: true,
		EnableKCPProxy:   true,
		LatencyFirst:     true,
		MultiThread:      true,
		DataCompressAlgo: 2,
		MTU:              constants.DefaultMTU,
	}, doc.Flags)

	p := hostParams()
	p.FullTunnel = true
	doc, err = NewDocument(p)
	require.NoError(t, err)
	assert.False(t, doc.Flags.NoTun)
}

func TestBuild_Deterministic(t *testing.T) {
	a, err := Build(guestParams())
	require.NoError(t, err)
	b, err := Build(guestParams())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuild_CustomHostname(t *testing.T) {
	p := guestParams()
	p.Hostname = "guest_1a2b3c4d"
	doc, err := NewDocument(p)
	require.NoError(t, err)
	assert.Equal(t, "guest_1a2b3c4d", doc.Hostname)
}

func TestBuild_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"empty room", func(p *Params) { p.RoomName = "" }},
		{"empty instance", func(p *Params) { p.InstanceName = "" }},
		{"port zero", func(p *Params) { p.GamePorts = []int{0} }},
		{"port too large", func(p *Params) { p.GamePorts = []int{70000} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := hostParams()
			tt.mutate(&p)
			_, err := Build(p)
			assert.ErrorIs(t, err, coreerrors.ErrInvalidParam)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("instance_name = [unterminated")
	assert.ErrorIs(t, err, coreerrors.ErrConfigError)
}
