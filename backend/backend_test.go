package backend

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRenderActivation(t *testing.T) {
	rules := []Rule{
		{Interface: "eth0", Prefix: netip.MustParsePrefix("10.0.0.0/24")},
		{Interface: "", Prefix: netip.MustParsePrefix("2001:db8::/64")},
	}
	line := renderActivation(50*time.Millisecond, rules)
	require.Equal(t, "50.000000 eth0|10.0.0.0/24 |2001:db8::/64\n", line)
}

func TestRenderActivation_NoRules(t *testing.T) {
	require.Equal(t, "25.000000\n", renderActivation(25*time.Millisecond, nil))
}

func TestProfileByName(t *testing.T) {
	p, ok := ProfileByName("")
	require.True(t, ok)
	require.Equal(t, LinuxProfile, p)

	p, ok = ProfileByName("ios")
	require.True(t, ok)
	require.Equal(t, 23*time.Millisecond, p.MinSlot)

	_, ok = ProfileByName("junos")
	require.False(t, ok)
}

func TestStartupLine(t *testing.T) {
	s := NewSSH(LinuxProfile, SSHConfig{
		CollectorAddress: "192.0.2.1",
		EncapAddress:     "10.0.0.1",
	}, nil)
	line := s.startupLine(netip.MustParseAddr("198.51.100.7"))
	require.Equal(t,
		"/bin/stroboscope-linux-backend 192.0.2.1 198.51.100.7 10.0.0.1",
		line)
}

func TestNopBackend(t *testing.T) {
	n := &Nop{}
	require.Equal(t, 25*time.Millisecond, n.MinSlotDuration())
	require.NoError(t, n.Activate(context.Background(),
		netip.MustParseAddr("192.0.2.1"), nil, 25*time.Millisecond))
	require.NoError(t, n.Close())
}
