package netx

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ipNet(s string) *net.IPNet {
	ip, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	n.IP = ip
	return n
}

func TestFirstIPv4(t *testing.T) {
	t.Run("skips loopback and ipv6", func(t *testing.T) {
		ip, ok := FirstIPv4([]net.Addr{
			ipNet("127.0.0.1/8"),
			ipNet("fe80::1/64"),
			ipNet("192.168.1.23/24"),
			ipNet("10.0.0.1/8"),
		})
		require.True(t, ok)
		assert.Equal(t, "192.168.1.23", ip.String())
	})

	t.Run("ip addr type", func(t *testing.T) {
		ip, ok := FirstIPv4([]net.Addr{&net.IPAddr{IP: net.ParseIP("172.16.0.9")}})
		require.True(t, ok)
		assert.Equal(t, "172.16.0.9", ip.String())
	})

	t.Run("nothing usable", func(t *testing.T) {
		_, ok := FirstIPv4([]net.Addr{ipNet("127.0.0.1/8"), &net.TCPAddr{IP: net.ParseIP("10.0.0.1")}})
		assert.False(t, ok)

		_, ok = FirstIPv4(nil)
		assert.False(t, ok)
	})
}

func TestReachableHost_NeverEmpty(t *testing.T) {
	assert.NotEmpty(t, ReachableHost("fallback.local"))
}

func TestLockURL(t *testing.T) {
	u, err := LockURL("10.0.0.5", ":8080", "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8080/?token=ABC123", u)

	u, err = LockURL("host", "0.0.0.0:9000", "X")
	require.NoError(t, err)
	assert.Equal(t, "http://host:9000/?token=X", u)

	_, err = LockURL("host", "no-port", "X")
	assert.Error(t, err)
}
