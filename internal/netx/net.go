// Package netx holds small networking helpers shared by the endpoint agent.
package netx

import (
	"net"
	"net/url"
)

// FirstIPv4 returns the first non-loopback IPv4 address in addrs.
//
// Parameters:
//
//	addrs: interface addresses, usually from net.InterfaceAddrs
//
// Returns:
//
//	The address and true, or nil and false when addrs holds only loopback,
//	unspecified or IPv6 addresses.
func FirstIPv4(addrs []net.Addr) (net.IP, bool) {
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		default:
			continue
		}
		if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() && !ip4.IsUnspecified() {
			return ip4, true
		}
	}
	return nil, false
}

// ReachableHost returns an address other hosts can use to reach this one:
// the first non-loopback IPv4 address of an interface, or fallback.
func ReachableHost(fallback string) string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return fallback
	}
	if ip, ok := FirstIPv4(addrs); ok {
		return ip.String()
	}
	return fallback
}

// LockURL builds the link that triggers the lock listener.
//
// Parameters:
//
//	host:       address the recipient's browser should connect to
//	listenAddr: the lock listener bind address ("host:port" or ":port");
//	            only its port is used
//	token:      current lock token, sent as the "token" query parameter
//
// Returns:
//
//	A URL of the form http://host:port/?token=VALUE, or an error when
//	listenAddr has no port.
func LockURL(host, listenAddr, token string) (string, error) {
	_, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "", err
	}
	u := url.URL{
		Scheme:   "http",
		Host:     net.JoinHostPort(host, port),
		Path:     "/",
		RawQuery: url.Values{"token": {token}}.Encode(),
	}
	return u.String(), nil
}
