package handlers

import "net"

// remoteIP extracts the bare IP from a request's RemoteAddr, dropping the
// ephemeral port. Returns the address unchanged if it carries no port.
func remoteIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
