package httpx

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the caller address. Each of the trustedHops proxies in
// front of the server appends the address it received the request from to
// X-Forwarded-For, so the client is the entry trustedHops from the right.
// Anything left of it is caller supplied and ignored. With no trusted hops,
// or a header shorter than the proxy chain, the socket peer is used.
func ClientIP(r *http.Request, trustedHops int) string {
	if trustedHops > 0 {
		var hops []string
		for _, header := range r.Header.Values("X-Forwarded-For") {
			for _, hop := range strings.Split(header, ",") {
				hops = append(hops, strings.TrimSpace(hop))
			}
		}
		if len(hops) >= trustedHops {
			if ip := hops[len(hops)-trustedHops]; net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
