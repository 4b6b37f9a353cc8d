package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// TrustedRealIP resolves the client IP behind a reverse proxy. The
// X-Real-IP and X-Forwarded-For headers are only honored when the
// connection itself comes from a configured proxy CIDR; otherwise the
// socket address stands. Rate limiting and request logs key off the
// resolved address, so an untrusted client must not be able to pick its
// own.
func TrustedRealIP(trustedCIDRs []string) func(http.Handler) http.Handler {
	trustedNets := parseTrusted(trustedCIDRs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remoteIP := extractIP(r.RemoteAddr)

			if isTrusted(remoteIP, trustedNets) {
				if ip := headerIP(r); ip != nil {
					r.RemoteAddr = ip.String()
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// parseTrusted parses proxy CIDRs once at construction. Bare IPs are
// widened to single-host networks; unparsable entries are logged and
// skipped rather than failing startup.
func parseTrusted(cidrs []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}

		if _, network, err := net.ParseCIDR(cidr); err == nil {
			nets = append(nets, network)
			continue
		}

		if ip := net.ParseIP(cidr); ip != nil {
			mask := net.CIDRMask(128, 128)
			if ip.To4() != nil {
				mask = net.CIDRMask(32, 32)
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: mask})
			continue
		}

		slog.Warn("realip: invalid trusted proxy entry, skipping", "cidr", cidr)
	}
	return nets
}

// headerIP extracts a validated client IP from the proxy headers.
// X-Real-IP wins; X-Forwarded-For falls back to the first hop, which is
// the original client in a well-behaved chain.
func headerIP(r *http.Request) net.IP {
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return net.ParseIP(strings.TrimSpace(rip))
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return nil
	}
	candidate := xff
	if idx := strings.Index(xff, ","); idx > 0 {
		candidate = xff[:idx]
	}
	return net.ParseIP(strings.TrimSpace(candidate))
}

// extractIP parses an IP address from a host:port string or plain IP.
func extractIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}

func isTrusted(ip net.IP, trusted []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, network := range trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
