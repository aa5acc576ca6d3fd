package middleware

import (
	"log/slog"
	"net"

	"github.com/labstack/echo/v4"
)

// TrustedProxies configures how c.RealIP() resolves the client address.
// X-Forwarded-For is honoured only for hops inside trustedCIDRs; anything
// else falls back to the direct peer address. The rate limiter keys on this
// value, so an untrusted client must not be able to pick its own IP.
//
// Invalid CIDRs are logged and skipped.
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) {
	e.IPExtractor = echo.ExtractIPFromXFFHeader(trustOptions(trustedCIDRs)...)
}

// trustOptions turns CIDR strings into Echo trust options. Echo's implicit
// loopback/link-local/private trust is switched off so only the configured
// ranges count.
func trustOptions(trustedCIDRs []string) []echo.TrustOption {
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy CIDR", slog.String("cidr", cidr))
			continue
		}
		opts = append(opts, echo.TrustIPRange(network))
	}
	return opts
}
