package config

import (
	"net/netip"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ValidateEndpoint checks a provider base URL before any request is sent to
// it. Plain HTTP and local-network hosts are only accepted when allowLocal is
// set, which is what self-hosted OpenAI-compatible servers need.
func ValidateEndpoint(rawURL string, allowLocal bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrapf(err, "invalid endpoint %q", rawURL)
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !allowLocal {
			return errors.Errorf("endpoint %q: http requires allow-local-endpoints", rawURL)
		}
	default:
		return errors.Errorf("endpoint %q: unsupported scheme %q", rawURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.Errorf("endpoint %q has no host", rawURL)
	}
	if allowLocal {
		return nil
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return errors.Errorf("endpoint %q: local host %s is not allowed", rawURL, host)
	}

	// IP literals are checked without resolving anything.
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	if addr.Zone() != "" {
		return errors.Errorf("endpoint %q: zoned address is not allowed", rawURL)
	}
	addr = addr.Unmap()
	if addr.IsUnspecified() || addr.IsMulticast() ||
		addr.IsLoopback() || addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
		return errors.Errorf("endpoint %q: address %s is not allowed", rawURL, addr)
	}
	return nil
}
