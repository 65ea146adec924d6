package security

import (
	"net/netip"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// EndpointPolicy says which provider endpoints are acceptable.
type EndpointPolicy struct {
	// AllowLocal permits plain http and loopback, private or link-local
	// targets. It is meant for development against local mocks.
	AllowLocal bool
}

// CheckEndpoint rejects provider base URLs that would send credentials in
// clear text or to the local network. Hostnames are not resolved.
func CheckEndpoint(raw string, p EndpointPolicy) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(err, "invalid endpoint %q", raw)
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !p.AllowLocal {
			return errors.Errorf("endpoint %q must use https", raw)
		}
	default:
		return errors.Errorf("endpoint %q has unsupported scheme %q", raw, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.Errorf("endpoint %q has no host", raw)
	}
	if p.AllowLocal {
		return nil
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return errors.Errorf("endpoint host %q is local", host)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		// a hostname
		return nil
	}
	if addr.Zone() != "" {
		return errors.Errorf("endpoint address %q is zoned", host)
	}
	addr = addr.Unmap()
	switch {
	case addr.IsUnspecified(), addr.IsMulticast():
		return errors.Errorf("endpoint address %q is not routable", host)
	case addr.IsLoopback(), addr.IsPrivate(), addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return errors.Errorf("endpoint address %q is on a local network", host)
	}
	return nil
}
