// Package target turns the test URL into the endpoint that is reached through
// the proxy.
package target

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
)

// DefaultURL answers 204 No Content and is cheap to hit repeatedly.
const DefaultURL = "http://www.google.com/generate_204"

var (
	ErrInvalidURL        = errors.New("invalid test URL")
	ErrUnsupportedScheme = errors.New("unsupported scheme, only HTTP is supported")
)

// HostKind tells how the host was written in the URL.
type HostKind int

const (
	Domain HostKind = iota
	IPv4
	IPv6
)

func (k HostKind) String() string {
	switch k {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	default:
		return "domain"
	}
}

// Target is the resolved form of the test URL.
type Target struct {
	Scheme     string
	Host       string // without brackets for IPv6
	Kind       HostKind
	Port       uint16
	RequestURI string
}

// Resolve parses raw; an empty string resolves DefaultURL. No network access
// happens here.
func Resolve(raw string) (Target, error) {
	if strings.TrimSpace(raw) == "" {
		raw = DefaultURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" {
		return Target{}, fmt.Errorf("%w: missing scheme in %q", ErrInvalidURL, raw)
	}
	if !strings.EqualFold(u.Scheme, "http") || u.Opaque != "" {
		return Target{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return Target{}, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}

	port := uint16(80)
	if p := u.Port(); p != "" {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil || n == 0 {
			return Target{}, fmt.Errorf("%w: bad port %q", ErrInvalidURL, p)
		}
		port = uint16(n)
	}

	t := Target{Scheme: "http", Port: port}
	if addr, err := netip.ParseAddr(host); err == nil {
		t.Kind = IPv6
		if addr.Is4() {
			t.Kind = IPv4
		}
		t.Host = addr.String()
	} else if strings.Contains(host, ":") {
		return Target{}, fmt.Errorf("%w: bad IPv6 host %q", ErrInvalidURL, host)
	} else {
		t.Kind = Domain
		t.Host = strings.ToLower(host)
	}

	t.RequestURI = u.EscapedPath()
	if t.RequestURI == "" {
		t.RequestURI = "/"
	}
	if u.RawQuery != "" {
		t.RequestURI += "?" + u.RawQuery
	}
	return t, nil
}

// Address is host:port as understood by dialers.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

// SendsHostHeader reports whether requests to t carry an explicit Host header.
// Literal IP targets do not.
func (t Target) SendsHostHeader() bool { return t.Kind == Domain }

// URL rebuilds the absolute request URL.
func (t Target) URL() string {
	host := t.Host
	if t.Port != 80 {
		host = t.Address()
	} else if t.Kind == IPv6 {
		host = "[" + t.Host + "]"
	}
	return t.Scheme + "://" + host + t.RequestURI
}
