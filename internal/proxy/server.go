// Package proxy describes the forward proxy probes are tunneled through and
// opens byte streams to a target via that proxy.
package proxy

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/shadowsocks/go-shadowsocks2/core"
)

type Scheme string

const (
	SchemeShadowsocks Scheme = "ss"
	SchemeSOCKS5      Scheme = "socks5"
)

var (
	ErrInvalidProxyURL    = errors.New("invalid proxy URL")
	ErrUnsupportedProxy   = errors.New("unsupported proxy scheme")
	ErrPluginUnsupported  = errors.New("shadowsocks plugins are not supported")
	ErrUnsupportedCipher  = errors.New("unsupported shadowsocks method")
	ErrUnencodableAddress = errors.New("target address cannot be encoded")
)

// Server is a parsed proxy URL. It is immutable once returned by Parse.
type Server struct {
	Scheme   Scheme
	Addr     string // host:port
	Method   string // shadowsocks only
	Username string // socks5 only
	Password string
	Name     string // URL fragment, if any

	cipher core.Cipher
}

// Host is the proxy host without the port, for display.
func (s Server) Host() string {
	h, _, err := net.SplitHostPort(s.Addr)
	if err != nil {
		return s.Addr
	}
	return h
}

func (s Server) String() string {
	if s.Name != "" {
		return s.Name + " (" + string(s.Scheme) + "://" + s.Addr + ")"
	}
	return string(s.Scheme) + "://" + s.Addr
}

// Parse understands
//
//	ss://BASE64URL(method:password)@host:port[/][?plugin=...][#name]   (SIP002)
//	ss://method:password@host:port[#name]
//	ss://BASE64(method:password@host:port)[#name]                      (legacy)
//	socks5://[user:pass@]host:port
func Parse(raw string) (Server, error) {
	raw = strings.TrimSpace(raw)
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Server{}, fmt.Errorf("%w: missing scheme", ErrInvalidProxyURL)
	}
	switch strings.ToLower(scheme) {
	case "ss":
		return parseShadowsocks(rest)
	case "socks5", "socks5h":
		return parseSOCKS5(raw)
	default:
		return Server{}, fmt.Errorf("%w: %q", ErrUnsupportedProxy, scheme)
	}
}

func parseShadowsocks(rest string) (Server, error) {
	body, frag, _ := strings.Cut(rest, "#")
	name, err := url.PathUnescape(frag)
	if err != nil {
		name = frag
	}

	if !strings.Contains(body, "@") {
		decoded, err := decodeBase64(strings.TrimRight(body, "/"))
		if err != nil {
			return Server{}, fmt.Errorf("%w: %v", ErrInvalidProxyURL, err)
		}
		body = decoded
		// method:password@host:port; the password may contain '@'.
		at := strings.LastIndex(body, "@")
		if at < 0 {
			return Server{}, fmt.Errorf("%w: missing server address", ErrInvalidProxyURL)
		}
		method, password, ok := strings.Cut(body[:at], ":")
		if !ok {
			return Server{}, fmt.Errorf("%w: missing password", ErrInvalidProxyURL)
		}
		return newShadowsocks(method, password, body[at+1:], name)
	}

	u, err := url.Parse("ss://" + body)
	if err != nil {
		return Server{}, fmt.Errorf("%w: %v", ErrInvalidProxyURL, err)
	}
	if u.Query().Get("plugin") != "" {
		return Server{}, ErrPluginUnsupported
	}
	if u.User == nil {
		return Server{}, fmt.Errorf("%w: missing credentials", ErrInvalidProxyURL)
	}

	var method, password string
	if p, ok := u.User.Password(); ok {
		method, password = u.User.Username(), p
	} else {
		decoded, err := decodeBase64(u.User.Username())
		if err != nil {
			return Server{}, fmt.Errorf("%w: userinfo: %v", ErrInvalidProxyURL, err)
		}
		var found bool
		method, password, found = strings.Cut(decoded, ":")
		if !found {
			return Server{}, fmt.Errorf("%w: missing password", ErrInvalidProxyURL)
		}
	}
	return newShadowsocks(method, password, u.Host, name)
}

func newShadowsocks(method, password, hostport, name string) (Server, error) {
	addr, err := checkHostPort(hostport)
	if err != nil {
		return Server{}, err
	}
	ciph, err := core.PickCipher(method, nil, password)
	if err != nil {
		return Server{}, fmt.Errorf("%w: %q", ErrUnsupportedCipher, method)
	}
	return Server{
		Scheme:   SchemeShadowsocks,
		Addr:     addr,
		Method:   method,
		Password: password,
		Name:     name,
		cipher:   ciph,
	}, nil
}

func parseSOCKS5(raw string) (Server, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Server{}, fmt.Errorf("%w: %v", ErrInvalidProxyURL, err)
	}
	addr, err := checkHostPort(u.Host)
	if err != nil {
		return Server{}, err
	}
	s := Server{Scheme: SchemeSOCKS5, Addr: addr, Name: u.Fragment}
	if u.User != nil {
		s.Username = u.User.Username()
		s.Password, _ = u.User.Password()
	}
	return s, nil
}

func checkHostPort(hostport string) (string, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidProxyURL, err)
	}
	if host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidProxyURL)
	}
	if n, err := strconv.ParseUint(port, 10, 16); err != nil || n == 0 {
		return "", fmt.Errorf("%w: bad port %q", ErrInvalidProxyURL, port)
	}
	return net.JoinHostPort(host, port), nil
}

// decodeBase64 accepts both alphabets, with or without padding.
func decodeBase64(s string) (string, error) {
	s = strings.TrimRight(s, "=")
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.RawStdEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return string(b), nil
		}
	}
	return "", errors.New("not base64")
}
