package proxy

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/shadowsocks/go-shadowsocks2/core"
	"github.com/shadowsocks/go-shadowsocks2/socks"
	xproxy "golang.org/x/net/proxy"

	"github.com/hamed0406/ssping/internal/target"
)

// Connector opens a byte stream to tgt through srv. Implementations make a
// single attempt and never retry.
type Connector interface {
	Connect(ctx context.Context, srv Server, tgt target.Target) (net.Conn, error)
}

// Dialer picks the protocol implementation from srv.Scheme.
type Dialer struct {
	Forward *net.Dialer // used to reach the proxy itself
}

func NewDialer() *Dialer {
	return &Dialer{Forward: &net.Dialer{KeepAlive: 30 * time.Second}}
}

func (d *Dialer) Connect(ctx context.Context, srv Server, tgt target.Target) (net.Conn, error) {
	switch srv.Scheme {
	case SchemeShadowsocks:
		return Shadowsocks{Forward: d.Forward}.Connect(ctx, srv, tgt)
	case SchemeSOCKS5:
		return SOCKS5{Forward: d.Forward}.Connect(ctx, srv, tgt)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProxy, srv.Scheme)
	}
}

// Shadowsocks speaks the AEAD stream protocol via go-shadowsocks2.
type Shadowsocks struct {
	Forward *net.Dialer
}

func (s Shadowsocks) Connect(ctx context.Context, srv Server, tgt target.Target) (net.Conn, error) {
	ciph := srv.cipher
	if ciph == nil {
		var err error
		if ciph, err = core.PickCipher(srv.Method, nil, srv.Password); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedCipher, srv.Method)
		}
	}
	addr := socks.ParseAddr(tgt.Address())
	if addr == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnencodableAddress, tgt.Address())
	}

	fwd := s.Forward
	if fwd == nil {
		fwd = &net.Dialer{}
	}
	rc, err := fwd.DialContext(ctx, "tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial shadowsocks server: %w", err)
	}
	conn := ciph.StreamConn(rc)
	if _, err := conn.Write(addr); err != nil {
		rc.Close()
		return nil, fmt.Errorf("send target address: %w", err)
	}
	return conn, nil
}

// SOCKS5 uses golang.org/x/net/proxy with optional user/pass auth.
type SOCKS5 struct {
	Forward *net.Dialer
}

func (s SOCKS5) Connect(ctx context.Context, srv Server, tgt target.Target) (net.Conn, error) {
	var auth *xproxy.Auth
	if srv.Username != "" || srv.Password != "" {
		auth = &xproxy.Auth{User: srv.Username, Password: srv.Password}
	}
	var fwd xproxy.Dialer = xproxy.Direct
	if s.Forward != nil {
		fwd = s.Forward
	}
	d, err := xproxy.SOCKS5("tcp", srv.Addr, auth, fwd)
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer: %w", err)
	}
	var conn net.Conn
	if cd, ok := d.(xproxy.ContextDialer); ok {
		conn, err = cd.DialContext(ctx, "tcp", tgt.Address())
	} else {
		conn, err = d.Dial("tcp", tgt.Address())
	}
	if err != nil {
		return nil, fmt.Errorf("socks5 connect: %w", err)
	}
	return conn, nil
}

var (
	_ Connector = (*Dialer)(nil)
	_ Connector = Shadowsocks{}
	_ Connector = SOCKS5{}
)
