package probe

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	maxDrain     = 64 << 10
	drainTimeout = 5 * time.Second
)

// clientConn carries exactly one HTTP/1.1 exchange over a proxied stream.
type clientConn struct {
	conn net.Conn
	br   *bufio.Reader
	stop func() bool
}

// handshake binds the stream to ctx so a cancellation unblocks any pending
// read or write, and clears deadlines left behind by the proxy dialer.
func handshake(ctx context.Context, conn net.Conn) (*clientConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		return nil, fmt.Errorf("clear deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	return &clientConn{conn: conn, br: bufio.NewReader(conn), stop: stop}, nil
}

// roundTrip writes the request head and reads the status line and headers.
// The head is serialized here rather than with Request.Write, which always
// emits a Host line.
func (c *clientConn) roundTrip(req *http.Request) (*http.Response, error) {
	bw := bufio.NewWriter(c.conn)
	if _, err := fmt.Fprintf(bw, "%s %s HTTP/1.1\r\n", req.Method, req.URL.RequestURI()); err != nil {
		return nil, err
	}
	if req.Host != "" {
		if _, err := fmt.Fprintf(bw, "Host: %s\r\n", req.Host); err != nil {
			return nil, err
		}
	}
	if err := req.Header.Write(bw); err != nil {
		return nil, err
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	return http.ReadResponse(c.br, req)
}

// release drains a bounded amount of the body and closes the stream. It runs
// detached from the probe and ignores errors.
func (c *clientConn) release(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = c.conn.SetReadDeadline(time.Now().Add(drainTimeout))
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
		_ = resp.Body.Close()
	}
	c.close()
}

func (c *clientConn) close() {
	c.stop()
	_ = c.conn.Close()
}
