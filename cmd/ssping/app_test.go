package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shadowsocks/go-shadowsocks2/core"
	"github.com/shadowsocks/go-shadowsocks2/socks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/ssping/internal/pinger"
)

const password = "correct horse"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"STATUS_ADDR", "LOG_DIR", "DATABASE_URL", "SLACK_WEBHOOK_URL", "LOG_LEVEL", "RESULT_BUFFER"} {
		t.Setenv(k, "")
	}
}

// ssServer is a minimal Shadowsocks endpoint that answers every request
// with status itself instead of forwarding it.
func ssServer(t *testing.T, status int) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	ciph, err := core.PickCipher("AEAD_CHACHA20_POLY1305", nil, password)
	require.NoError(t, err)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				sc := ciph.StreamConn(c)
				if _, err := socks.ReadAddr(sc); err != nil {
					return
				}
				if _, err := http.ReadRequest(bufio.NewReader(sc)); err != nil {
					return
				}
				fmt.Fprintf(sc, "HTTP/1.1 %d %s\r\nContent-Length: 0\r\n\r\n", status, http.StatusText(status))
			}(c)
		}
	}()
	return "ss://chacha20-ietf-poly1305:correct%20horse@" + ln.Addr().String()
}

func closedPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var stdout, stderr bytes.Buffer
	code := run(ctx, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_SuccessfulProbes(t *testing.T) {
	clearEnv(t)
	proxyURL := ssServer(t, http.StatusNoContent)

	code, out, errOut := runCLI(t, "-c", "2", "-i", "0", "-u", "http://example.test/generate_204", proxyURL)

	assert.Equal(t, pinger.ExitSuccess, code)
	assert.Empty(t, out)
	lines := strings.Split(strings.TrimSpace(errOut), "\n")
	require.Len(t, lines, 5, errOut)
	assert.Equal(t, "PING example.test via 127.0.0.1.", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Status 204 from example.test via 127.0.0.1: time="), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "Status 204 from example.test via 127.0.0.1: time="), lines[2])
	assert.Equal(t, "--- ping statistics ---", lines[3])
	assert.True(t, strings.HasPrefix(lines[4], "2 attempted, 2 succeeded, 0 errors, time "), lines[4])
}

func TestRun_NonSuccessStatusExitsOne(t *testing.T) {
	clearEnv(t)
	code, _, errOut := runCLI(t, "-c", "1", ssServer(t, http.StatusServiceUnavailable))

	assert.Equal(t, pinger.ExitNoReply, code)
	assert.Contains(t, errOut, "Status 503 from www.google.com via 127.0.0.1")
	assert.Contains(t, errOut, "1 attempted, 0 succeeded, 1 errors")
}

func TestRun_UnreachableProxy(t *testing.T) {
	clearEnv(t)
	code, out, errOut := runCLI(t, "-c", "3", "-i", "0", "ss://aes-256-gcm:pw@"+closedPort(t))

	assert.Equal(t, pinger.ExitNoReply, code)
	assert.Empty(t, out)
	assert.Equal(t, 3, strings.Count(errOut, "From www.google.com via 127.0.0.1: Failed to connect to proxy"))
	assert.Contains(t, errOut, "3 attempted, 0 succeeded, 3 errors")
}

func TestRun_ZeroCount(t *testing.T) {
	clearEnv(t)
	code, out, errOut := runCLI(t, "-c", "0", "ss://aes-256-gcm:pw@"+closedPort(t))

	assert.Equal(t, pinger.ExitNoReply, code)
	assert.Empty(t, out)
	assert.Equal(t, "PING www.google.com via 127.0.0.1.\n", errOut)
}

func TestRun_ConfigurationErrors(t *testing.T) {
	clearEnv(t)
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"no proxy", nil, "Error: accepts 1 arg(s)"},
		{"no scheme", []string{"1.2.3.4"}, "Error: invalid proxy URL: missing scheme\n"},
		{"bad proxy", []string{"http://1.2.3.4:1"}, "Error: unsupported proxy scheme: \"http\"\n"},
		{"https target", []string{"-u", "https://example.com/", "ss://aes-256-gcm:pw@1.2.3.4:1"}, "Error: unsupported scheme, only HTTP is supported: \"https\"\n"},
		{"negative interval", []string{"-i", "-1", "ss://aes-256-gcm:pw@1.2.3.4:1"}, "Error: "},
		{"bad interval", []string{"-i", "abc", "ss://aes-256-gcm:pw@1.2.3.4:1"}, "Error: "},
		{"negative count", []string{"-c", "-1", "ss://aes-256-gcm:pw@1.2.3.4:1"}, "Error: "},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			code, out, errOut := runCLI(t, c.args...)
			assert.Equal(t, pinger.ExitFailure, code)
			assert.Empty(t, out)
			assert.True(t, strings.HasPrefix(errOut, c.want), errOut)
		})
	}
}

func TestRun_StatusServerFailureIsFatal(t *testing.T) {
	clearEnv(t)
	code, _, errOut := runCLI(t, "--listen", "127.0.0.1:-1", "-i", "0.05", "ss://aes-256-gcm:pw@"+closedPort(t))

	assert.Equal(t, pinger.ExitFailure, code)
	assert.Contains(t, errOut, "\nError: status server:")
}

func TestRun_InterruptStopsLoop(t *testing.T) {
	clearEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"-i", "0.1", ssServer(t, http.StatusOK)}, &stdout, &stderr)

	assert.Equal(t, pinger.ExitSuccess, code)
	assert.Contains(t, stderr.String(), "--- ping statistics ---")
	assert.NotContains(t, stderr.String(), "Error:")
	assert.Empty(t, stdout.String())
}

func TestRun_SendsSlackSummary(t *testing.T) {
	clearEnv(t)
	texts := make(chan string, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		texts <- payload["text"]
	}))
	defer hook.Close()
	t.Setenv("SLACK_WEBHOOK_URL", hook.URL)

	code, _, _ := runCLI(t, "-c", "1", ssServer(t, http.StatusNoContent))

	assert.Equal(t, pinger.ExitSuccess, code)
	select {
	case text := <-texts:
		assert.True(t, strings.HasPrefix(text, "*ssping www.google.com via 127.0.0.1*\nrun "), text)
		assert.Contains(t, text, "1 attempted, 1 succeeded, 0 errors")
	default:
		t.Fatal("no summary posted")
	}
}
