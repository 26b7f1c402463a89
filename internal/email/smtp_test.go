package email

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRelay answers just enough SMTP for a connect, EHLO and QUIT.
func fakeRelay(t *testing.T) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				r := bufio.NewReader(conn)
				conn.Write([]byte("220 relay.test ESMTP\r\n"))
				for {
					line, err := r.ReadString('\n')
					if err != nil {
						return
					}
					switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
					case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
						conn.Write([]byte("250 relay.test\r\n"))
					case strings.HasPrefix(cmd, "QUIT"):
						conn.Write([]byte("221 bye\r\n"))
						return
					default:
						conn.Write([]byte("250 OK\r\n"))
					}
				}
			}(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func TestSMTPSender_TestConnection(t *testing.T) {
	host, port := fakeRelay(t)
	sender := NewSMTPSender(&SMTPConfig{Host: host, Port: port}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, sender.TestConnection(ctx))
}

func TestSMTPSender_TestConnection_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, ln.Close())
	port, _ := strconv.Atoi(portStr)

	sender := NewSMTPSender(&SMTPConfig{Host: "127.0.0.1", Port: port}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = sender.TestConnection(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection failed")
}
