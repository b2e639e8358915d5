package client

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

// gateway is the server end of a scripted test connection.
type gateway struct {
	conn net.Conn
	r    *bufio.Reader
}

func (g *gateway) expectByte(want byte) error {
	b, err := g.r.ReadByte()
	if err != nil {
		return fmt.Errorf("reading selector: %w", err)
	}
	if b != want {
		return fmt.Errorf("expected byte %d, got %d", want, b)
	}
	return nil
}

func (g *gateway) expectLine(want string) error {
	line, err := g.r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading %q: %w", want, err)
	}
	if got := strings.TrimSuffix(line, "\r\n"); got != want {
		return fmt.Errorf("expected line %q, got %q", want, line)
	}
	return nil
}

func (g *gateway) write(s string) error {
	_, err := io.WriteString(g.conn, s)
	return err
}

// startGateway runs script against the server end of a pipe and returns the
// client end plus a channel yielding the script's result.
func startGateway(t *testing.T, script func(g *gateway) error) (net.Conn, <-chan error) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	serverSide.SetDeadline(time.Now().Add(5 * time.Second))
	t.Cleanup(func() {
		clientSide.Close()
		serverSide.Close()
	})

	errc := make(chan error, 1)
	go func() {
		errc <- script(&gateway{conn: serverSide, r: bufio.NewReader(serverSide)})
	}()
	return clientSide, errc
}

// loginScript plays a well behaved gateway up to the channel confirmation.
func loginScript(user, password string) func(g *gateway) error {
	return func(g *gateway) error {
		if err := g.expectByte(0x03); err != nil {
			return err
		}
		if err := g.write("Username: "); err != nil {
			return err
		}
		if err := g.expectLine(user); err != nil {
			return err
		}
		if err := g.write("Password: "); err != nil {
			return err
		}
		if err := g.expectLine(password); err != nil {
			return err
		}
		if err := g.write("2010 NAME " + user + "\r\n"); err != nil {
			return err
		}
		if err := g.expectLine("/join w3"); err != nil {
			return err
		}
		return g.write("1007 CHANNEL \"w3\"\r\n")
	}
}

// deadlineConn records the last read deadline set on the wrapped conn.
type deadlineConn struct {
	net.Conn

	mu   sync.Mutex
	last time.Time
	set  int
}

func (d *deadlineConn) SetDeadline(t time.Time) error {
	d.record(t)
	return d.Conn.SetDeadline(t)
}

func (d *deadlineConn) SetReadDeadline(t time.Time) error {
	d.record(t)
	return d.Conn.SetReadDeadline(t)
}

func (d *deadlineConn) record(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = t
	d.set++
}

func (d *deadlineConn) lastReadDeadline() (time.Time, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.set
}

func testOptions() Options {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return Options{
		Timeout:      2 * time.Second,
		PollInterval: 10 * time.Millisecond,
		Logger:       logger,
	}
}

func testCredentials() Credentials {
	return Credentials{Server: "pipe", Username: "alice", Password: "secret"}
}
