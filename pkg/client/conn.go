// Package client implements the connection side of the chat gateway: the
// login handshake, the background reader feeding a line queue and the
// outbound command path.
package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/tehcyx/bnetchat/pkg/protocol"
)

// State is the lifecycle state of a Conn.
type State int

const (
	StateDisconnected State = iota
	StateHandshaking
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "disconnected"
	}
}

// Credentials identify the account to log in with. The password is only
// written to the socket, never logged.
type Credentials struct {
	Server   string
	Username string
	Password string
}

func (c Credentials) validate() error {
	if c.Username == "" || c.Password == "" {
		return ErrPrecondition
	}
	return nil
}

const (
	DefaultTimeout        = 10 * time.Second
	DefaultPollInterval   = 50 * time.Millisecond
	DefaultDialTimeout    = 5 * time.Second
	DefaultChannel        = "w3"
	DefaultFailureLiteral = "Login failed"

	readBufferSize = 1024
)

// Options tune the handshake and the reader. Zero values fall back to the
// defaults above.
type Options struct {
	// Timeout bounds each handshake wait.
	Timeout time.Duration
	// PollInterval is the read deadline of a single poll.
	PollInterval time.Duration
	DialTimeout  time.Duration
	// Channel is joined once logged in.
	Channel string
	// SuccessCode prefixes "NAME <username>" on a successful login.
	SuccessCode    string
	FailureLiteral string
	Table          protocol.CodeTable
	// SessionID identifies the connection in logs, random when zero.
	SessionID uuid.UUID
	// Logger defaults to the logrus standard logger.
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.Channel == "" {
		o.Channel = DefaultChannel
	}
	if o.SuccessCode == "" {
		o.SuccessCode = protocol.CodeName
	}
	if o.FailureLiteral == "" {
		o.FailureLiteral = DefaultFailureLiteral
	}
	if o.Table == nil {
		o.Table = protocol.DefaultCodeTable
	}
	if o.Logger == nil {
		o.Logger = log.StandardLogger()
	}
	return o
}

// Conn is an authenticated gateway connection. The handshake owns reads
// until it returns, then exactly one reader goroutine started by Start does.
// Send may be called concurrently with the reader.
type Conn struct {
	id     uuid.UUID
	nc     net.Conn
	opts   Options
	logger *log.Entry

	// buf carries the bytes after the last complete line from the
	// handshake into the reader.
	buf protocol.LineBuffer

	mu      sync.Mutex
	state   State
	started bool

	writeMu  sync.Mutex
	done     chan struct{}
	doneOnce sync.Once
}

func newConn(nc net.Conn, server string, opts Options) *Conn {
	id := opts.SessionID
	if id == uuid.Nil {
		id = uuid.Must(uuid.NewRandom())
	}
	return &Conn{
		id:   id,
		nc:   nc,
		opts: opts,
		logger: opts.Logger.WithFields(log.Fields{
			"session": id.String(),
			"server":  server,
		}),
		done: make(chan struct{}),
	}
}

// ID returns the session identifier of the connection.
func (c *Conn) ID() uuid.UUID {
	return c.id
}

// State returns the lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// Done is closed once the reader has terminated, or on Close when it was
// never started.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Send writes command followed by CRLF. The whole frame is written before
// Send returns.
func (c *Conn) Send(command string) error {
	if strings.ContainsAny(command, "\r\n") {
		return ErrInvalidCommand
	}
	if c.State() != StateAuthenticated {
		return ErrNotConnected
	}
	c.logger.Debugf("Sending command: %s", command)
	if err := c.write([]byte(command + "\r\n")); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

// Whisper sends a private message to user.
func (c *Conn) Whisper(user, text string) error {
	return c.Send(fmt.Sprintf("/w %s %s", user, text))
}

func (c *Conn) write(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.nc.Write(p)
	return err
}

// Close closes the socket. A running reader notices on its next poll and
// terminates.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	started := c.started
	c.mu.Unlock()

	err := c.nc.Close()
	if !started {
		c.finish()
	}
	c.logger.Info("Connection closed")
	return err
}

func (c *Conn) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

// poll reads whatever is available within one poll interval, never past
// deadline when it is set. No data ready is not an error.
func (c *Conn) poll(p []byte, deadline time.Time) (int, error) {
	next := time.Now().Add(c.opts.PollInterval)
	if !deadline.IsZero() && deadline.Before(next) {
		next = deadline
	}
	if err := c.nc.SetReadDeadline(next); err != nil {
		return 0, err
	}

	n, err := c.nc.Read(p)
	if err != nil && isTimeout(err) {
		return n, nil
	}
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
