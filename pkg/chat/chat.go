// Package chat ties a gateway connection to its session state: lines read
// in the background are decoded and applied in arrival order whenever the
// caller polls.
package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/tehcyx/bnetchat/pkg/client"
	"github.com/tehcyx/bnetchat/pkg/protocol"
	"github.com/tehcyx/bnetchat/pkg/session"
)

// Mirror receives every notification and, after state changes, a fresh
// snapshot. pkg/redis implements it.
type Mirror interface {
	PublishNotification(ctx context.Context, n session.Notification) error
	StoreSnapshot(ctx context.Context, snap session.Snapshot) error
}

// Options configure a Client.
type Options struct {
	client.Options

	// Mirror is optional.
	Mirror Mirror
	// Clock stamps notifications, time.Now when nil.
	Clock func() time.Time
}

// Client is a logged in chat session. Poll, Snapshot and the other state
// accessors belong to a single consumer goroutine; Send may be called from
// anywhere.
type Client struct {
	conn   *client.Conn
	login  *client.Login
	queue  *client.Queue
	state  *session.State
	table  protocol.CodeTable
	mirror Mirror
	logger *log.Entry
}

// Open dials creds.Server, logs in and starts reading.
func Open(ctx context.Context, creds client.Credentials, opts Options) (*Client, error) {
	conn, login, err := client.Dial(ctx, creds, opts.Options)
	if err != nil {
		return nil, err
	}
	c, err := New(conn, login, opts)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// New takes over an authenticated connection. Lines seen during login are
// queued ahead of anything the reader receives.
func New(conn *client.Conn, login *client.Login, opts Options) (*Client, error) {
	var stateOpts []session.Option
	if opts.Clock != nil {
		stateOpts = append(stateOpts, session.WithClock(opts.Clock))
	}
	table := opts.Table
	if table == nil {
		table = protocol.DefaultCodeTable
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	c := &Client{
		conn:   conn,
		login:  login,
		queue:  client.NewQueue(),
		state:  session.New(stateOpts...),
		table:  table,
		mirror: opts.Mirror,
		logger: logger.WithField("session", conn.ID().String()),
	}

	for _, line := range login.Replay() {
		if err := c.queue.Push(line); err != nil {
			return nil, err
		}
	}
	if err := conn.Start(c.queue); err != nil {
		return nil, err
	}
	return c, nil
}

// Poll applies every queued line and returns the resulting notifications
// in order. It never blocks on the network; ctx only bounds mirror calls.
func (c *Client) Poll(ctx context.Context) []session.Notification {
	var (
		out     []session.Notification
		changed bool
	)
	for {
		line, ok := c.queue.TryPop()
		if !ok {
			break
		}
		ev := protocol.Decode(line, c.table)
		if errEv, ok := ev.(protocol.Error); ok {
			c.logger.Debugf("Error line: %s", errEv.Text)
		}
		changed = changed || changesState(ev)

		notes := c.state.Apply(ev)
		for _, n := range notes {
			c.publish(ctx, n)
		}
		out = append(out, notes...)
	}

	if changed && c.mirror != nil {
		if err := c.mirror.StoreSnapshot(ctx, c.state.Snapshot()); err != nil {
			c.logger.Warnf("Failed to mirror snapshot: %v", err)
		}
	}
	return out
}

func (c *Client) publish(ctx context.Context, n session.Notification) {
	if c.mirror == nil {
		return
	}
	if err := c.mirror.PublishNotification(ctx, n); err != nil {
		c.logger.Warnf("Failed to mirror notification: %v", err)
	}
}

func changesState(ev protocol.Event) bool {
	switch ev.(type) {
	case protocol.UserListed, protocol.Joined, protocol.Left,
		protocol.ChannelReset, protocol.ChannelTopicUpdate:
		return true
	}
	return false
}

// Ready signals that lines may be waiting for Poll.
func (c *Client) Ready() <-chan struct{} {
	return c.queue.Ready()
}

// Finished reports whether the connection ended and every line was polled.
func (c *Client) Finished() bool {
	return c.queue.Finished()
}

// Backlog returns the number of lines waiting for Poll.
func (c *Client) Backlog() int {
	return c.queue.Len()
}

// Send writes one command to the gateway.
func (c *Client) Send(command string) error {
	return c.conn.Send(command)
}

// Whisper sends a private message to user.
func (c *Client) Whisper(user, text string) error {
	return c.conn.Whisper(user, text)
}

// Snapshot copies the session state.
func (c *Client) Snapshot() session.Snapshot {
	return c.state.Snapshot()
}

// ID returns the session identifier.
func (c *Client) ID() uuid.UUID {
	return c.conn.ID()
}

// Login returns what was seen during the handshake.
func (c *Client) Login() *client.Login {
	return c.login
}

// Close hangs up. Lines already queued can still be polled.
func (c *Client) Close() error {
	return c.conn.Close()
}
