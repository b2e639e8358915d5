package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tehcyx/bnetchat/pkg/protocol"
)

const (
	usernamePrompt = "Username:"
	passwordPrompt = "Password:"
)

// Login is what the handshake saw besides its own markers.
type Login struct {
	// ExtraMessages are the complete lines received while logging in that
	// were not handshake markers, in arrival order.
	ExtraMessages []string
	// Channel is the raw line confirming the channel join.
	Channel string

	channelAt int
}

// Replay returns ExtraMessages with the channel confirmation put back at
// its arrival position.
func (l *Login) Replay() []string {
	lines := make([]string, 0, len(l.ExtraMessages)+1)
	lines = append(lines, l.ExtraMessages[:l.channelAt]...)
	lines = append(lines, l.Channel)
	return append(lines, l.ExtraMessages[l.channelAt:]...)
}

// Dial connects to creds.Server and logs in. Incomplete credentials are
// rejected before dialing. ctx covers both the connect and the login waits.
// The socket is closed when the handshake fails.
func Dial(ctx context.Context, creds Credentials, opts Options) (*Conn, *Login, error) {
	if err := creds.validate(); err != nil {
		return nil, nil, err
	}
	opts = opts.withDefaults()

	d := net.Dialer{Timeout: opts.DialTimeout}
	nc, err := d.DialContext(ctx, "tcp", creds.Server)
	if err != nil {
		return nil, nil, stageError(StageConnect, err)
	}

	conn, login, err := HandshakeContext(ctx, nc, creds, opts)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	return conn, login, nil
}

// Handshake runs the login sequence on an already connected socket:
// selector byte, username, password, login confirmation, channel join. It
// blocks until the channel join is confirmed, a wait times out or the
// gateway fails the login. Read and write deadlines are cleared again on
// every return path. The socket is left open on failure.
func Handshake(nc net.Conn, creds Credentials, opts Options) (*Conn, *Login, error) {
	return HandshakeContext(context.Background(), nc, creds, opts)
}

// HandshakeContext is Handshake that also gives up, within one poll
// interval, once ctx is done.
func HandshakeContext(ctx context.Context, nc net.Conn, creds Credentials, opts Options) (*Conn, *Login, error) {
	if err := creds.validate(); err != nil {
		return nil, nil, err
	}
	opts = opts.withDefaults()

	c := newConn(nc, creds.Server, opts)
	c.setState(StateHandshaking)
	defer nc.SetDeadline(time.Time{})

	h := &handshake{ctx: ctx, conn: c, readBuf: make([]byte, readBufferSize)}
	login, err := h.run(creds)
	if err != nil {
		c.setState(StateDisconnected)
		c.logger.Errorf("Login failed: %v", err)
		return nil, nil, err
	}

	c.setState(StateAuthenticated)
	c.logger.Infof("Logged in as %s, joined %s", creds.Username, opts.Channel)
	return c, login, nil
}

type handshake struct {
	ctx     context.Context
	conn    *Conn
	readBuf []byte
	// pending holds complete lines not examined by any wait yet.
	pending []string
	extra   []string
}

func (h *handshake) run(creds Credentials) (*Login, error) {
	c := h.conn
	opts := c.opts

	if err := h.send(StageUsername, []byte{protocol.Selector}); err != nil {
		return nil, err
	}

	c.logger.Debug("Waiting for username prompt")
	if _, err := h.waitPrompt(StageUsername, usernamePrompt); err != nil {
		return nil, err
	}
	if err := h.send(StageUsername, []byte(creds.Username+"\r\n")); err != nil {
		return nil, err
	}

	c.logger.Debug("Waiting for password prompt")
	if _, err := h.waitPrompt(StagePassword, passwordPrompt); err != nil {
		return nil, err
	}
	// never log the password itself
	if err := h.send(StagePassword, []byte(creds.Password+"\r\n")); err != nil {
		return nil, err
	}

	c.logger.Debug("Waiting for login confirmation")
	marker := fmt.Sprintf("%s NAME %s", opts.SuccessCode, creds.Username)
	failed := func(s string) bool { return strings.Contains(s, opts.FailureLiteral) }
	line, err := h.wait(StageLogin,
		func(line string) bool { return containsMarker(line, marker) || failed(line) },
		failed,
	)
	if err != nil {
		return nil, err
	}
	if failed(line) {
		return nil, stageError(StageLogin, ErrAuth)
	}

	if err := h.send(StageChannel, []byte("/join "+opts.Channel+"\r\n")); err != nil {
		return nil, err
	}

	c.logger.Debug("Waiting for channel confirmation")
	joined, err := h.wait(StageChannel,
		func(line string) bool { return opts.Table.Lookup(protocol.CodeOf(line)) == protocol.KindChannel },
		nil,
	)
	if err != nil {
		return nil, err
	}

	// lines that came in the same burst as the confirmation
	channelAt := len(h.extra)
	h.extra = append(h.extra, h.pending...)
	h.pending = nil

	return &Login{ExtraMessages: h.extra, Channel: joined, channelAt: channelAt}, nil
}

func (h *handshake) send(stage Stage, p []byte) error {
	c := h.conn
	if err := c.nc.SetWriteDeadline(time.Now().Add(c.opts.Timeout)); err != nil {
		return stageError(stage, err)
	}
	if err := c.write(p); err != nil {
		return stageError(stage, err)
	}
	return nil
}

// waitPrompt waits for a prompt, which the gateway usually leaves
// unterminated.
func (h *handshake) waitPrompt(stage Stage, prompt string) (string, error) {
	contains := func(s string) bool { return strings.Contains(s, prompt) }
	return h.wait(stage, contains, contains)
}

// wait polls the socket until a complete line satisfies match, or the
// unterminated tail satisfies matchTail when given. Lines examined before
// the match are kept as extra messages; lines after it stay pending for the
// next wait. A tail match consumes the tail.
func (h *handshake) wait(stage Stage, match, matchTail func(string) bool) (string, error) {
	c := h.conn
	deadline := time.Now().Add(c.opts.Timeout)

	for {
		for len(h.pending) > 0 {
			line := h.pending[0]
			h.pending = h.pending[1:]
			if match(line) {
				return line, nil
			}
			h.extra = append(h.extra, line)
		}

		if matchTail != nil {
			if tail := c.buf.Pending(); tail != "" && matchTail(tail) {
				if !utf8.ValidString(tail) {
					return "", stageError(stage, ErrInvalidEncoding)
				}
				c.buf.Reset()
				return tail, nil
			}
		}

		if err := h.ctx.Err(); err != nil {
			return "", stageError(stage, err)
		}
		if !time.Now().Before(deadline) {
			return "", stageError(stage, ErrTimeout)
		}

		n, err := c.poll(h.readBuf, deadline)
		if n > 0 {
			for _, line := range c.buf.Feed(h.readBuf[:n]) {
				if !utf8.ValidString(line) {
					return "", stageError(stage, ErrInvalidEncoding)
				}
				h.pending = append(h.pending, line)
			}
			if !validPartial(c.buf.Pending()) {
				return "", stageError(stage, ErrInvalidEncoding)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", stageError(stage, ErrConnectionClosed)
			}
			return "", stageError(stage, err)
		}
	}
}

// validPartial reports whether s is valid UTF-8 apart from an incomplete
// rune at its very end, which the next read may complete.
func validPartial(s string) bool {
	if utf8.ValidString(s) {
		return true
	}
	for i := len(s) - 1; i >= 0 && i > len(s)-utf8.UTFMax; i-- {
		if utf8.RuneStart(s[i]) {
			return !utf8.FullRuneInString(s[i:]) && utf8.ValidString(s[:i])
		}
	}
	return false
}

// containsMarker matches marker as whole words so "NAME Al" does not match
// "NAME Alice".
func containsMarker(line, marker string) bool {
	return strings.Contains(line+" ", marker+" ")
}
