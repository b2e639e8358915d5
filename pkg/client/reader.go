package client

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tehcyx/bnetchat/pkg/protocol"
)

var (
	closedLine = protocol.CodeError + " ERROR Connection closed by server"
	lostLine   = protocol.CodeError + " ERROR Connection lost: %v"
)

// Start hands read ownership to a background reader that pushes every
// inbound line onto q until the connection ends. Lines may already be
// queued; they stay ahead of the reader's. Start fails unless the
// connection is authenticated, and may only be called once.
func (c *Conn) Start(q *Queue) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAuthenticated {
		return ErrNotConnected
	}
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true

	go c.readLoop(q)
	return nil
}

func (c *Conn) readLoop(q *Queue) {
	defer c.finish()
	defer q.finish()

	c.logger.Debug("Reader started")
	p := make([]byte, readBufferSize)
	for {
		if q.isClosed() {
			c.logger.Debug("Queue closed by consumer, stopping reader")
			return
		}

		n, err := c.poll(p, time.Time{})
		if n > 0 {
			for _, line := range c.buf.Feed(p[:n]) {
				if !utf8.ValidString(line) {
					line = strings.ToValidUTF8(line, "�")
				}
				if pushErr := q.Push(line); pushErr != nil {
					c.logger.Debug("Queue closed by consumer, stopping reader")
					return
				}
			}
		}
		if err == nil {
			continue
		}

		if c.State() == StateClosed {
			c.logger.Debug("Connection closed locally, stopping reader")
			return
		}
		c.setState(StateClosed)
		if errors.Is(err, io.EOF) {
			c.logger.Info("Server closed the connection")
			_ = q.Push(closedLine)
		} else {
			c.logger.Errorf("An error occured while reading, closing connection. Error: %v", err)
			_ = q.Push(fmt.Sprintf(lostLine, err))
		}
		c.nc.Close()
		return
	}
}
