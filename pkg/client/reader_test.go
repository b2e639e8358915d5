package client

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tehcyx/bnetchat/pkg/protocol"
)

// authenticatedPipe returns a Conn past the handshake and the server end.
func authenticatedPipe(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	t.Cleanup(func() {
		clientSide.Close()
		serverSide.Close()
	})

	c := newConn(clientSide, "pipe", testOptions().withDefaults())
	c.setState(StateAuthenticated)
	return c, serverSide
}

// drain pops lines until the producer finished.
func drain(t *testing.T, q *Queue) []string {
	t.Helper()
	var lines []string
	deadline := time.After(2 * time.Second)
	for !q.Finished() {
		if line, ok := q.TryPop(); ok {
			lines = append(lines, line)
			continue
		}
		select {
		case <-q.Ready():
		case <-deadline:
			t.Fatalf("queue not finished, got %q so far", lines)
		}
	}
	return lines
}

func TestReaderReassemblesSplitLines(t *testing.T) {
	c, server := authenticatedPipe(t)
	q := NewQueue()
	require.NoError(t, c.Start(q))

	for _, chunk := range []string{"1002 X Al", "ice\r\n", "1005 TALK Bob a\r\n1005 TALK Bob b\r\n"} {
		_, err := server.Write([]byte(chunk))
		require.NoError(t, err)
	}
	require.NoError(t, server.Close())

	lines := drain(t, q)
	assert.Equal(t, []string{"1002 X Alice", "1005 TALK Bob a", "1005 TALK Bob b", closedLine}, lines)

	joins := 0
	for _, line := range lines {
		if _, ok := protocol.Decode(line, protocol.DefaultCodeTable).(protocol.Joined); ok {
			joins++
		}
	}
	assert.Equal(t, 1, joins)
	assert.Equal(t, StateClosed, c.State())

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("reader did not terminate")
	}
}

func TestReaderRemoteCloseBecomesErrorEvent(t *testing.T) {
	c, server := authenticatedPipe(t)
	q := NewQueue()
	require.NoError(t, c.Start(q))
	require.NoError(t, server.Close())

	lines := drain(t, q)
	require.Len(t, lines, 1)
	ev, ok := protocol.Decode(lines[0], protocol.DefaultCodeTable).(protocol.Error)
	require.True(t, ok)
	assert.Equal(t, "Connection closed by server", ev.Text)
}

func TestReaderReplacesInvalidBytes(t *testing.T) {
	c, server := authenticatedPipe(t)
	q := NewQueue()
	require.NoError(t, c.Start(q))

	_, err := server.Write([]byte("1005 TALK Bob \xffok\r\n"))
	require.NoError(t, err)
	server.Close()

	lines := drain(t, q)
	require.Len(t, lines, 2)
	assert.Equal(t, "1005 TALK Bob �ok", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], protocol.CodeError))
}

func TestReaderStopsWhenQueueClosed(t *testing.T) {
	c, _ := authenticatedPipe(t)
	q := NewQueue()
	require.NoError(t, c.Start(q))

	q.Close()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("reader kept running after the queue was closed")
	}
}

func TestReaderLocalCloseIsSilent(t *testing.T) {
	c, _ := authenticatedPipe(t)
	q := NewQueue()
	require.NoError(t, c.Start(q))

	require.NoError(t, c.Close())
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("reader did not terminate")
	}
	assert.Equal(t, 0, q.Len())
	assert.True(t, q.Finished())
}

func TestStartPreconditions(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	c := newConn(clientSide, "pipe", testOptions().withDefaults())
	assert.ErrorIs(t, c.Start(NewQueue()), ErrNotConnected)

	c.setState(StateAuthenticated)
	require.NoError(t, c.Start(NewQueue()))
	assert.ErrorIs(t, c.Start(NewQueue()), ErrAlreadyStarted)
}
