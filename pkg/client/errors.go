package client

import (
	"errors"
	"fmt"
)

var (
	// ErrPrecondition is returned when credentials are incomplete. No I/O
	// has happened when it is returned.
	ErrPrecondition = errors.New("username and password are required")
	// ErrConnectionClosed means the gateway closed the connection.
	ErrConnectionClosed = errors.New("connection closed by server")
	// ErrTimeout means an awaited handshake marker did not arrive in time.
	ErrTimeout = errors.New("timed out")
	// ErrInvalidEncoding means the gateway sent bytes that are not UTF-8
	// text while logging in.
	ErrInvalidEncoding = errors.New("received non-text bytes")
	// ErrAuth means the gateway rejected the credentials.
	ErrAuth = errors.New("login rejected")

	ErrNotConnected   = errors.New("not connected to server")
	ErrAlreadyStarted = errors.New("reader already started")
	ErrInvalidCommand = errors.New("command must not contain line breaks")
	ErrQueueClosed    = errors.New("queue closed")
)

// Stage names a step of the login handshake.
type Stage string

const (
	StageConnect  Stage = "connect"
	StageUsername Stage = "username"
	StagePassword Stage = "password"
	StageLogin    Stage = "login"
	StageChannel  Stage = "channel"
)

// HandshakeError reports which handshake stage failed and why. Err is one of
// the sentinel errors above or the underlying I/O error.
type HandshakeError struct {
	Stage Stage
	Err   error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake failed at %s: %v", e.Stage, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	return &HandshakeError{Stage: stage, Err: err}
}
