package client

import (
	"context"
	"errors"
)

// Transport is the message-oriented connection the Client drives. A transport
// must support repeated Connect calls on the same instance so the client can
// reconnect after a drop.
type Transport interface {
	Connect(ctx context.Context) error
	Send(data []byte) error
	Receive() ([]byte, error)
	Close() error
}

// ErrClosedNormally is returned (possibly wrapped) by Transport.Receive when
// the peer performed a clean close. The client treats it as a terminal
// disconnect and does not reconnect.
var ErrClosedNormally = errors.New("connection closed normally")

// ErrClientClosed is returned by Connect after the client has been torn down.
var ErrClientClosed = errors.New("client closed")
