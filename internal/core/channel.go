package core

import "errors"

// Frame is one encoded JSON message.
type Frame []byte

// Close codes understood by the transport.
const (
	CloseNormal        = 1000
	CloseGoingAway     = 1001
	CloseInternalError = 1011
)

var (
	ErrChannelClosed = errors.New("channel closed")
	ErrBackpressure  = errors.New("backpressure")
)

// Channel abstracts one client's duplex signaling transport.
// Owned by the adapter; the registry closes it on eviction.
//
//go:generate mockgen -source=channel.go -destination=mocks/mock_channel.go -package=mocks
type Channel interface {
	// TrySend queues f without blocking. Any error means the peer is gone.
	TrySend(f Frame) error
	Close(code int, reason string) error
	IsOpen() bool
}
