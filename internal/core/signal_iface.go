package core

// Frame is an encoded signaling frame.
type Frame []byte

// SignalConnection abstracts the messaging transport of one client.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
