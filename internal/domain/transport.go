package domain

// Transport is the capability a concrete client connection must provide.
// The realtime registry borrows the transport; it never duplicates it.
// A gorilla/websocket connection satisfies this via a thin adapter.
type Transport interface {
	// Send writes one message to the client. Implementations should apply
	// a write deadline; a deadline miss surfaces as a send error.
	Send(data []byte) error

	// Receive blocks until the next inbound message or transport close.
	Receive() ([]byte, error)

	// Close tears the transport down. Safe to call more than once.
	Close() error
}
