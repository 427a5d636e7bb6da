// Package transport delivers a single rendered message to one recipient.
// The dispatcher treats any failure reason identically: it is recorded
// against the recipient and the batch continues.
package transport

import "context"

// Message is one outbound personalized email.
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
}

// Transport accepts one outbound message and reports success or failure.
// Implementations must be safe for concurrent use: the dispatcher fans
// out across a worker pool.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}
