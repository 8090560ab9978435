package messaging

import "context"

// Gateway sends a single text message from one channel address to another.
// Callers own the disposition of a failed send: the reminder sweep leaves the
// cart pending for the next run, the conversation engine logs and moves on.
type Gateway interface {
	Send(ctx context.Context, from, to, body string) error
}
