package queue

import "context"

// Queue is a durable FIFO of pending work. Pop blocks until a message
// arrives, the poll window elapses (ok=false) or ctx is cancelled, so a
// consumer loop can be shut down without killing the process.
type Queue interface {
	Push(ctx context.Context, queue string, data interface{}) (err error)
	Pop(ctx context.Context, queue string, data interface{}) (ok bool, err error)
	Len(ctx context.Context, queue string) (n int64, err error)
}
