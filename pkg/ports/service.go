package ports

import "context"

// Service is an asynchronous request/response service with an explicit readiness check.
//
// Callers invoke Ready before each Call. Ready blocks until the service can accept one more
// request or ctx is done, but holds nothing for the caller: a Call that finds no free
// capacity fails with domain.ErrNotReady instead of queueing and the caller waits again.
type Service[Req, Resp any] interface {
	Ready(ctx context.Context) error
	Call(ctx context.Context, req Req) (Resp, error)
}
