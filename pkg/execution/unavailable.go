package execution

import (
	"context"

	"github.com/aretw0/flowchain/pkg/domain"
)

// Unavailable is the Service used when commands run outside an execution context, e.g.
// when a single command is evaluated in isolation. It never accepts work.
type Unavailable struct{}

var _ Service = Unavailable{}

// Ready always reports domain.ErrNotAvailable.
func (Unavailable) Ready(context.Context) error { return domain.ErrNotAvailable }

// Call always fails with domain.ErrNotAvailable.
func (Unavailable) Call(context.Context, Request) (Response, error) {
	return Response{}, domain.ErrNotAvailable
}
