package middleware

import "github.com/aretw0/flowchain/pkg/ports"

// Middleware allows wrapping a Journal to add behavior.
type Middleware func(ports.Journal) ports.Journal

// Chain applies mws to next so that the first one sees records first.
func Chain(next ports.Journal, mws ...Middleware) ports.Journal {
	for i := len(mws) - 1; i >= 0; i-- {
		next = mws[i](next)
	}
	return next
}
