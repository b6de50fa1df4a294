// Package middleware wraps snapshot publishers to transform what leaves the process.
package middleware

import "github.com/aretw0/rapport/pkg/ports"

// Middleware allows wrapping a StatePublisher to add behavior.
type Middleware func(ports.StatePublisher) ports.StatePublisher

// Chain applies mws so that the first one sees the snapshot first.
func Chain(pub ports.StatePublisher, mws ...Middleware) ports.StatePublisher {
	for i := len(mws) - 1; i >= 0; i-- {
		pub = mws[i](pub)
	}
	return pub
}
