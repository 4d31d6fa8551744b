// CLAUDE:SUMMARY Transport-agnostic endpoint signature and middleware chaining shared by the HTTP and MCP surfaces.
// Package kit holds the pieces shared by every bulkvis transport: the
// Endpoint signature, middleware chaining, request-scoped context values
// and the MCP tool adapter.
package kit

import "context"

// Endpoint is one action, independent of the transport that carries it.
type Endpoint func(ctx context.Context, request any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares; the first one is the outermost.
func Chain(outer Middleware, others ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(others) - 1; i >= 0; i-- {
			next = others[i](next)
		}
		return outer(next)
	}
}
