package httpx

import "net/http"

type Middleware func(http.Handler) http.Handler

// Chain composes middlewares so the first listed wraps outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
