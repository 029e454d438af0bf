package main

import (
	"context"
	"net/http"
	"time"
)

// httpServerAdapter is a thin net/http.Server wrapper so runServe's
// goroutine/shutdown bookkeeping stays in one place. srv is built in the
// constructor (not lazily inside ListenAndServe) so Shutdown is always safe
// to call even if it races the ListenAndServe goroutine's startup.
type httpServerAdapter struct {
	srv *http.Server
}

func newHTTPServerAdapter(addr string, handler http.Handler) *httpServerAdapter {
	return &httpServerAdapter{srv: &http.Server{Addr: addr, Handler: handler}}
}

func (h *httpServerAdapter) ListenAndServe() error {
	err := h.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (h *httpServerAdapter) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.srv.Shutdown(ctx)
}
