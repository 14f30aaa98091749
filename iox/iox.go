// Package iox provides I/O helpers for closing connections and bodies.
package iox

import "io"

// MaxDrain is the most DrainClose reads from a body before closing it.
const MaxDrain = 64 << 10

// DrainClose reads what is left of an HTTP response body, up to MaxDrain,
// and closes it so the connection can be reused. Errors are discarded.
//
//	defer iox.DrainClose(resp.Body)
func DrainClose(body io.ReadCloser) {
	_, _ = io.CopyN(io.Discard, body, MaxDrain)
	_ = body.Close()
}

// DiscardClose closes c and discards the error.
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c, for t.Cleanup.
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}
