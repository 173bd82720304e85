// Package message implements the thin messaging abstraction this
// protocol runs on: reliable, ordered, point-to-point send/receive
// between ranks, with a blocking send, a non-blocking send-then-wait,
// and a blocking receive of a known length. It is grounded on
// tenant/tnproto's use of
// net.Conn with encoding/binary framing (writer.go/reader.go) and on
// splitter.go's one-transport-per-peer structure, generalized from
// tnproto's fixed 64-byte attach header to arbitrary fixed-length
// frames since every message in this protocol (Partition,
// RowAssignment, RowFrame, Report, Decision) already carries an
// implicit, statically-known length.
package message

import (
	"io"
	"sync"

	"github.com/scottgreenup/redblue/internal/redblue/rberrors"
)

// Conn is a single ordered, reliable point-to-point connection to one
// peer rank. Implementations must preserve send order end to end.
type Conn interface {
	// Send blocks until b has been accepted by the transport.
	Send(b []byte) error
	// SendAsync starts sending b without blocking and returns a Handle
	// to wait on later. The caller must keep b alive until Wait
	// returns.
	SendAsync(b []byte) (Handle, error)
	// Recv blocks until exactly n bytes have been read.
	Recv(n int) ([]byte, error)
	// Close releases the underlying transport.
	Close() error
}

// Handle represents an in-flight asynchronous send.
type Handle interface {
	// Wait blocks until the send completes, returning its error.
	Wait() error
}

// streamConn adapts any io.ReadWriteCloser (a net.Conn, or the
// in-memory pipe net.Pipe returns for tests) to Conn. Sends are issued
// from a single per-connection goroutine so that SendAsync calls
// queued before an earlier one's Wait still land on the wire in
// submission order, preserving the ordered-delivery guarantee every
// caller of this package relies on.
type streamConn struct {
	rw io.ReadWriteCloser

	mu      sync.Mutex
	sendSeq chan func()
	once    sync.Once
}

// NewConn wraps rw (typically a net.Conn) as a Conn.
func NewConn(rw io.ReadWriteCloser) Conn {
	c := &streamConn{rw: rw, sendSeq: make(chan func(), 64)}
	go c.runSends()
	return c
}

func (c *streamConn) runSends() {
	for fn := range c.sendSeq {
		fn()
	}
}

func (c *streamConn) Send(b []byte) error {
	h, err := c.SendAsync(b)
	if err != nil {
		return err
	}
	return h.Wait()
}

type handle struct {
	done chan error
}

func (h *handle) Wait() error {
	return <-h.done
}

func (c *streamConn) SendAsync(b []byte) (Handle, error) {
	h := &handle{done: make(chan error, 1)}
	c.sendSeq <- func() {
		c.mu.Lock()
		_, err := c.rw.Write(b)
		c.mu.Unlock()
		if err != nil {
			err = rberrors.Transport(err, "sending %d byte message", len(b))
		}
		h.done <- err
	}
	return h, nil
}

func (c *streamConn) Recv(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.rw, buf); err != nil {
		return nil, rberrors.Transport(err, "receiving %d byte message", n)
	}
	return buf, nil
}

func (c *streamConn) Close() error {
	c.once.Do(func() { close(c.sendSeq) })
	return c.rw.Close()
}
