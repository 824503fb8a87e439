package mockverbs

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/usnistgov/verbsrx/dpdk/eal"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
)

// CreateCompChannel implements verbs.Context interface.
func (ctx *Context) CreateCompChannel() (verbs.CompChannel, error) {
	if e := ctx.enter(OpCreateCompChannel); e != nil {
		return nil, e
	}
	fd, e := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_SEMAPHORE)
	if e != nil {
		return nil, fmt.Errorf("eventfd: %w", e)
	}
	ch := &CompChannel{ctx: ctx, fd: fd}
	ctx.add(KindCompChannel)
	return ch, nil
}

// CompChannel is a completion event channel backed by eventfd.
type CompChannel struct {
	ctx     *Context
	fd      int
	mu      sync.Mutex
	pending []*CQ
	closed  bool
}

// Close implements io.Closer interface.
func (ch *CompChannel) Close() error {
	if e := ch.ctx.remove(KindCompChannel, &ch.closed); e != nil {
		return e
	}
	return unix.Close(ch.fd)
}

// Fd implements verbs.CompChannel interface.
func (ch *CompChannel) Fd() int {
	return ch.fd
}

// Pending returns number of undelivered events.
func (ch *CompChannel) Pending() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.pending)
}

func (ch *CompChannel) deliver(cq *CQ) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	var b [8]byte
	binary.NativeEndian.PutUint64(b[:], 1)
	if _, e := unix.Write(ch.fd, b[:]); e != nil {
		return e
	}
	ch.pending = append(ch.pending, cq)
	return nil
}

// GetEvent implements verbs.CompChannel interface.
func (ch *CompChannel) GetEvent() (verbs.CQ, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if len(ch.pending) == 0 {
		return nil, eal.EAGAIN
	}
	var b [8]byte
	if _, e := unix.Read(ch.fd, b[:]); e != nil {
		return nil, e
	}
	cq := ch.pending[0]
	ch.pending = ch.pending[1:]
	return cq, nil
}
