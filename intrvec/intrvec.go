// Package intrvec maintains the receive interrupt vector table of a port.
package intrvec

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/usnistgov/verbsrx/core/logging"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
)

var logger = logging.New("intrvec")

// Table layout constants.
const (
	// VecRxTxOffset is the first vector number assigned to a queue.
	VecRxTxOffset = 1

	// DefaultCapacity is the default maximum number of event file descriptors.
	DefaultCapacity = 32
)

// EventSource is a queue that may deliver completion events.
type EventSource interface {
	// EventFd returns the file descriptor that becomes readable on completion.
	// ok is false if the queue cannot request interrupts.
	EventFd() (fd int, ok bool)
}

// Table is an interrupt vector table.
// It is not thread-safe.
type Table struct {
	// Vec contains vector number per queue.
	// A queue without event channel is assigned VecRxTxOffset+Capacity, which is invalid.
	Vec []int `json:"vec"`
	// Efds contains event file descriptors, indexed by vector number minus VecRxTxOffset.
	Efds []int `json:"efds"`
	// NbEfd is the number of valid entries in Efds.
	NbEfd int `json:"nbEfd"`
	// Capacity is the maximum number of event file descriptors.
	Capacity int `json:"capacity"`
}

// Enabled determines whether the table has at least one valid entry.
func (t Table) Enabled() bool {
	return t.Vec != nil
}

// DisabledVec returns the vector number that marks a disabled entry.
func (t Table) DisabledVec() int {
	return VecRxTxOffset + t.Capacity
}

// Disable clears the table.
func (t *Table) Disable() {
	t.Vec, t.Efds, t.NbEfd = nil, nil, 0
}

// Rebuild clears the table and assigns a vector to every queue with an event channel.
//
// Event file descriptors are made non-blocking. If more queues have event channels than
// capacity allows, the table is disabled entirely and an error is returned.
// If no queue has an event channel, the table is disabled.
func (t *Table) Rebuild(rings []EventSource, capacity int) error {
	t.Disable()
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	t.Capacity = capacity
	t.Vec = make([]int, len(rings))
	t.Efds = make([]int, 0, capacity)

	for i, ring := range rings {
		fd, ok := ring.EventFd()
		if !ok {
			t.Vec[i] = t.DisabledVec()
			continue
		}
		if len(t.Efds) >= capacity {
			logger.Error("too many receive queues for interrupt vector size, receive interrupts cannot be enabled",
				zap.Int("capacity", capacity))
			t.Disable()
			return fmt.Errorf("more than %d queues request interrupts: %w", capacity, verbs.ErrConfiguration)
		}

		flags, e := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
		if e == nil {
			_, e = unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags|unix.O_NONBLOCK)
		}
		if e != nil {
			logger.Error("failed to make receive interrupt file descriptor non-blocking",
				zap.Int("fd", fd), zap.Int("queue", i), zap.Error(e))
			t.Disable()
			return fmt.Errorf("fcntl(%d): %w", fd, e)
		}

		t.Vec[i] = VecRxTxOffset + len(t.Efds)
		t.Efds = append(t.Efds, fd)
	}

	if t.NbEfd = len(t.Efds); t.NbEfd == 0 {
		t.Disable()
	}
	return nil
}
