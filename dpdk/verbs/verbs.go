// Package verbs declares the hardware control interface of an RDMA-capable Ethernet adapter.
//
// Objects are created through a Context and released with Close.
// Implementations are synchronous; none of the methods block on traffic.
package verbs

import (
	"io"

	"github.com/usnistgov/verbsrx/core/logging"
	"github.com/usnistgov/verbsrx/dpdk/pktmbuf"
)

var logger = logging.New("verbs")

// Context represents an opened device.
type Context interface {
	// Name returns device name.
	Name() string

	// AllocPD allocates a protection domain.
	AllocPD() (PD, error)

	// CreateCompChannel creates a completion event channel.
	CreateCompChannel() (CompChannel, error)

	// CreateCQ creates a completion queue.
	CreateCQ(attr CQInitAttr) (CQ, error)

	// CreateWQ creates a receive work queue.
	// Granted MaxWr and MaxSge are written back into attr.
	CreateWQ(pd PD, attr *WQInitAttr) (WQ, error)

	// CreateRwqIndTable creates a receive work queue indirection table.
	CreateRwqIndTable(attr IndTableInitAttr) (IndTable, error)

	// CreateQP creates a hashing receive queue pair.
	CreateQP(pd PD, attr QPInitAttr) (QP, error)

	// CreateFlow attaches a steering rule to a queue pair.
	// attr is a flow attribute header followed by flow specs, see FlowAttrHeader.
	CreateFlow(qp QP, attr []byte) (Flow, error)

	// RegMR registers the memory of a packet buffer pool.
	RegMR(pd PD, pool *pktmbuf.Pool) (MR, error)
}

// PD represents a protection domain.
type PD interface {
	io.Closer
}

// CompChannel represents a completion event channel.
type CompChannel interface {
	io.Closer

	// Fd returns the file descriptor that becomes readable when an event is pending.
	Fd() int

	// GetEvent retrieves a pending event and returns the CQ that generated it.
	GetEvent() (CQ, error)
}

// CQInitAttr contains CQ creation attributes.
type CQInitAttr struct {
	Cqe        int         // minimum number of entries
	Channel    CompChannel // optional completion channel
	CompVector int
}

// CQInfo contains CQ properties granted by the device.
type CQInfo struct {
	Cqn     uint32
	CqeCnt  int // number of entries
	CqeSize int // entry size in octets
}

// CQ represents a completion queue.
type CQ interface {
	io.Closer

	// Info returns CQ properties.
	Info() CQInfo

	// Channel returns the completion channel, or nil.
	Channel() CompChannel

	// Arm requests a completion event by writing the arm doorbell.
	Arm(doorbell uint64) error

	// AckEvents acknowledges n events retrieved from the completion channel.
	AckEvents(n int)
}

// WQFlags contains WQ creation flags.
type WQFlags uint32

// WQFlags bits.
const (
	WQFlagCvlanStripping     WQFlags = 1 << 0
	WQFlagScatterFcs         WQFlags = 1 << 1
	WQFlagDelayDrop          WQFlags = 1 << 2
	WQFlagPciWriteEndPadding WQFlags = 1 << 3
)

// WQState indicates WQ state.
type WQState int

// WQState values.
const (
	WQStateReset WQState = iota
	WQStateRdy
	WQStateErr
)

func (s WQState) String() string {
	switch s {
	case WQStateReset:
		return "RESET"
	case WQStateRdy:
		return "RDY"
	case WQStateErr:
		return "ERR"
	}
	return "UNKNOWN"
}

// WQInitAttr contains WQ creation attributes.
type WQInitAttr struct {
	MaxWr  int // number of work requests
	MaxSge int // scatter/gather entries per work request
	CQ     CQ
	Flags  WQFlags
}

// WqeDataSeg is a receive descriptor: one scatter/gather entry.
type WqeDataSeg struct {
	Addr      uint64
	ByteCount uint32
	LKey      uint32
}

// WQ represents a receive work queue.
type WQ interface {
	io.Closer

	// Modify changes WQ state.
	Modify(state WQState) error

	// Wqes returns the descriptor array, MaxWr*MaxSge entries.
	Wqes() []WqeDataSeg

	// WriteDoorbell publishes the receive producer index.
	WriteDoorbell(rqCi uint16)
}

// IndTableInitAttr contains indirection table creation attributes.
type IndTableInitAttr struct {
	LogSize int
	WQs     []WQ // at least 1<<LogSize entries
}

// IndTable represents a receive work queue indirection table.
type IndTable interface {
	io.Closer
}

// RxHashFunction identifies the receive hash function.
type RxHashFunction int

// RxHashFunction values.
const (
	RxHashFuncToeplitz RxHashFunction = 1
)

// RxHashFields contains receive hash field bits.
type RxHashFields uint64

// RxHashFields bits.
const (
	RxHashSrcIPv4    RxHashFields = 1 << 0
	RxHashDstIPv4    RxHashFields = 1 << 1
	RxHashSrcIPv6    RxHashFields = 1 << 2
	RxHashDstIPv6    RxHashFields = 1 << 3
	RxHashSrcPortTCP RxHashFields = 1 << 4
	RxHashDstPortTCP RxHashFields = 1 << 5
	RxHashSrcPortUDP RxHashFields = 1 << 6
	RxHashDstPortUDP RxHashFields = 1 << 7
)

// QPInitAttr contains hashing QP creation attributes.
type QPInitAttr struct {
	IndTable   IndTable
	HashFunc   RxHashFunction
	HashKey    []byte
	HashFields RxHashFields
	Port       uint8
}

// QP represents a hashing receive queue pair.
type QP interface {
	io.Closer
}

// Flow represents an attached steering rule.
type Flow interface {
	io.Closer
}

// MR represents a registered memory region.
type MR interface {
	io.Closer

	// LKey returns the local key.
	LKey() uint32
}
