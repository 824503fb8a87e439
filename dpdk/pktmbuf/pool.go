package pktmbuf

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/usnistgov/verbsrx/dpdk/eal"
)

// ErrPoolEmpty indicates the pool has no available packet.
var ErrPoolEmpty = errors.New("empty packet pool")

// Limits and defaults.
const (
	MinDataroom     = DefaultHeadroom
	DefaultCapacity = 4095
)

var (
	iovaLock sync.Mutex
	iovaNext uint64 = 0x100000000
)

func allocIOVA(size int) (base uint64) {
	iovaLock.Lock()
	defer iovaLock.Unlock()
	base = iovaNext
	iovaNext += (uint64(size) + 0xFFFF) &^ 0xFFFF
	return base
}

// PoolConfig contains Pool configuration.
type PoolConfig struct {
	Capacity int `json:"capacity"`
	Dataroom int `json:"dataroom"` // including headroom
}

func (cfg *PoolConfig) applyDefaults() {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Dataroom <= 0 {
		cfg.Dataroom = DefaultDataroom
	}
}

// Pool is a fixed-capacity pool of packet buffers.
//
// Pool is not thread-safe.
type Pool struct {
	name   string
	cfg    PoolConfig
	socket eal.NumaSocket
	iova   uint64
	mem    []byte
	elts   []Packet
	free   []*Packet
}

// NewPool creates a Pool.
func NewPool(cfg PoolConfig, socket eal.NumaSocket) (mp *Pool, e error) {
	cfg.applyDefaults()
	if cfg.Dataroom < MinDataroom {
		return nil, fmt.Errorf("dataroom must be at least %d", MinDataroom)
	}

	mp = &Pool{
		name:   eal.AllocObjectID("pktmbuf.Pool"),
		cfg:    cfg,
		socket: socket,
		mem:    make([]byte, cfg.Capacity*cfg.Dataroom),
		elts:   make([]Packet, cfg.Capacity),
		free:   make([]*Packet, cfg.Capacity),
	}
	mp.iova = allocIOVA(len(mp.mem))
	for i := range mp.elts {
		pkt := &mp.elts[i]
		off := i * cfg.Dataroom
		*pkt = Packet{
			pool:  mp,
			index: i,
			iova:  mp.iova + uint64(off),
			buf:   mp.mem[off : off+cfg.Dataroom : off+cfg.Dataroom],
		}
		pkt.reset()
		pkt.refcnt = 0
		mp.free[cfg.Capacity-1-i] = pkt
	}

	logger.Debug("pool created",
		zap.String("name", mp.name),
		zap.Int("capacity", cfg.Capacity),
		zap.Int("dataroom", cfg.Dataroom),
		socket.ZapField("socket"),
	)
	return mp, nil
}

// Close releases the pool.
// It fails if some packets are still in use.
func (mp *Pool) Close() error {
	if n := mp.CountInUse(); n > 0 {
		return fmt.Errorf("cannot close pool with %d packets in use", n)
	}
	mp.elts, mp.free, mp.mem = nil, nil, nil
	return nil
}

func (mp *Pool) String() string {
	return mp.name
}

// Config returns pool configuration.
func (mp *Pool) Config() PoolConfig {
	return mp.cfg
}

// NumaSocket returns the NUMA socket where this pool was created.
func (mp *Pool) NumaSocket() eal.NumaSocket {
	return mp.socket
}

// Dataroom returns dataroom of each buffer, including headroom.
func (mp *Pool) Dataroom() int {
	return mp.cfg.Dataroom
}

// MemRange returns the I/O virtual address range occupied by this pool.
// Memory regions are registered over this range.
func (mp *Pool) MemRange() (base uint64, length int) {
	return mp.iova, len(mp.mem)
}

// CountAvailable returns number of available packets.
func (mp *Pool) CountAvailable() int {
	return len(mp.free)
}

// CountInUse returns number of allocated packets.
func (mp *Pool) CountInUse() int {
	return len(mp.elts) - len(mp.free)
}

// AllocPacket allocates one empty packet with DefaultHeadroom.
func (mp *Pool) AllocPacket() (*Packet, error) {
	n := len(mp.free)
	if n == 0 {
		return nil, ErrPoolEmpty
	}
	pkt := mp.free[n-1]
	mp.free = mp.free[:n-1]
	pkt.reset()
	return pkt, nil
}

// Alloc allocates several packets.
// Either all or none are allocated.
func (mp *Pool) Alloc(count int) (vec Vector, e error) {
	if count > len(mp.free) {
		return Vector{}, ErrPoolEmpty
	}
	vec = make(Vector, count)
	for i := range vec {
		vec[i], _ = mp.AllocPacket()
	}
	return vec, nil
}

func (mp *Pool) put(pkt *Packet) {
	if mp.free == nil {
		logger.Panic("packet released to closed pool", zap.String("pool", mp.name))
	}
	pkt.next = nil
	mp.free = append(mp.free, pkt)
}
