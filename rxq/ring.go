package rxq

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/usnistgov/verbsrx/dpdk/pktmbuf"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
)

// VpmdDescsPerLoop is the number of descriptors processed per vectorized iteration.
// A vectorized ring has this many padding slots after the last descriptor.
const VpmdDescsPerLoop = 4

// CQ arm doorbell fields.
const (
	cqSqnMask   = 0x3
	cqSqnOffset = 28
	cqCiMask    = 0xFFFFFF
)

// Ring is a receive descriptor ring.
//
// Cursors wrap at 16 bits. RqCi is the producer index of posted descriptors;
// in vectorized mode, RqPi trails it by the number of descriptors owned by hardware.
type Ring struct {
	Geometry
	CqeN int // log2 CQ entries

	CqCi uint16
	RqCi uint16
	RqPi uint16

	Port            uint16
	Elts            []*pktmbuf.Packet
	Wqes            []verbs.WqeDataSeg
	Fake            *pktmbuf.Packet // placeholder aliased by padding slots
	MbufInitializer uint64

	CsumOffload bool
	CsumL2Tun   bool
	VlanStrip   bool
	CrcPresent  bool
	Vectorized  bool

	CqArmSn uint32
	Cqn     uint32
}

// Mask returns the descriptor index mask.
func (r *Ring) Mask() uint16 {
	return uint16(r.Desc() - 1)
}

// CountRetained returns number of non-placeholder packets held by the ring.
func (r *Ring) CountRetained() (n int) {
	for _, pkt := range r.Elts {
		if pkt != nil && pkt != r.Fake {
			n++
		}
	}
	return n
}

// allocElts fills every descriptor slot with a packet from pool.
// On failure, packets allocated so far are released.
func (r *Ring) allocElts(pool *pktmbuf.Pool, lkey uint32) error {
	n := r.Desc()
	sgesMask := r.MaxSge() - 1
	for i := range n {
		pkt, e := pool.AllocPacket()
		if e != nil {
			logger.Error("empty packet pool", zap.Int("elt", i), zap.Int("elts", n))
			e = fmt.Errorf("allocate element %d of %d: %w", i, n, verbs.ErrOutOfMemory)
			if ce := pktmbuf.Vector(r.Elts[:i]).Close(); ce != nil {
				logger.Warn("error releasing allocated elements", zap.Error(ce))
				e = multierr.Append(e, ce)
			}
			clear(r.Elts[:i])
			return e
		}

		// headroom is reserved only in the first segment of each packet
		if i&sgesMask != 0 {
			pkt.SetHeadroom(0)
		}
		pkt.SetPort(r.Port)
		pkt.SetDataLen(pkt.Tailroom())
		pkt.SetLen(pkt.DataLen())
		pkt.SetNbSegs(1)
		r.Wqes[i] = verbs.WqeDataSeg{
			Addr:      pkt.DataIOVA(),
			ByteCount: uint32(pkt.DataLen()),
			LKey:      lkey,
		}
		r.Elts[i] = pkt
	}

	if r.Vectorized {
		r.Fake = pktmbuf.NewPlaceholder(r.Port)
		r.MbufInitializer = r.Fake.RearmData()
		for j := range VpmdDescsPerLoop {
			r.Elts[n+j] = r.Fake
		}
	}
	logger.Debug("allocated elements", zap.Uint16("port", r.Port), zap.Int("elts", n), zap.Int("segs", r.MaxSge()))
	return nil
}

// freeElts releases packets owned by the ring.
// In vectorized mode, slots handed to the application are cleared without release.
func (r *Ring) freeElts() error {
	if r.Elts == nil {
		return nil
	}
	n := r.Desc()
	if r.Vectorized {
		used := uint16(n) - (r.RqCi - r.RqPi)
		mask := r.Mask()
		for i := range used {
			r.Elts[(r.RqCi+i)&mask] = nil
		}
		r.RqPi = r.RqCi
	}
	e := pktmbuf.Vector(r.Elts[:n]).Close()
	if e != nil {
		logger.Warn("error releasing elements", zap.Uint16("port", r.Port), zap.Error(e))
	}
	clear(r.Elts)
	return e
}

// ArmDoorbell returns the 64-bit CQ arm doorbell value.
// The upper half carries the arm sequence number and CQ consumer index;
// the lower half carries the CQ number.
func (r *Ring) ArmDoorbell() uint64 {
	hi := (r.CqArmSn&cqSqnMask)<<cqSqnOffset | uint32(r.CqCi)&cqCiMask
	return uint64(hi)<<32 | uint64(r.Cqn)
}
