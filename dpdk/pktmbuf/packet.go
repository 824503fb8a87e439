// Package pktmbuf provides packet buffers and buffer pools for receive rings.
package pktmbuf

import (
	"errors"
	"fmt"

	"github.com/usnistgov/verbsrx/core/logging"
)

var logger = logging.New("pktmbuf")

// DefaultHeadroom is the default headroom of a packet buffer.
const DefaultHeadroom = 128

// DefaultDataroom is the default dataroom of a packet buffer, including headroom.
const DefaultDataroom = 2048 + DefaultHeadroom

// Packet represents one segment of a packet buffer.
//
// A Packet obtained from a Pool is exclusively owned by its holder until Close.
// A placeholder Packet (see NewPlaceholder) has no pool and is never released.
type Packet struct {
	pool    *Pool
	index   int
	iova    uint64
	buf     []byte
	dataOff uint16
	dataLen uint16
	pktLen  uint32
	nbSegs  uint16
	port    uint16
	refcnt  uint16
	next    *Packet
}

// NewPlaceholder creates a Packet that is not backed by any pool.
// It has one reference, DefaultHeadroom, one segment, and the given ingress port.
// Receive rings alias it in padding slots that must never be delivered.
func NewPlaceholder(port uint16) *Packet {
	return &Packet{
		dataOff: DefaultHeadroom,
		nbSegs:  1,
		port:    port,
		refcnt:  1,
	}
}

func (pkt *Packet) reset() {
	pkt.dataOff = uint16(min(DefaultHeadroom, len(pkt.buf)))
	pkt.dataLen, pkt.pktLen = 0, 0
	pkt.nbSegs = 1
	pkt.port = 0
	pkt.refcnt = 1
	pkt.next = nil
}

// Close releases one reference of this segment.
// The segment returns to its pool when the last reference is released.
// Chained segments are not released; see Vector.Close for bulk release.
func (pkt *Packet) Close() error {
	if pkt.refcnt == 0 {
		return errors.New("packet already released")
	}
	pkt.refcnt--
	if pkt.refcnt > 0 || pkt.pool == nil {
		return nil
	}
	pkt.pool.put(pkt)
	return nil
}

// Pool returns the pool this packet belongs to, or nil for a placeholder.
func (pkt *Packet) Pool() *Pool {
	return pkt.pool
}

// IsPlaceholder determines whether this packet is not backed by any pool.
func (pkt *Packet) IsPlaceholder() bool {
	return pkt.pool == nil
}

// IOVA returns the I/O virtual address of the buffer.
func (pkt *Packet) IOVA() uint64 {
	return pkt.iova
}

// DataIOVA returns the I/O virtual address of packet data in this segment.
func (pkt *Packet) DataIOVA() uint64 {
	return pkt.iova + uint64(pkt.dataOff)
}

// BufLen returns buffer length, including headroom.
func (pkt *Packet) BufLen() int {
	return len(pkt.buf)
}

// Len returns packet length in octets.
func (pkt *Packet) Len() int {
	return int(pkt.pktLen)
}

// SetLen sets packet length.
func (pkt *Packet) SetLen(n int) {
	pkt.pktLen = uint32(n)
}

// DataLen returns data length of this segment.
func (pkt *Packet) DataLen() int {
	return int(pkt.dataLen)
}

// SetDataLen sets data length of this segment.
func (pkt *Packet) SetDataLen(n int) error {
	if n < 0 || int(pkt.dataOff)+n > len(pkt.buf) {
		return fmt.Errorf("data length %d exceeds room %d", n, len(pkt.buf)-int(pkt.dataOff))
	}
	pkt.dataLen = uint16(n)
	return nil
}

// NbSegs returns number of segments.
func (pkt *Packet) NbSegs() int {
	return int(pkt.nbSegs)
}

// SetNbSegs sets number of segments.
func (pkt *Packet) SetNbSegs(n int) {
	pkt.nbSegs = uint16(n)
}

// Next returns the next segment.
func (pkt *Packet) Next() *Packet {
	return pkt.next
}

// Port returns ingress network interface.
func (pkt *Packet) Port() uint16 {
	return pkt.port
}

// SetPort sets ingress network interface.
func (pkt *Packet) SetPort(port uint16) {
	pkt.port = port
}

// Refcnt returns reference count.
func (pkt *Packet) Refcnt() int {
	return int(pkt.refcnt)
}

// Headroom returns headroom of this segment.
func (pkt *Packet) Headroom() int {
	return int(pkt.dataOff)
}

// SetHeadroom changes headroom of this segment.
// It can only be used on an empty packet.
func (pkt *Packet) SetHeadroom(headroom int) error {
	if pkt.Len() > 0 || pkt.dataLen > 0 {
		return errors.New("cannot change headroom of non-empty packet")
	}
	if headroom < 0 || headroom > len(pkt.buf) {
		return errors.New("headroom cannot exceed buffer length")
	}
	pkt.dataOff = uint16(headroom)
	return nil
}

// Tailroom returns tailroom of this segment.
func (pkt *Packet) Tailroom() int {
	return len(pkt.buf) - int(pkt.dataOff) - int(pkt.dataLen)
}

// RearmData returns the 64-bit rearm word: data offset, reference count,
// segment count, and port, in that order from the least significant bits.
// Vectorized receive paths copy this word into replenished buffers.
func (pkt *Packet) RearmData() uint64 {
	return uint64(pkt.dataOff) | uint64(pkt.refcnt)<<16 | uint64(pkt.nbSegs)<<32 | uint64(pkt.port)<<48
}

// Bytes returns the data of this segment.
// It aliases the buffer.
func (pkt *Packet) Bytes() []byte {
	return pkt.buf[pkt.dataOff : pkt.dataOff+pkt.dataLen]
}
