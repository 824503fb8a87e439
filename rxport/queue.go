package rxport

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/usnistgov/verbsrx/dpdk/eal"
	"github.com/usnistgov/verbsrx/dpdk/pktmbuf"
	"github.com/usnistgov/verbsrx/dpdk/ringbuffer"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
	"github.com/usnistgov/verbsrx/rxq"
)

// QueueInfo describes a receive queue.
type QueueInfo struct {
	Index      int    `json:"index" gqldesc:"Queue index."`
	Desc       int    `json:"desc" gqldesc:"Number of descriptors."`
	Segments   int    `json:"segments" gqldesc:"Scatter/gather segments per packet."`
	CqeN       int    `json:"cqeN" gqldesc:"log2 of completion queue entries."`
	Vectorized bool   `json:"vectorized" gqldesc:"Whether vectorized receive padding is present."`
	Interrupt  bool   `json:"interrupt" gqldesc:"Whether a completion channel exists."`
	Retained   int    `json:"retained" gqldesc:"Number of packets owned by the ring."`
	InUse      bool   `json:"inUse" gqldesc:"Whether hash queues refer to this queue."`
	CqArmSn    uint32 `json:"cqArmSn" gqldesc:"Completion queue arm sequence number."`
}

func (p *Port) checkIndex(index int) error {
	if index < 0 || index >= len(p.queues) {
		return fmt.Errorf("queue index %d out of range [0,%d): %w", index, len(p.queues), verbs.ErrInvalidArgument)
	}
	return nil
}

// RxQueueSetup creates or reconfigures a receive queue.
//
// desc is rounded up to a power of two. A queue cannot be reconfigured while the port is
// started or while hash queues refer to it. Reconfiguration releases the previous resources
// first; if it then fails, the queue is no longer set up.
func (p *Port) RxQueueSetup(index, desc int, socket eal.NumaSocket, pool *pktmbuf.Pool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if e := p.checkIndex(index); e != nil {
		return e
	}
	logEntry := p.logger.With(zap.Int("queue", index))
	if p.started {
		logEntry.Error("cannot configure queue while port is started")
		return fmt.Errorf("port is started: %w", verbs.ErrInvalidArgument)
	}
	if p.inUse.Has(index) {
		logEntry.Error("cannot configure queue referenced by hash queues")
		return fmt.Errorf("queue %d is in use: %w", index, verbs.ErrInvalidArgument)
	}

	if aligned := ringbuffer.AlignCapacity(desc); aligned != desc {
		logEntry.Warn("number of descriptors adjusted to a power of two",
			zap.Int("requested", desc), zap.Int("adjusted", aligned))
		desc = aligned
	}

	c := p.queues[index]
	if c == nil {
		c = rxq.NewCtrl(p.ctx, p.pd, p.caps)
	} else {
		logEntry.Debug("reconfiguring queue", zap.Int("old-desc", c.Config().Desc), zap.Int("new-desc", desc))
	}
	if e := c.Setup(rxq.Config{
		Port:          p.cfg.PortID,
		Index:         index,
		Desc:          desc,
		Socket:        socket,
		Pool:          pool,
		MaxRxPktLen:   p.cfg.MaxRxPktLen,
		EnableScatter: p.cfg.EnableScatter,
		HwIPChecksum:  p.cfg.HwIPChecksum,
		HwVlanStrip:   p.cfg.HwVlanStrip,
		HwStripCRC:    p.cfg.HwStripCRC,
		EnablePadding: p.cfg.EnablePadding,
		Interrupt:     p.cfg.RxqInterrupt,
	}); e != nil {
		if p.queues[index] != nil && !c.IsActive() {
			p.queues[index] = nil
			p.emitter.Emit(evtRxQueue, index, false)
		}
		return e
	}

	p.queues[index] = c
	logEntry.Debug("queue ready", zap.Int("desc", desc), socket.ZapField("socket"))
	p.emitter.Emit(evtRxQueue, index, true)
	return nil
}

// RxQueueRelease releases a receive queue.
// It panics if hash queues refer to this queue.
func (p *Port) RxQueueRelease(index int) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if e := p.checkIndex(index); e != nil {
		return e
	}
	c := p.queues[index]
	if c == nil {
		return nil
	}
	if p.inUse.Has(index) {
		p.logger.Panic("cannot release queue referenced by hash queues", zap.Int("queue", index))
	}

	p.queues[index] = nil
	e := c.Close()
	p.emitter.Emit(evtRxQueue, index, false)
	return e
}

// Queue returns the controller of a receive queue, or nil if it is not set up.
// The caller must not reconfigure it directly.
func (p *Port) Queue(index int) *rxq.Ctrl {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.checkIndex(index) != nil {
		return nil
	}
	return p.queues[index]
}

// Queues describes every receive queue that is set up.
func (p *Port) Queues() (list []QueueInfo) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for i, c := range p.queues {
		if c == nil {
			continue
		}
		r := c.Ring()
		list = append(list, QueueInfo{
			Index:      i,
			Desc:       r.Desc(),
			Segments:   r.MaxSge(),
			CqeN:       r.CqeN,
			Vectorized: r.Vectorized,
			Interrupt:  c.Channel() != nil,
			Retained:   r.CountRetained(),
			InUse:      p.inUse.Has(i),
			CqArmSn:    r.CqArmSn,
		})
	}
	return list
}

func (p *Port) activeQueue(index int) (*rxq.Ctrl, error) {
	if e := p.checkIndex(index); e != nil {
		return nil, e
	}
	c := p.queues[index]
	if c == nil || !c.IsActive() {
		return nil, fmt.Errorf("queue %d is not set up: %w", index, verbs.ErrInvalidArgument)
	}
	return c, nil
}

// RxIntrEnable arms a receive queue for one completion event.
func (p *Port) RxIntrEnable(index int) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	c, e := p.activeQueue(index)
	if e == nil {
		e = c.IntrEnable()
	}
	if e != nil {
		p.logger.Warn("unable to arm interrupt", zap.Int("queue", index), zap.Error(e))
	}
	return e
}

// RxIntrDisable consumes the completion event of a receive queue.
func (p *Port) RxIntrDisable(index int) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	c, e := p.activeQueue(index)
	if e != nil {
		return e
	}
	return c.IntrDisable()
}
