package rxport

import (
	"fmt"

	"github.com/zyedidia/generic/mapset"
	"go.uber.org/zap"

	"github.com/usnistgov/verbsrx/dpdk/ringbuffer"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
	"github.com/usnistgov/verbsrx/rss"
)

// HashRxqInfo describes a hash queue.
type HashRxqInfo struct {
	Type         string `json:"type" gqldesc:"Classification type."`
	SpecialFlows int    `json:"specialFlows" gqldesc:"Number of attached special flows."`
	MacFlows     int    `json:"macFlows" gqldesc:"Number of attached MAC flows."`
}

// CreateHashRxqs creates indirection tables and hash queues over the redirection table.
// In isolated mode, this does nothing.
func (p *Port) CreateHashRxqs() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.createHashRxqs()
}

func (p *Port) createHashRxqs() error {
	if p.cfg.Isolated {
		p.logger.Debug("isolated mode, hash queues not created")
		return nil
	}

	n := p.cfg.NRxQueues
	if !ringbuffer.IsPowerOfTwo(n) {
		p.logger.Info("number of receive queues is not a power of two, consider rounding for optimal spreading",
			zap.Int("rxqs", n), zap.Int("suggested", 1<<ringbuffer.Log2Above(n)))
	}

	reta := p.cfg.reta()
	wqs := make([]verbs.WQ, len(reta))
	for i, q := range reta {
		c := p.queues[q]
		if c == nil || !c.IsActive() {
			return fmt.Errorf("reta[%d] refers to queue %d that is not set up: %w", i, q, verbs.ErrInvalidArgument)
		}
		wqs[i] = c.WQ()
	}

	if e := p.hrxqs.Create(wqs, rss.Config{
		PD:     p.pd,
		Port:   p.caps.IBPort,
		RssHf:  p.cfg.RssHf,
		RssKey: p.cfg.RssKey,
		NRxqs:  n,
	}); e != nil {
		return e
	}

	for _, q := range reta {
		p.inUse.Put(q)
	}
	p.logger.Debug("hash queues created",
		zap.Int("reta", len(reta)),
		zap.Int("ind-tables", p.hrxqs.CountIndTables()),
		zap.Int("hash-rxqs", len(p.hrxqs.HashRxqs())),
	)
	p.emitter.Emit(evtHashRxqs, true)
	return nil
}

// DestroyHashRxqs destroys hash queues and indirection tables.
// It panics if steering rules are still attached.
func (p *Port) DestroyHashRxqs() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.destroyHashRxqs()
}

func (p *Port) destroyHashRxqs() {
	if p.hrxqs.State() == rss.SetEmpty {
		return
	}
	p.hrxqs.Destroy()
	p.inUse = mapset.New[int]()
	p.emitter.Emit(evtHashRxqs, false)
}

// HashRxqs describes every hash queue.
func (p *Port) HashRxqs() (list []HashRxqInfo) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for _, hrxq := range p.hrxqs.HashRxqs() {
		list = append(list, HashRxqInfo{
			Type:         hrxq.Type().String(),
			SpecialFlows: hrxq.CountFlows() - hrxq.CountMacFlows(),
			MacFlows:     hrxq.CountMacFlows(),
		})
	}
	return list
}

// CountIndTables returns the number of indirection tables.
func (p *Port) CountIndTables() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.hrxqs.CountIndTables()
}

// RehashFlows attaches and detaches steering rules according to the current RxMode.
// It does nothing when hash queues do not exist.
func (p *Port) RehashFlows() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.rehashFlows()
}

func (p *Port) rehashFlows() error {
	if p.hrxqs.State() != rss.SetReady {
		return nil
	}
	if e := p.hrxqs.Rehash(p.cfg.RxMode.flowConfig()); e != nil {
		p.logger.Error("rehash error", zap.Error(e))
		return e
	}
	p.logger.Debug("flows rehashed",
		zap.Bool("promisc", p.cfg.Promisc),
		zap.Bool("allmulti", p.cfg.AllMulti),
		zap.Int("macs", len(p.cfg.MacAddrs)),
		zap.Int("vlans", len(p.cfg.VlanFilter)),
		zap.Int("flows", p.hrxqs.CountFlows()),
	)
	return nil
}

// SetRxMode changes steering rule settings.
// If the port is started, steering rules are updated immediately.
func (p *Port) SetRxMode(mode RxMode) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	cfg := p.cfg
	cfg.RxMode = mode
	cfg = cfg.clone()
	if e := cfg.validate(); e != nil {
		return e
	}
	p.cfg = cfg
	return p.rehashFlows()
}
