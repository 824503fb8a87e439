// Package rxq manages hardware resources of one receive queue.
//
// A Ctrl owns a completion queue, a work queue, a memory region, an optional
// completion channel, and the descriptor Ring. Ctrl is not thread-safe.
package rxq

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/usnistgov/verbsrx/core/logging"
	"github.com/usnistgov/verbsrx/dpdk/eal"
	"github.com/usnistgov/verbsrx/dpdk/pktmbuf"
	"github.com/usnistgov/verbsrx/dpdk/ringbuffer"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
)

var logger = logging.New("rxq")

// Ctrl controls a receive queue.
type Ctrl struct {
	ctx    verbs.Context
	pd     verbs.PD
	caps   Capabilities
	logger *zap.Logger

	cfg     Config
	ring    Ring
	channel verbs.CompChannel
	cq      verbs.CQ
	wq      verbs.WQ
	mr      verbs.MR
}

// NewCtrl creates an empty Ctrl.
func NewCtrl(ctx verbs.Context, pd verbs.PD, caps Capabilities) *Ctrl {
	return &Ctrl{
		ctx:    ctx,
		pd:     pd,
		caps:   caps,
		logger: logger,
	}
}

func (c *Ctrl) String() string {
	return fmt.Sprintf("%s:%d/%d", c.ctx.Name(), c.cfg.Port, c.cfg.Index)
}

// Config returns current configuration.
func (c *Ctrl) Config() Config {
	return c.cfg
}

// Ring returns the descriptor ring.
func (c *Ctrl) Ring() *Ring {
	return &c.ring
}

// IsActive determines whether hardware resources exist.
func (c *Ctrl) IsActive() bool {
	return c.wq != nil
}

// CQ returns the completion queue.
func (c *Ctrl) CQ() verbs.CQ {
	return c.cq
}

// WQ returns the work queue.
func (c *Ctrl) WQ() verbs.WQ {
	return c.wq
}

// MR returns the memory region.
func (c *Ctrl) MR() verbs.MR {
	return c.mr
}

// Channel returns the completion channel, or nil if interrupt mode is off.
func (c *Ctrl) Channel() verbs.CompChannel {
	return c.channel
}

// EventFd returns the completion channel file descriptor.
func (c *Ctrl) EventFd() (fd int, ok bool) {
	if c.channel == nil {
		return -1, false
	}
	return c.channel.Fd(), true
}

// Setup (re)configures the queue.
//
// Configuration and geometry are checked first; if they are invalid, the
// existing configuration is unchanged. Otherwise, existing resources are
// released before new ones are created. If creation fails, the queue is left
// inactive with no resources.
func (c *Ctrl) Setup(cfg Config) (e error) {
	if e := cfg.validate(); e != nil {
		return e
	}
	geo, e := ComputeGeometry(cfg.Desc, cfg.MaxRxPktLen, cfg.EnableScatter, cfg.Pool.Dataroom(), pktmbuf.DefaultHeadroom)
	if e != nil {
		return e
	}

	if c.IsActive() {
		c.logger.Debug("releasing previous resources", zap.Int("old-desc", c.ring.Desc()))
		if e := c.cleanup(); e != nil {
			c.logger.Warn("error releasing previous resources", zap.Error(e))
		}
	}

	c.cfg = cfg
	c.ring = Ring{
		Geometry: geo,
		Port:     cfg.Port,
	}
	c.logger = logger.With(zap.Stringer("rxq", c))
	defer func() {
		if e != nil {
			c.logger.Error("setup error", zap.Error(e))
			c.cleanup()
		}
	}()
	if e := c.create(); e != nil {
		return e
	}

	c.ring.RqCi = uint16(c.ring.MaxWr())
	c.wq.WriteDoorbell(c.ring.RqCi)
	c.logger.Debug("setup complete",
		zap.Int("desc", geo.Desc()),
		zap.Int("segs", geo.MaxSge()),
		zap.Bool("vectorized", c.ring.Vectorized),
	)
	return nil
}

func (c *Ctrl) create() (e error) {
	cfg, caps, r := c.cfg, c.caps, &c.ring
	vectorized := caps.RxVecEn && r.SgesN == 0
	r.CsumOffload = caps.HwCsum && cfg.HwIPChecksum
	r.CsumL2Tun = caps.HwCsumL2Tun && cfg.HwIPChecksum

	if c.mr, e = c.ctx.RegMR(c.pd, cfg.Pool); e != nil {
		return fmt.Errorf("MR creation failure (%w): %w", e, verbs.ErrInvalidArgument)
	}

	if cfg.Interrupt {
		if c.channel, e = c.ctx.CreateCompChannel(); e != nil {
			return fmt.Errorf("completion channel creation failure (%w): %w", e, verbs.ErrOutOfMemory)
		}
	}

	cqe := cfg.Desc - 1
	if caps.CqeComp && !vectorized {
		cqe = cfg.Desc*2 - 1
	}
	if c.cq, e = c.ctx.CreateCQ(verbs.CQInitAttr{Cqe: cqe, Channel: c.channel}); e != nil {
		return fmt.Errorf("CQ creation failure (%w): %w", e, verbs.ErrOutOfMemory)
	}
	cqInfo := c.cq.Info()
	c.logger.Debug("CQ created",
		zap.Int("cqe", cqe),
		zap.Int("cqe-cnt", cqInfo.CqeCnt),
		zap.Int("cqe-size", cqInfo.CqeSize),
	)

	r.VlanStrip = caps.HwVlanStrip && cfg.HwVlanStrip
	attr := verbs.WQInitAttr{
		MaxWr:  r.MaxWr(),
		MaxSge: r.MaxSge(),
		CQ:     c.cq,
	}
	if r.VlanStrip {
		attr.Flags |= verbs.WQFlagCvlanStripping
	}
	switch {
	case cfg.HwStripCRC:
		r.CrcPresent = false
	case caps.HwFcsStrip:
		attr.Flags |= verbs.WQFlagScatterFcs
		r.CrcPresent = true
	default:
		c.logger.Warn("CRC stripping has been disabled but will still be performed by hardware, make sure end padding is not requested")
		r.CrcPresent = false
	}
	if cfg.EnablePadding {
		if caps.HwPadding {
			c.logger.Info("enabling packet padding")
			attr.Flags |= verbs.WQFlagPciWriteEndPadding
		} else {
			c.logger.Warn("packet padding was requested but is not supported")
		}
	}

	wantWr, wantSge := attr.MaxWr, attr.MaxSge
	if c.wq, e = c.ctx.CreateWQ(c.pd, &attr); e != nil {
		return fmt.Errorf("WQ creation failure: %w", e)
	}
	if attr.MaxWr != wantWr || attr.MaxSge != wantSge {
		return fmt.Errorf("requested %d*%d but got %d*%d WRs*SGEs: %w",
			wantWr, wantSge, attr.MaxWr, attr.MaxSge, verbs.ErrResourceMismatch)
	}
	if e = c.wq.Modify(verbs.WQStateRdy); e != nil {
		return fmt.Errorf("WQ state to %s failed: %w", verbs.WQStateRdy, e)
	}

	if cqInfo.CqeSize != eal.CacheLineSize {
		return fmt.Errorf("CQE size %d differs from cache line size %d: %w",
			cqInfo.CqeSize, eal.CacheLineSize, verbs.ErrResourceMismatch)
	}
	r.CqeN = ringbuffer.Log2Above(cqInfo.CqeCnt)
	r.Cqn = cqInfo.Cqn
	r.CqCi, r.RqCi, r.RqPi, r.CqArmSn = 0, 0, 0, 0
	r.Vectorized = vectorized && r.EltsN == r.CqeN
	r.Wqes = c.wq.Wqes()
	if len(r.Wqes) < r.Desc() {
		return fmt.Errorf("WQ has %d descriptors, need %d: %w", len(r.Wqes), r.Desc(), verbs.ErrResourceMismatch)
	}
	nElts := r.Desc()
	if caps.RxVecEn {
		nElts += VpmdDescsPerLoop
	}
	r.Elts = make([]*pktmbuf.Packet, nElts)

	return r.allocElts(cfg.Pool, c.mr.LKey())
}

// cleanup releases all resources and resets the Ctrl to empty.
func (c *Ctrl) cleanup() (e error) {
	errs := []error{c.ring.freeElts()}
	if c.wq != nil {
		errs = append(errs, c.wq.Close())
	}
	if c.cq != nil {
		errs = append(errs, c.cq.Close())
	}
	if c.channel != nil {
		errs = append(errs, c.channel.Close())
	}
	if c.mr != nil {
		errs = append(errs, c.mr.Close())
	}
	*c = Ctrl{
		ctx:    c.ctx,
		pd:     c.pd,
		caps:   c.caps,
		logger: logger,
	}
	return multierr.Combine(errs...)
}

// Close releases all resources.
// The Ctrl may be set up again afterwards.
func (c *Ctrl) Close() error {
	return c.cleanup()
}

// IntrEnable arms the completion queue for one event.
func (c *Ctrl) IntrEnable() error {
	if c.channel == nil || c.cq == nil {
		return fmt.Errorf("interrupt mode is off: %w", verbs.ErrInvalidArgument)
	}
	return c.cq.Arm(c.ring.ArmDoorbell())
}

// IntrDisable consumes a completion event and advances the arm sequence number.
func (c *Ctrl) IntrDisable() error {
	if c.channel == nil || c.cq == nil {
		return fmt.Errorf("interrupt mode is off: %w", verbs.ErrInvalidArgument)
	}
	evCQ, e := c.channel.GetEvent()
	if e != nil || evCQ != c.cq {
		c.logger.Warn("unable to disable interrupt", zap.Error(e))
		return fmt.Errorf("no completion event for this queue: %w", verbs.ErrInvalidArgument)
	}
	c.ring.CqArmSn++
	c.cq.AckEvents(1)
	return nil
}
