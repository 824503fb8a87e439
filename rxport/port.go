// Package rxport manages the receive side of a port.
//
// A Port owns one rxq.Ctrl per receive queue, the RSS hash queue set with its
// steering rules, and the receive interrupt vector table. Every configuration
// method acquires the port lock.
package rxport

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/zyedidia/generic/mapset"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/usnistgov/verbsrx/core/events"
	"github.com/usnistgov/verbsrx/core/logging"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
	"github.com/usnistgov/verbsrx/intrvec"
	"github.com/usnistgov/verbsrx/rss"
	"github.com/usnistgov/verbsrx/rxq"
)

var logger = logging.New("rxport")

var (
	portsLock sync.RWMutex
	ports     = map[string]*Port{}
)

// ErrPortExists indicates a duplicate port name.
var ErrPortExists = errors.New("port already exists")

const (
	evtRxQueue  = "RxQueue"
	evtHashRxqs = "HashRxqs"
)

// Port controls receive resources of one port.
type Port struct {
	mutex   sync.Mutex
	name    string
	ctx     verbs.Context
	pd      verbs.PD
	caps    rxq.Capabilities
	cfg     Config
	logger  *zap.Logger
	emitter *events.Emitter

	queues  []*rxq.Ctrl
	hrxqs   *rss.HashRxqSet
	inUse   mapset.Set[int]
	intr    intrvec.Table
	started bool
}

// New creates a Port.
// pd must remain valid until the Port is closed.
func New(name string, ctx verbs.Context, pd verbs.PD, caps rxq.Capabilities, cfg Config) (*Port, error) {
	cfg = cfg.clone()
	cfg.applyDefaults()
	if e := cfg.validate(); e != nil {
		return nil, e
	}
	if caps.IBPort == 0 {
		caps.IBPort = 1
	}

	portsLock.Lock()
	defer portsLock.Unlock()
	if ports[name] != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrPortExists)
	}

	p := &Port{
		name:    name,
		ctx:     ctx,
		pd:      pd,
		caps:    caps,
		cfg:     cfg,
		logger:  logger.With(zap.String("port", name)),
		emitter: events.NewEmitter(),
		queues:  make([]*rxq.Ctrl, cfg.NRxQueues),
		hrxqs:   rss.NewHashRxqSet(ctx),
		inUse:   mapset.New[int](),
	}
	ports[name] = p
	p.logger.Info("port created",
		zap.Int("rxqs", cfg.NRxQueues),
		zap.Stringer("rss-hf", cfg.RssHf),
		zap.Bool("isolated", cfg.Isolated),
	)
	return p, nil
}

// Find locates a Port by name.
func Find(name string) *Port {
	portsLock.RLock()
	defer portsLock.RUnlock()
	return ports[name]
}

// List returns all ports, sorted by name.
func List() (list []*Port) {
	portsLock.RLock()
	defer portsLock.RUnlock()
	for _, p := range ports {
		list = append(list, p)
	}
	slices.SortFunc(list, func(a, b *Port) int { return strings.Compare(a.name, b.name) })
	return list
}

func (p *Port) String() string {
	return p.name
}

// Name returns the port name.
func (p *Port) Name() string {
	return p.name
}

// Config returns current configuration.
func (p *Port) Config() Config {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.cfg.clone()
}

// Capabilities returns device capabilities.
func (p *Port) Capabilities() rxq.Capabilities {
	return p.caps
}

// IsStarted determines whether the port is started.
func (p *Port) IsStarted() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.started
}

// OnRxQueue registers a callback when a receive queue is set up (active=true) or released (active=false).
func (p *Port) OnRxQueue(cb func(index int, active bool)) io.Closer {
	return p.emitter.On(evtRxQueue, cb)
}

// OnHashRxqs registers a callback when hash queues are created (ready=true) or destroyed (ready=false).
func (p *Port) OnHashRxqs(cb func(ready bool)) io.Closer {
	return p.emitter.On(evtHashRxqs, cb)
}

// Start creates hash queues, attaches steering rules, and builds the interrupt vector table.
// On failure, the port is left stopped.
func (p *Port) Start() (e error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.started {
		return nil
	}

	defer func() {
		if e != nil {
			p.logger.Error("port start error", zap.Error(e))
			p.stop()
		}
	}()
	if e = p.createHashRxqs(); e != nil {
		return e
	}
	if e = p.rehashFlows(); e != nil {
		return e
	}
	if e = p.rxIntrVecEnable(); e != nil {
		return e
	}

	p.started = true
	p.logger.Info("port started",
		zap.Int("hash-rxqs", len(p.hrxqs.HashRxqs())),
		zap.Int("flows", p.hrxqs.CountFlows()),
		zap.Bool("intr", p.intr.Enabled()),
	)
	return nil
}

// Stop releases the interrupt vector table, steering rules, and hash queues.
// Receive queues are kept.
func (p *Port) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if !p.started {
		return
	}
	p.stop()
	p.logger.Info("port stopped")
}

func (p *Port) stop() {
	p.rxIntrVecDisable()
	p.hrxqs.DisableAllFlows()
	p.destroyHashRxqs()
	p.started = false
}

// Close stops the port and releases every receive queue.
func (p *Port) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.stop()
	errs := []error{}
	for i, c := range p.queues {
		if c == nil {
			continue
		}
		errs = append(errs, c.Close())
		p.queues[i] = nil
		p.emitter.Emit(evtRxQueue, i, false)
	}

	portsLock.Lock()
	if ports[p.name] == p {
		delete(ports, p.name)
	}
	portsLock.Unlock()

	e := multierr.Combine(errs...)
	if e != nil {
		p.logger.Error("port closed", zap.Error(e))
	} else {
		p.logger.Info("port closed")
	}
	return e
}
