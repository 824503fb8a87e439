package rxport

import (
	"slices"

	"go.uber.org/zap"

	"github.com/usnistgov/verbsrx/intrvec"
)

type noEventSource struct{}

func (noEventSource) EventFd() (int, bool) {
	return -1, false
}

// RxIntrVecEnable rebuilds the interrupt vector table from receive queue completion channels.
// It does nothing unless receive interrupt mode is configured.
func (p *Port) RxIntrVecEnable() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.rxIntrVecEnable()
}

func (p *Port) rxIntrVecEnable() error {
	if !p.cfg.RxqInterrupt {
		return nil
	}
	sources := make([]intrvec.EventSource, len(p.queues))
	for i, c := range p.queues {
		if c == nil {
			sources[i] = noEventSource{}
		} else {
			sources[i] = c
		}
	}
	if e := p.intr.Rebuild(sources, p.cfg.IntrCapacity); e != nil {
		return e
	}
	p.logger.Debug("interrupt vector rebuilt", zap.Int("efds", p.intr.NbEfd))
	return nil
}

// RxIntrVecDisable clears the interrupt vector table.
func (p *Port) RxIntrVecDisable() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.rxIntrVecDisable()
}

func (p *Port) rxIntrVecDisable() {
	p.intr.Disable()
}

// IntrVec returns a copy of the interrupt vector table.
func (p *Port) IntrVec() (t intrvec.Table) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	t = p.intr
	t.Vec = slices.Clone(t.Vec)
	t.Efds = slices.Clone(t.Efds)
	return t
}
