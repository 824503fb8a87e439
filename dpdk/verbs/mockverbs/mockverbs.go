// Package mockverbs provides an in-memory verbs.Context for tests and demonstrations.
//
// It tracks live objects per kind and can inject failures into any creation step.
// Completion channels are backed by eventfd, so they can be polled like real ones.
package mockverbs

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/usnistgov/verbsrx/core/logging"
	"github.com/usnistgov/verbsrx/dpdk/eal"
	"github.com/usnistgov/verbsrx/dpdk/pktmbuf"
	"github.com/usnistgov/verbsrx/dpdk/ringbuffer"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
)

var logger = logging.New("mockverbs")

// DefaultCqeSize is the CQE size granted unless overridden.
const DefaultCqeSize = eal.CacheLineSize

var errClosed = errors.New("object already closed")

// Op identifies a fallible operation.
type Op string

// Op values.
const (
	OpAllocPD           Op = "AllocPD"
	OpCreateCompChannel Op = "CreateCompChannel"
	OpCreateCQ          Op = "CreateCQ"
	OpCreateWQ          Op = "CreateWQ"
	OpModifyWQ          Op = "ModifyWQ"
	OpCreateIndTable    Op = "CreateRwqIndTable"
	OpCreateQP          Op = "CreateQP"
	OpCreateFlow        Op = "CreateFlow"
	OpRegMR             Op = "RegMR"
)

// Kind identifies an object kind.
type Kind string

// Kind values.
const (
	KindPD          Kind = "pd"
	KindCompChannel Kind = "channel"
	KindCQ          Kind = "cq"
	KindWQ          Kind = "wq"
	KindIndTable    Kind = "indtable"
	KindQP          Kind = "qp"
	KindFlow        Kind = "flow"
	KindMR          Kind = "mr"
)

type fault struct {
	skip int
	err  error
}

// Context is an in-memory device.
type Context struct {
	name   string
	logger *zap.Logger

	mu      sync.Mutex
	faults  map[Op]*fault
	calls   map[Op]int
	live    map[Kind]int
	nextID  uint32
	flows   map[*Flow]bool
	cqeSize int
	grantWQ func(maxWr, maxSge int) (int, int)
}

var _ verbs.Context = (*Context)(nil)

// New creates a Context.
func New(name string) *Context {
	return &Context{
		name:    name,
		logger:  logger.With(zap.String("dev", name)),
		faults:  map[Op]*fault{},
		calls:   map[Op]int{},
		live:    map[Kind]int{},
		flows:   map[*Flow]bool{},
		cqeSize: DefaultCqeSize,
	}
}

// Name implements verbs.Context interface.
func (ctx *Context) Name() string {
	return ctx.name
}

func (ctx *Context) String() string {
	return ctx.name
}

// FailAt arranges for the call to op after skip successful calls to fail with err.
// If err is nil, ENOMEM is used.
func (ctx *Context) FailAt(op Op, skip int, err error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if err == nil {
		err = eal.ENOMEM
	}
	ctx.faults[op] = &fault{skip: skip, err: err}
}

// ClearFaults cancels pending failures.
func (ctx *Context) ClearFaults() {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	clear(ctx.faults)
}

// SetCqeSize changes the CQE size granted to subsequently created CQs.
func (ctx *Context) SetCqeSize(size int) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.cqeSize = size
}

// SetWQGrant overrides the geometry granted to subsequently created WQs.
// nil restores granting the requested geometry.
func (ctx *Context) SetWQGrant(grant func(maxWr, maxSge int) (int, int)) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.grantWQ = grant
}

// Calls returns how many times op has been attempted.
func (ctx *Context) Calls(op Op) int {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.calls[op]
}

// Live returns number of live objects of a kind.
func (ctx *Context) Live(kind Kind) int {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.live[kind]
}

// LiveCounts returns number of live objects of every kind with at least one live object.
func (ctx *Context) LiveCounts() map[Kind]int {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	m := map[Kind]int{}
	for kind, n := range ctx.live {
		if n > 0 {
			m[kind] = n
		}
	}
	return m
}

// Flows returns live flows.
func (ctx *Context) Flows() (list []*Flow) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	for flow := range ctx.flows {
		list = append(list, flow)
	}
	return list
}

func (ctx *Context) enter(op Op) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.calls[op]++
	if f := ctx.faults[op]; f != nil {
		if f.skip > 0 {
			f.skip--
			return nil
		}
		delete(ctx.faults, op)
		ctx.logger.Debug("injected failure", zap.String("op", string(op)), zap.Error(f.err))
		return fmt.Errorf("%s: %w", op, f.err)
	}
	return nil
}

func (ctx *Context) add(kind Kind) uint32 {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.live[kind]++
	ctx.nextID++
	return ctx.nextID
}

func (ctx *Context) remove(kind Kind, closed *bool) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if *closed {
		return fmt.Errorf("%s: %w", kind, errClosed)
	}
	*closed = true
	ctx.live[kind]--
	return nil
}

// AllocPD implements verbs.Context interface.
func (ctx *Context) AllocPD() (verbs.PD, error) {
	if e := ctx.enter(OpAllocPD); e != nil {
		return nil, e
	}
	pd := &PD{ctx: ctx}
	pd.id = ctx.add(KindPD)
	return pd, nil
}

// PD is a protection domain.
type PD struct {
	ctx    *Context
	id     uint32
	closed bool
}

// Close implements io.Closer interface.
func (pd *PD) Close() error {
	return pd.ctx.remove(KindPD, &pd.closed)
}

// CreateCQ implements verbs.Context interface.
func (ctx *Context) CreateCQ(attr verbs.CQInitAttr) (verbs.CQ, error) {
	if attr.Cqe <= 0 {
		return nil, fmt.Errorf("%s: %w", OpCreateCQ, eal.EINVAL)
	}
	if e := ctx.enter(OpCreateCQ); e != nil {
		return nil, e
	}
	ctx.mu.Lock()
	cqeSize := ctx.cqeSize
	ctx.mu.Unlock()

	cq := &CQ{ctx: ctx, channel: attr.Channel}
	cq.info = verbs.CQInfo{
		Cqn:     ctx.add(KindCQ),
		CqeCnt:  1 << ringbuffer.Log2Above(attr.Cqe+1),
		CqeSize: cqeSize,
	}
	return cq, nil
}

// CQ is a completion queue.
type CQ struct {
	ctx      *Context
	info     verbs.CQInfo
	channel  verbs.CompChannel
	mu       sync.Mutex
	armed    bool
	doorbell uint64
	acked    int
	closed   bool
}

// Close implements io.Closer interface.
func (cq *CQ) Close() error {
	return cq.ctx.remove(KindCQ, &cq.closed)
}

// Info implements verbs.CQ interface.
func (cq *CQ) Info() verbs.CQInfo {
	return cq.info
}

// Channel implements verbs.CQ interface.
func (cq *CQ) Channel() verbs.CompChannel {
	return cq.channel
}

// Arm implements verbs.CQ interface.
func (cq *CQ) Arm(doorbell uint64) error {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	if cq.closed {
		return errClosed
	}
	cq.armed, cq.doorbell = true, doorbell
	return nil
}

// AckEvents implements verbs.CQ interface.
func (cq *CQ) AckEvents(n int) {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	cq.acked += n
}

// Armed returns whether the CQ is armed, and the last arm doorbell value.
func (cq *CQ) Armed() (armed bool, doorbell uint64) {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	return cq.armed, cq.doorbell
}

// Acked returns number of acknowledged events.
func (cq *CQ) Acked() int {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	return cq.acked
}

// Notify simulates a completion: if armed, an event is delivered to the completion channel.
func (cq *CQ) Notify() error {
	cq.mu.Lock()
	armed := cq.armed
	cq.armed = false
	cq.mu.Unlock()

	ch, ok := cq.channel.(*CompChannel)
	if !armed || !ok {
		return nil
	}
	return ch.deliver(cq)
}

// CreateWQ implements verbs.Context interface.
func (ctx *Context) CreateWQ(pd verbs.PD, attr *verbs.WQInitAttr) (verbs.WQ, error) {
	if pd == nil || attr.CQ == nil || attr.MaxWr <= 0 || attr.MaxSge <= 0 {
		return nil, fmt.Errorf("%s: %w", OpCreateWQ, eal.EINVAL)
	}
	if e := ctx.enter(OpCreateWQ); e != nil {
		return nil, e
	}
	ctx.mu.Lock()
	grant := ctx.grantWQ
	ctx.mu.Unlock()
	if grant != nil {
		attr.MaxWr, attr.MaxSge = grant(attr.MaxWr, attr.MaxSge)
	}

	wq := &WQ{
		ctx:   ctx,
		attr:  *attr,
		wqes:  make([]verbs.WqeDataSeg, attr.MaxWr*attr.MaxSge),
		state: verbs.WQStateReset,
	}
	wq.id = ctx.add(KindWQ)
	return wq, nil
}

// WQ is a receive work queue.
type WQ struct {
	ctx      *Context
	id       uint32
	attr     verbs.WQInitAttr
	wqes     []verbs.WqeDataSeg
	state    verbs.WQState
	doorbell uint16
	closed   bool
}

// Close implements io.Closer interface.
func (wq *WQ) Close() error {
	return wq.ctx.remove(KindWQ, &wq.closed)
}

func (wq *WQ) String() string {
	return fmt.Sprintf("wq%d", wq.id)
}

// Modify implements verbs.WQ interface.
func (wq *WQ) Modify(state verbs.WQState) error {
	if e := wq.ctx.enter(OpModifyWQ); e != nil {
		return e
	}
	wq.state = state
	return nil
}

// Wqes implements verbs.WQ interface.
func (wq *WQ) Wqes() []verbs.WqeDataSeg {
	return wq.wqes
}

// WriteDoorbell implements verbs.WQ interface.
func (wq *WQ) WriteDoorbell(rqCi uint16) {
	wq.doorbell = rqCi
}

// State returns WQ state.
func (wq *WQ) State() verbs.WQState {
	return wq.state
}

// Attr returns granted creation attributes.
func (wq *WQ) Attr() verbs.WQInitAttr {
	return wq.attr
}

// Doorbell returns the last published receive producer index.
func (wq *WQ) Doorbell() uint16 {
	return wq.doorbell
}

// CreateRwqIndTable implements verbs.Context interface.
func (ctx *Context) CreateRwqIndTable(attr verbs.IndTableInitAttr) (verbs.IndTable, error) {
	if attr.LogSize < 0 || len(attr.WQs) < 1<<attr.LogSize {
		return nil, fmt.Errorf("%s: %w", OpCreateIndTable, eal.EINVAL)
	}
	if e := ctx.enter(OpCreateIndTable); e != nil {
		return nil, e
	}
	ind := &IndTable{
		ctx:     ctx,
		LogSize: attr.LogSize,
		WQs:     append([]verbs.WQ{}, attr.WQs[:1<<attr.LogSize]...),
	}
	ctx.add(KindIndTable)
	return ind, nil
}

// IndTable is an indirection table.
type IndTable struct {
	ctx     *Context
	LogSize int
	WQs     []verbs.WQ
	closed  bool
}

// Close implements io.Closer interface.
func (ind *IndTable) Close() error {
	return ind.ctx.remove(KindIndTable, &ind.closed)
}

// CreateQP implements verbs.Context interface.
func (ctx *Context) CreateQP(pd verbs.PD, attr verbs.QPInitAttr) (verbs.QP, error) {
	if pd == nil || attr.IndTable == nil || attr.HashFunc != verbs.RxHashFuncToeplitz {
		return nil, fmt.Errorf("%s: %w", OpCreateQP, eal.EINVAL)
	}
	if e := ctx.enter(OpCreateQP); e != nil {
		return nil, e
	}
	qp := &QP{ctx: ctx, Attr: attr}
	qp.Attr.HashKey = append([]byte{}, attr.HashKey...)
	ctx.add(KindQP)
	return qp, nil
}

// QP is a hashing receive queue pair.
type QP struct {
	ctx    *Context
	Attr   verbs.QPInitAttr
	closed bool
}

// Close implements io.Closer interface.
func (qp *QP) Close() error {
	return qp.ctx.remove(KindQP, &qp.closed)
}

// CreateFlow implements verbs.Context interface.
func (ctx *Context) CreateFlow(qp verbs.QP, attr []byte) (verbs.Flow, error) {
	parsed, e := verbs.ParseFlowAttr(attr)
	if e != nil {
		return nil, fmt.Errorf("%s: %w (%w)", OpCreateFlow, eal.EINVAL, e)
	}
	if e := ctx.enter(OpCreateFlow); e != nil {
		return nil, e
	}
	mqp, _ := qp.(*QP)
	flow := &Flow{
		ctx:  ctx,
		QP:   mqp,
		Attr: parsed,
		Raw:  append([]byte{}, attr[:parsed.Size]...),
	}
	ctx.add(KindFlow)
	ctx.mu.Lock()
	ctx.flows[flow] = true
	ctx.mu.Unlock()
	return flow, nil
}

// Flow is an attached steering rule.
type Flow struct {
	ctx    *Context
	QP     *QP
	Attr   verbs.FlowAttr
	Raw    []byte
	closed bool
}

// Close implements io.Closer interface.
func (flow *Flow) Close() error {
	if e := flow.ctx.remove(KindFlow, &flow.closed); e != nil {
		return e
	}
	flow.ctx.mu.Lock()
	delete(flow.ctx.flows, flow)
	flow.ctx.mu.Unlock()
	return nil
}

// EthFilter returns value and mask of the Ethernet flow spec.
func (flow *Flow) EthFilter() (val, mask verbs.EthFilter, ok bool) {
	spec, ok := flow.Attr.Spec(verbs.FlowSpecEth)
	if !ok {
		return
	}
	val, mask = verbs.ParseEthSpecFilter(flow.Raw[spec.Offset:])
	return val, mask, true
}

// RegMR implements verbs.Context interface.
func (ctx *Context) RegMR(pd verbs.PD, pool *pktmbuf.Pool) (verbs.MR, error) {
	if pd == nil || pool == nil {
		return nil, fmt.Errorf("%s: %w", OpRegMR, eal.EINVAL)
	}
	if e := ctx.enter(OpRegMR); e != nil {
		return nil, e
	}
	mr := &MR{ctx: ctx}
	mr.Base, mr.Length = pool.MemRange()
	mr.lkey = ctx.add(KindMR) | 0x5A000000
	return mr, nil
}

// MR is a registered memory region.
type MR struct {
	ctx    *Context
	lkey   uint32
	Base   uint64
	Length int
	closed bool
}

// Close implements io.Closer interface.
func (mr *MR) Close() error {
	return mr.ctx.remove(KindMR, &mr.closed)
}

// LKey implements verbs.MR interface.
func (mr *MR) LKey() uint32 {
	return mr.lkey
}

// Contains determines whether [addr, addr+length) is within the region.
func (mr *MR) Contains(addr uint64, length int) bool {
	return addr >= mr.Base && addr+uint64(length) <= mr.Base+uint64(mr.Length)
}
