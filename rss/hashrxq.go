package rss

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/usnistgov/verbsrx/dpdk/ringbuffer"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
)

// Config contains HashRxqSet creation parameters.
type Config struct {
	PD       verbs.PD
	Port     uint8 // IB port number used in steering rules
	RssHf    HashFunction
	RssKey   []byte              // key for all types; nil means DefaultRssKey
	TypeKeys map[HashType][]byte // per-type key override
	NRxqs    int                 // number of configured receive queues
}

func (cfg Config) rssKey(t HashType) []byte {
	if key := cfg.TypeKeys[t]; len(key) > 0 {
		return key
	}
	if len(cfg.RssKey) > 0 {
		return cfg.RssKey
	}
	return DefaultRssKey
}

// SetState indicates HashRxqSet state.
type SetState int

// SetState values.
const (
	SetEmpty SetState = iota
	SetBuilding
	SetReady
)

func (s SetState) String() string {
	switch s {
	case SetEmpty:
		return "empty"
	case SetBuilding:
		return "building"
	case SetReady:
		return "ready"
	}
	return "unknown"
}

// allocHashRxqs allocates the hash queue array.
var allocHashRxqs = func(n int) ([]*HashRxq, error) {
	return make([]*HashRxq, n), nil
}

// HashRxqSet is the set of indirection tables and hashing queue pairs of a port.
type HashRxqSet struct {
	ctx       verbs.Context
	logger    *zap.Logger
	cfg       Config
	state     SetState
	indTables []verbs.IndTable
	hashRxqs  []*HashRxq
	vlans     []uint16 // VLAN filter of attached rules
}

// NewHashRxqSet creates an empty HashRxqSet.
func NewHashRxqSet(ctx verbs.Context) *HashRxqSet {
	return &HashRxqSet{
		ctx:    ctx,
		logger: logger.With(zap.String("dev", ctx.Name())),
	}
}

// State returns current state.
func (set *HashRxqSet) State() SetState {
	return set.state
}

// Config returns the configuration of the last Create.
func (set *HashRxqSet) Config() Config {
	return set.cfg
}

// HashRxqs returns hash queues.
func (set *HashRxqSet) HashRxqs() []*HashRxq {
	return set.hashRxqs
}

// CountIndTables returns number of indirection tables.
func (set *HashRxqSet) CountIndTables() int {
	return len(set.indTables)
}

// Create creates indirection tables and hash queues over wqs, the expanded reta.
// It is all-or-nothing: on failure, every created object is destroyed.
func (set *HashRxqSet) Create(wqs []verbs.WQ, cfg Config) (e error) {
	if set.state != SetEmpty {
		return fmt.Errorf("hash queue set is %s: %w", set.state, verbs.ErrInvalidArgument)
	}
	if len(wqs) == 0 {
		return fmt.Errorf("no receive queue: %w", verbs.ErrInvalidArgument)
	}
	if cfg.NRxqs <= 0 {
		cfg.NRxqs = len(wqs)
	}
	inits := MakeIndTableInit(cfg.RssHf, cfg.NRxqs)
	if len(inits) == 0 {
		set.logger.Error("all hash queue types have been filtered out, indirection table cannot be created")
		return fmt.Errorf("nothing to classify: %w", verbs.ErrConfiguration)
	}

	nHashRxqs := 0
	for _, tpl := range inits {
		nHashRxqs += tpl.HashTypesN
	}
	set.logger.Debug("allocating hash queues",
		zap.Int("hash-rxqs", nHashRxqs),
		zap.Int("wqs", len(wqs)),
		zap.Int("ind-tables", len(inits)),
	)

	set.state, set.cfg = SetBuilding, cfg
	defer func() {
		if e != nil {
			set.rollback()
		}
	}()

	for i, tpl := range inits {
		logSize := ringbuffer.Log2Below(tpl.TableSize(len(wqs)))
		table, e := set.ctx.CreateRwqIndTable(verbs.IndTableInitAttr{
			LogSize: logSize,
			WQs:     wqs[:1<<logSize],
		})
		if e != nil {
			set.logger.Error("indirection table creation failed", zap.Int("table", i), zap.Error(e))
			return verbs.Wrap("CreateRwqIndTable", e)
		}
		set.indTables = append(set.indTables, table)
	}

	hashRxqs, e := allocHashRxqs(nHashRxqs)
	if e != nil {
		set.logger.Error("cannot allocate hash queues container", zap.Error(e))
		return fmt.Errorf("hash queues container: %w", errors.Join(verbs.ErrOutOfMemory, e))
	}
	set.hashRxqs = hashRxqs[:0]

	for j, tpl := range inits {
		for k := range tpl.HashTypesN {
			t := tpl.HashTypeAt(k)
			set.logger.Debug("creating hash queue",
				zap.Int("table", j),
				zap.Int("index", len(set.hashRxqs)),
				zap.Stringer("type", t),
			)
			qp, e := set.ctx.CreateQP(cfg.PD, verbs.QPInitAttr{
				IndTable:   set.indTables[j],
				HashFunc:   verbs.RxHashFuncToeplitz,
				HashKey:    cfg.rssKey(t),
				HashFields: t.HashFields(),
				Port:       cfg.Port,
			})
			if e != nil {
				set.logger.Error("hash queue creation failed", zap.Stringer("type", t), zap.Error(e))
				return verbs.Wrap("CreateQP", e)
			}
			set.hashRxqs = append(set.hashRxqs, newHashRxq(set, t, qp))
		}
	}

	set.state = SetReady
	return nil
}

func (set *HashRxqSet) rollback() {
	for i := len(set.hashRxqs) - 1; i >= 0; i-- {
		if e := set.hashRxqs[i].qp.Close(); e != nil {
			set.logger.Warn("QP destroy error", zap.Error(e))
		}
	}
	for i := len(set.indTables) - 1; i >= 0; i-- {
		if e := set.indTables[i].Close(); e != nil {
			set.logger.Warn("indirection table destroy error", zap.Error(e))
		}
	}
	set.hashRxqs, set.indTables, set.vlans = nil, nil, nil
	set.state = SetEmpty
}

// Destroy destroys hash queues and indirection tables.
// It panics if any steering rule is still attached to a hash queue.
func (set *HashRxqSet) Destroy() {
	if set.state == SetEmpty {
		return
	}
	set.logger.Debug("destroying hash queues", zap.Int("hash-rxqs", len(set.hashRxqs)))
	for _, hrxq := range set.hashRxqs {
		if n := hrxq.CountFlows(); n > 0 {
			set.logger.Panic("hash queue has attached flows", zap.Stringer("type", hrxq.Type()), zap.Int("flows", n))
		}
	}
	set.rollback()
}

// HashRxq is a hashing queue pair of one classification type.
type HashRxq struct {
	set          *HashRxqSet
	typ          HashType
	qp           verbs.QP
	specialFlows [NSpecialFlowTypes]map[int]verbs.Flow // vlan index => flow
	macFlows     map[macFlowKey]verbs.Flow
}

type macFlowKey struct {
	mac  [6]byte
	vlan int // index in VLAN filter
}

func newHashRxq(set *HashRxqSet, t HashType, qp verbs.QP) *HashRxq {
	hrxq := &HashRxq{
		set:      set,
		typ:      t,
		qp:       qp,
		macFlows: map[macFlowKey]verbs.Flow{},
	}
	for i := range hrxq.specialFlows {
		hrxq.specialFlows[i] = map[int]verbs.Flow{}
	}
	return hrxq
}

// Type returns classification type.
func (hrxq *HashRxq) Type() HashType {
	return hrxq.typ
}

// QP returns the queue pair.
func (hrxq *HashRxq) QP() verbs.QP {
	return hrxq.qp
}

// CountFlows returns number of attached steering rules.
func (hrxq *HashRxq) CountFlows() (n int) {
	for _, m := range hrxq.specialFlows {
		n += len(m)
	}
	return n + len(hrxq.macFlows)
}

// CountSpecialFlows returns number of attached steering rules of a special flow type.
func (hrxq *HashRxq) CountSpecialFlows(ft FlowType) int {
	return len(hrxq.specialFlows[ft])
}

// CountMacFlows returns number of attached unicast MAC steering rules.
func (hrxq *HashRxq) CountMacFlows() int {
	return len(hrxq.macFlows)
}
