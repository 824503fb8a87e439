package rss_test

import (
	"errors"
	"testing"

	"github.com/usnistgov/verbsrx/dpdk/eal"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
	"github.com/usnistgov/verbsrx/dpdk/verbs/mockverbs"
	"github.com/usnistgov/verbsrx/rss"
)

func TestHashRxqSetExample(t *testing.T) {
	assert, require := makeAR(t)
	f := newFixture(t, 4)

	set := rss.NewHashRxqSet(f.Ctx)
	assert.Equal(rss.SetEmpty, set.State())
	e := set.Create(f.WQs, rss.Config{PD: f.PD, RssHf: rss.RssNonfragIPv4TCP | rss.RssNonfragIPv4UDP})
	require.NoError(e)
	assert.Equal(rss.SetReady, set.State())

	assert.Equal(2, set.CountIndTables())
	assert.Equal(2, f.Ctx.Live(mockverbs.KindIndTable))
	assert.Equal(3, f.Ctx.Live(mockverbs.KindQP))
	require.Len(set.HashRxqs(), 3)
	types := []rss.HashType{}
	for _, hrxq := range set.HashRxqs() {
		types = append(types, hrxq.Type())
		qp := hrxq.QP().(*mockverbs.QP)
		assert.Equal(rss.DefaultRssKey, qp.Attr.HashKey)
		assert.Equal(verbs.RxHashFuncToeplitz, qp.Attr.HashFunc)
		assert.Equal(hrxq.Type().HashFields(), qp.Attr.HashFields)
		ind := qp.Attr.IndTable.(*mockverbs.IndTable)
		if hrxq.Type() == rss.HashEth {
			assert.Equal(0, ind.LogSize)
		} else {
			assert.Equal(2, ind.LogSize)
			assert.Equal(f.WQs, ind.WQs)
		}
	}
	assert.Equal([]rss.HashType{rss.HashTCPv4, rss.HashUDPv4, rss.HashEth}, types)

	e = set.Create(f.WQs, rss.Config{PD: f.PD})
	assert.ErrorIs(e, verbs.ErrInvalidArgument)

	set.Destroy()
	assert.Equal(rss.SetEmpty, set.State())
	assert.Equal(0, f.Ctx.Live(mockverbs.KindIndTable))
	assert.Equal(0, f.Ctx.Live(mockverbs.KindQP))
	set.Destroy()
}

func TestHashRxqSetKeys(t *testing.T) {
	assert, require := makeAR(t)
	f := newFixture(t, 3)

	key := make([]byte, 40)
	key[0] = 0xAA
	typeKey := make([]byte, 52)
	typeKey[0] = 0xBB

	set := rss.NewHashRxqSet(f.Ctx)
	require.NoError(set.Create(f.WQs, rss.Config{
		PD:       f.PD,
		Port:     1,
		RssHf:    rss.DefaultHashFunction,
		RssKey:   key,
		TypeKeys: map[rss.HashType][]byte{rss.HashUDPv6: typeKey},
	}))
	defer set.Destroy()

	require.Len(set.HashRxqs(), 7)
	for _, hrxq := range set.HashRxqs() {
		qp := hrxq.QP().(*mockverbs.QP)
		assert.EqualValues(1, qp.Attr.Port)
		if hrxq.Type() == rss.HashUDPv6 {
			assert.Equal(typeKey, qp.Attr.HashKey)
		} else {
			assert.Equal(key, qp.Attr.HashKey)
		}
		if hrxq.Type() != rss.HashEth {
			ind := qp.Attr.IndTable.(*mockverbs.IndTable)
			assert.Equal(1, ind.LogSize, "3 WQs rounded down to a table of 2")
			assert.Equal(f.WQs[:2], ind.WQs)
		}
	}
}

func TestHashRxqSetTableSize(t *testing.T) {
	assert, require := makeAR(t)
	f := newFixture(t, 6)

	set := rss.NewHashRxqSet(f.Ctx)
	require.NoError(set.Create(f.WQs, rss.Config{PD: f.PD, RssHf: rss.RssNonfragIPv4TCP}))
	defer set.Destroy()

	for _, hrxq := range set.HashRxqs() {
		ind := hrxq.QP().(*mockverbs.QP).Attr.IndTable.(*mockverbs.IndTable)
		switch hrxq.Type() {
		case rss.HashEth:
			assert.Equal(0, ind.LogSize)
			assert.Equal(f.WQs[:1], ind.WQs)
		default:
			assert.Equal(2, ind.LogSize, "6 WQs rounded down to a table of 4")
			assert.Equal(f.WQs[:4], ind.WQs)
		}
	}
}

func TestHashRxqSetSingleQueue(t *testing.T) {
	assert, require := makeAR(t)
	f := newFixture(t, 1)

	set := rss.NewHashRxqSet(f.Ctx)
	require.NoError(set.Create(f.WQs, rss.Config{PD: f.PD, RssHf: rss.DefaultHashFunction}))
	require.Len(set.HashRxqs(), 1)
	assert.Equal(rss.HashEth, set.HashRxqs()[0].Type())
	set.Destroy()

	assert.ErrorIs(set.Create(nil, rss.Config{PD: f.PD}), verbs.ErrInvalidArgument)
}

func TestHashRxqSetRollback(t *testing.T) {
	assert, require := makeAR(t)
	f := newFixture(t, 4)
	cfg := rss.Config{PD: f.PD, RssHf: rss.DefaultHashFunction}

	check := func(e error, name string) {
		assert.Error(e, name)
		assert.Equal(0, f.Ctx.Live(mockverbs.KindIndTable), name)
		assert.Equal(0, f.Ctx.Live(mockverbs.KindQP), name)
	}

	for skip := range 2 {
		set := rss.NewHashRxqSet(f.Ctx)
		f.Ctx.FailAt(mockverbs.OpCreateIndTable, skip, nil)
		e := set.Create(f.WQs, cfg)
		check(e, "indtable")
		assert.ErrorIs(e, eal.ENOMEM)
		assert.Equal(rss.SetEmpty, set.State())
		assert.Empty(set.HashRxqs())
	}

	func() {
		errAlloc := errors.New("calloc")
		defer rss.SetAllocHashRxqs(func(int) ([]*rss.HashRxq, error) { return nil, errAlloc })()
		set := rss.NewHashRxqSet(f.Ctx)
		e := set.Create(f.WQs, cfg)
		check(e, "array")
		assert.ErrorIs(e, verbs.ErrOutOfMemory)
		assert.ErrorIs(e, errAlloc)
	}()

	for skip := range 7 {
		set := rss.NewHashRxqSet(f.Ctx)
		f.Ctx.FailAt(mockverbs.OpCreateQP, skip, eal.EBUSY)
		e := set.Create(f.WQs, cfg)
		check(e, "qp")
		assert.ErrorIs(e, eal.EBUSY)
	}

	set := rss.NewHashRxqSet(f.Ctx)
	require.NoError(set.Create(f.WQs, cfg))
	assert.Equal(7, f.Ctx.Live(mockverbs.KindQP))
	set.Destroy()
}

func TestHashRxqSetDestroyWithFlows(t *testing.T) {
	assert, require := makeAR(t)
	f := newFixture(t, 2)

	set := rss.NewHashRxqSet(f.Ctx)
	require.NoError(set.Create(f.WQs, rss.Config{PD: f.PD, RssHf: rss.RssIP}))
	require.NoError(set.EnableSpecialFlow(rss.FlowPromisc, nil))
	assert.Panics(set.Destroy)
	assert.Equal(rss.SetReady, set.State())

	set.DisableAllFlows()
	assert.NotPanics(set.Destroy)
	assert.Equal(0, f.Ctx.Live(mockverbs.KindFlow))
}
