package rss_test

import (
	"net"
	"testing"

	"github.com/gopacket/gopacket/layers"

	"github.com/usnistgov/verbsrx/dpdk/verbs"
	"github.com/usnistgov/verbsrx/dpdk/verbs/mockverbs"
	"github.com/usnistgov/verbsrx/rss"
)

func TestAllowFlowType(t *testing.T) {
	assert, _ := makeAR(t)

	all := []rss.FlowType{rss.FlowPromisc, rss.FlowAllMulti, rss.FlowBroadcast, rss.FlowIPv6Multi, rss.FlowMAC}
	allowed := func(promisc, allMulti bool) (list []rss.FlowType) {
		for _, ft := range all {
			if rss.AllowFlowType(promisc, allMulti, ft) {
				list = append(list, ft)
			}
		}
		return
	}

	assert.Equal([]rss.FlowType{rss.FlowPromisc}, allowed(true, false))
	assert.Equal([]rss.FlowType{rss.FlowPromisc}, allowed(true, true))
	assert.Equal([]rss.FlowType{rss.FlowAllMulti, rss.FlowMAC}, allowed(false, true))
	assert.Equal([]rss.FlowType{rss.FlowBroadcast, rss.FlowIPv6Multi, rss.FlowMAC}, allowed(false, false))
	assert.False(rss.AllowFlowType(false, false, rss.FlowType(9)))
}

func TestRehash(t *testing.T) {
	assert, require := makeAR(t)
	f := newFixture(t, 4)

	set := rss.NewHashRxqSet(f.Ctx)
	require.NoError(set.Create(f.WQs, rss.Config{PD: f.PD, RssHf: rss.DefaultHashFunction}))
	defer set.Destroy()
	defer set.DisableAllFlows()

	mac := net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	cfg := rss.FlowConfig{MacAddrs: []net.HardwareAddr{mac, make(net.HardwareAddr, 6)}}
	require.NoError(set.Rehash(cfg))
	assert.Equal(5+3+7, set.CountFlows())
	assert.Equal(5+3+7, f.Ctx.Live(mockverbs.KindFlow))

	require.NoError(set.Rehash(cfg))
	assert.Equal(5+3+7, set.CountFlows(), "idempotent")

	cfg.AllMulti = true
	require.NoError(set.Rehash(cfg))
	assert.Equal(5+7, set.CountFlows())

	cfg.Promisc = true
	require.NoError(set.Rehash(cfg))
	assert.Equal(7, set.CountFlows())
	for _, hrxq := range set.HashRxqs() {
		assert.Equal(1, hrxq.CountSpecialFlows(rss.FlowPromisc))
		assert.Equal(0, hrxq.CountMacFlows())
	}
	for _, flow := range f.Ctx.Flows() {
		val, mask, ok := flow.EthFilter()
		require.True(ok)
		assert.Equal(make(net.HardwareAddr, 6), val.Dst)
		assert.Equal(make(net.HardwareAddr, 6), mask.Dst)
	}

	set.DisableAllFlows()
	assert.Equal(0, f.Ctx.Live(mockverbs.KindFlow))
}

func TestRehashVlan(t *testing.T) {
	assert, require := makeAR(t)
	f := newFixture(t, 4)

	set := rss.NewHashRxqSet(f.Ctx)
	require.NoError(set.Create(f.WQs, rss.Config{PD: f.PD, Port: 1, RssHf: rss.DefaultHashFunction}))
	defer set.Destroy()
	defer set.DisableAllFlows()

	mac := net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	require.NoError(set.Rehash(rss.FlowConfig{
		MacAddrs: []net.HardwareAddr{mac},
		Vlans:    []uint16{10, 20},
	}))
	assert.Equal(2*(5+3+7), set.CountFlows())

	nBroadcastVlan20 := 0
	for _, flow := range f.Ctx.Flows() {
		assert.EqualValues(1, flow.Attr.Port)
		val, mask, ok := flow.EthFilter()
		require.True(ok)
		assert.EqualValues(0x0FFF, mask.VlanTag)
		assert.Contains([]uint16{10, 20}, val.VlanTag)
		if val.Dst.String() == layers.EthernetBroadcast.String() && val.VlanTag == 20 {
			nBroadcastVlan20++
		}
	}
	assert.Equal(5, nBroadcastVlan20)

	require.NoError(set.Rehash(rss.FlowConfig{AllMulti: true, Vlans: []uint16{10, 20}}))
	assert.Equal(5, set.CountFlows(), "allmulti is not per VLAN, MAC list empty")
	for _, flow := range f.Ctx.Flows() {
		val, mask, _ := flow.EthFilter()
		assert.Equal(net.HardwareAddr{0x01, 0, 0, 0, 0, 0}, val.Dst)
		assert.Equal(net.HardwareAddr{0x01, 0, 0, 0, 0, 0}, mask.Dst)
		assert.Zero(mask.VlanTag)
	}
}

func TestEnableSpecialFlowRollback(t *testing.T) {
	assert, require := makeAR(t)
	f := newFixture(t, 4)

	set := rss.NewHashRxqSet(f.Ctx)
	require.NoError(set.Create(f.WQs, rss.Config{PD: f.PD, RssHf: rss.DefaultHashFunction}))
	defer set.Destroy()

	f.Ctx.FailAt(mockverbs.OpCreateFlow, 4, nil)
	e := set.EnableSpecialFlow(rss.FlowBroadcast, []uint16{1, 2})
	assert.Error(e)
	assert.Equal(0, f.Ctx.Live(mockverbs.KindFlow))

	f.Ctx.FailAt(mockverbs.OpCreateFlow, 9, nil)
	e = set.EnableMacFlows([]net.HardwareAddr{{0x02, 0, 0, 0, 0, 1}, {0x02, 0, 0, 0, 0, 2}}, nil)
	assert.Error(e)
	assert.Equal(0, f.Ctx.Live(mockverbs.KindFlow))

	assert.ErrorIs(set.EnableSpecialFlow(rss.FlowMAC, nil), verbs.ErrInvalidArgument)
	assert.Equal(rss.MakeHashTypes(rss.HashUDPv6, rss.HashIPv6, rss.HashEth), rss.SpecialFlowHashTypes(rss.FlowIPv6Multi))
	assert.Zero(rss.SpecialFlowHashTypes(rss.FlowMAC))
}
