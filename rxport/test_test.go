package rxport_test

import (
	"testing"

	"go.uber.org/goleak"
	"go4.org/must"

	"github.com/usnistgov/verbsrx/core/testenv"
	"github.com/usnistgov/verbsrx/dpdk/eal"
	"github.com/usnistgov/verbsrx/dpdk/pktmbuf"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
	"github.com/usnistgov/verbsrx/dpdk/verbs/mockverbs"
	"github.com/usnistgov/verbsrx/rxport"
	"github.com/usnistgov/verbsrx/rxq"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var makeAR = testenv.MakeAR

type fixture struct {
	t    testing.TB
	Ctx  *mockverbs.Context
	PD   verbs.PD
	Pool *pktmbuf.Pool
	Port *rxport.Port
}

// newFixture creates a port and sets up every queue with 64 descriptors.
func newFixture(t testing.TB, caps rxq.Capabilities, cfg rxport.Config) *fixture {
	_, require := makeAR(t)
	f := &fixture{t: t, Ctx: mockverbs.New(t.Name())}
	var e error
	f.PD, e = f.Ctx.AllocPD()
	require.NoError(e)
	f.Pool, e = pktmbuf.NewPool(pktmbuf.PoolConfig{Capacity: 2047}, eal.NumaSocket{})
	require.NoError(e)
	t.Cleanup(func() {
		must.Close(f.Pool)
		must.Close(f.PD)
	})

	f.Port, e = rxport.New(t.Name(), f.Ctx, f.PD, caps, cfg)
	require.NoError(e)
	t.Cleanup(func() { must.Close(f.Port) })

	for i := range cfg.NRxQueues {
		require.NoError(f.Port.RxQueueSetup(i, 64, eal.NumaSocket{}, f.Pool))
	}
	return f
}

func (f *fixture) countFlows() (special, mac int) {
	for _, info := range f.Port.HashRxqs() {
		special += info.SpecialFlows
		mac += info.MacFlows
	}
	return
}
