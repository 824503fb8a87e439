package rxq_test

import (
	"testing"

	"go.uber.org/goleak"
	"go4.org/must"

	"github.com/usnistgov/verbsrx/core/testenv"
	"github.com/usnistgov/verbsrx/dpdk/eal"
	"github.com/usnistgov/verbsrx/dpdk/pktmbuf"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
	"github.com/usnistgov/verbsrx/dpdk/verbs/mockverbs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var makeAR = testenv.MakeAR

type fixture struct {
	Ctx  *mockverbs.Context
	PD   verbs.PD
	Pool *pktmbuf.Pool
}

func newFixture(t testing.TB, poolCfg pktmbuf.PoolConfig) *fixture {
	_, require := makeAR(t)
	f := &fixture{Ctx: mockverbs.New("mock0")}
	var e error
	f.PD, e = f.Ctx.AllocPD()
	require.NoError(e)
	f.Pool, e = pktmbuf.NewPool(poolCfg, eal.NumaSocket{})
	require.NoError(e)
	t.Cleanup(func() {
		must.Close(f.Pool)
		must.Close(f.PD)
	})
	return f
}
