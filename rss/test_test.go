package rss_test

import (
	"testing"

	"go.uber.org/goleak"
	"go4.org/must"

	"github.com/usnistgov/verbsrx/core/testenv"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
	"github.com/usnistgov/verbsrx/dpdk/verbs/mockverbs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var makeAR = testenv.MakeAR

type fixture struct {
	t   testing.TB
	Ctx *mockverbs.Context
	PD  verbs.PD
	CQ  verbs.CQ
	WQs []verbs.WQ
}

func newFixture(t testing.TB, nWQs int) *fixture {
	_, require := makeAR(t)
	f := &fixture{t: t, Ctx: mockverbs.New("mock0")}
	var e error
	f.PD, e = f.Ctx.AllocPD()
	require.NoError(e)
	f.CQ, e = f.Ctx.CreateCQ(verbs.CQInitAttr{Cqe: 63})
	require.NoError(e)
	for range nWQs {
		wq, e := f.Ctx.CreateWQ(f.PD, &verbs.WQInitAttr{MaxWr: 64, MaxSge: 1, CQ: f.CQ})
		require.NoError(e)
		f.WQs = append(f.WQs, wq)
	}
	t.Cleanup(f.close)
	return f
}

func (f *fixture) close() {
	for _, wq := range f.WQs {
		must.Close(wq)
	}
	must.Close(f.CQ)
	must.Close(f.PD)
}
