package rxq_test

import (
	"testing"

	"github.com/usnistgov/verbsrx/dpdk/verbs"
	"github.com/usnistgov/verbsrx/rxq"
)

func TestComputeGeometry(t *testing.T) {
	assert, require := makeAR(t)

	g, e := rxq.ComputeGeometry(256, 1500, false, 2176, 128)
	require.NoError(e)
	assert.Equal(rxq.Geometry{EltsN: 8, SgesN: 0}, g)
	assert.Equal(256, g.MaxWr())
	assert.Equal(1, g.MaxSge())

	g, e = rxq.ComputeGeometry(256, 9000, false, 2176, 128)
	require.NoError(e, "oversize without scatter only warns")
	assert.Equal(0, g.SgesN)

	g, e = rxq.ComputeGeometry(512, 9000, true, 2176, 128)
	require.NoError(e)
	assert.Equal(rxq.Geometry{EltsN: 9, SgesN: 3}, g)
	assert.Equal(64, g.MaxWr())
	assert.Equal(8, g.MaxSge())

	g, e = rxq.ComputeGeometry(512, 2048, true, 2176, 128)
	require.NoError(e)
	assert.Equal(0, g.SgesN, "exact fit")
	g, e = rxq.ComputeGeometry(512, 2049, true, 2176, 128)
	require.NoError(e)
	assert.Equal(1, g.SgesN)

	_, e = rxq.ComputeGeometry(4, 9000, true, 2176, 128)
	assert.ErrorIs(e, verbs.ErrInvalidArgument)

	_, e = rxq.ComputeGeometry(1024, 10000, true, 256, 128)
	assert.ErrorIs(e, verbs.ErrOverflow)
}

func TestComputeGeometryDivisibility(t *testing.T) {
	assert, _ := makeAR(t)

	for _, maxRxPktLen := range []int{1000, 3000, 5000, 9000, 16000} {
		for desc := 1; desc <= 64; desc++ {
			g, e := rxq.ComputeGeometry(desc, maxRxPktLen, true, 2176, 128)
			if e != nil {
				assert.ErrorIs(e, verbs.ErrInvalidArgument)
				assert.NotZero(desc%(1<<g.SgesN), "%d %d", desc, maxRxPktLen)
			} else {
				assert.Zero(desc%g.MaxSge(), "%d %d", desc, maxRxPktLen)
			}
		}
	}
}
