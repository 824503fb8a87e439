package ringbuffer_test

import (
	"testing"

	"github.com/usnistgov/verbsrx/core/testenv"
	"github.com/usnistgov/verbsrx/dpdk/ringbuffer"
)

func TestAlignCapacity(t *testing.T) {
	assert, _ := testenv.MakeAR(t)

	assert.Equal(ringbuffer.DefaultCapacity, ringbuffer.AlignCapacity(0))
	assert.Equal(ringbuffer.MinCapacity, ringbuffer.AlignCapacity(1))
	assert.Equal(512, ringbuffer.AlignCapacity(300))
	assert.Equal(1024, ringbuffer.AlignCapacity(1024))
	assert.Equal(ringbuffer.MaxCapacity, ringbuffer.AlignCapacity(1<<20))
	assert.Equal(64, ringbuffer.AlignCapacity(0, 64))
	assert.Equal(128, ringbuffer.AlignCapacity(0, 64, 128))
	assert.Equal(256, ringbuffer.AlignCapacity(1000, 64, 128, 256))
	assert.Panics(func() { ringbuffer.AlignCapacity(0, 3) })
	assert.Panics(func() { ringbuffer.AlignCapacity(0, 1, 2, 3, 4) })
}

func TestLog2(t *testing.T) {
	assert, _ := testenv.MakeAR(t)

	for _, tt := range []struct {
		n, above, below int
	}{
		{0, 0, 0},
		{1, 0, 0},
		{2, 1, 1},
		{3, 2, 1},
		{4, 2, 2},
		{5, 3, 2},
		{1000, 10, 9},
		{1024, 10, 10},
	} {
		assert.Equal(tt.above, ringbuffer.Log2Above(tt.n), "%d", tt.n)
		assert.Equal(tt.below, ringbuffer.Log2Below(tt.n), "%d", tt.n)
	}

	assert.True(ringbuffer.IsPowerOfTwo(1))
	assert.True(ringbuffer.IsPowerOfTwo(64))
	assert.False(ringbuffer.IsPowerOfTwo(0))
	assert.False(ringbuffer.IsPowerOfTwo(96))
}
