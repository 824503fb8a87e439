package eal_test

import (
	"encoding/json"
	"errors"
	"syscall"
	"testing"

	"github.com/usnistgov/verbsrx/core/testenv"
	"github.com/usnistgov/verbsrx/dpdk/eal"
)

func TestErrno(t *testing.T) {
	assert, _ := testenv.MakeAR(t)

	assert.NoError(eal.MakeErrno(0))
	assert.Equal(eal.ENOMEM, eal.MakeErrno(-12))
	assert.Equal(eal.EINVAL, eal.MakeErrno(int32(22)))

	var e error = eal.EOVERFLOW
	assert.True(errors.Is(e, syscall.EOVERFLOW))
	assert.False(errors.Is(e, syscall.ENOMEM))
	assert.Contains(e.Error(), "EOVERFLOW")
}

func TestNumaSocket(t *testing.T) {
	assert, require := testenv.MakeAR(t)

	var anySocket eal.NumaSocket
	assert.True(anySocket.IsAny())
	assert.Equal("any", anySocket.String())

	s1 := eal.NumaSocketFromID(1)
	assert.False(s1.IsAny())
	assert.Equal(1, s1.ID())
	assert.True(s1.Match(anySocket))
	assert.False(s1.Match(eal.NumaSocketFromID(0)))
	assert.True(eal.NumaSocketFromID(-1).IsAny())
	assert.True(eal.NumaSocketFromID(eal.MaxNumaNodes).IsAny())

	j, e := json.Marshal([]eal.NumaSocket{anySocket, s1})
	require.NoError(e)
	assert.Equal("[null,1]", string(j))

	var decoded []eal.NumaSocket
	require.NoError(json.Unmarshal(j, &decoded))
	assert.Equal([]eal.NumaSocket{anySocket, s1}, decoded)

	require.NoError(json.Unmarshal([]byte(`["any","3",2]`), &decoded))
	assert.Equal([]eal.NumaSocket{anySocket, eal.NumaSocketFromID(3), eal.NumaSocketFromID(2)}, decoded)
	assert.Error(json.Unmarshal([]byte(`[-1]`), &decoded))
	assert.Error(json.Unmarshal([]byte(`["x"]`), &decoded))
	assert.Error(json.Unmarshal([]byte(`[1.5]`), &decoded))
	assert.Error(json.Unmarshal([]byte(`[true]`), &decoded))
}

func TestAllocObjectID(t *testing.T) {
	assert, _ := testenv.MakeAR(t)
	a, b := eal.AllocObjectID("test"), eal.AllocObjectID("test")
	assert.Len(a, 17)
	assert.NotEqual(a, b)
}
