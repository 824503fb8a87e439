package intrvec_test

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/usnistgov/verbsrx/dpdk/verbs"
	"github.com/usnistgov/verbsrx/intrvec"
)

type eventSource int

func (fd eventSource) EventFd() (int, bool) {
	return int(fd), fd >= 0
}

func makeSources(t testing.TB, withFd ...bool) (list []intrvec.EventSource) {
	_, require := makeAR(t)
	for _, ok := range withFd {
		if !ok {
			list = append(list, eventSource(-1))
			continue
		}
		fd, e := unix.Eventfd(0, unix.EFD_CLOEXEC)
		require.NoError(e)
		t.Cleanup(func() { unix.Close(fd) })
		list = append(list, eventSource(fd))
	}
	return list
}

func TestRebuild(t *testing.T) {
	assert, require := makeAR(t)

	sources := makeSources(t, true, false, true, true)
	var table intrvec.Table
	require.NoError(table.Rebuild(sources, 4))
	assert.True(table.Enabled())
	assert.Equal([]int{1, 5, 2, 3}, table.Vec)
	assert.Equal(3, table.NbEfd)
	require.Len(table.Efds, 3)
	for i, src := range []intrvec.EventSource{sources[0], sources[2], sources[3]} {
		fd, _ := src.EventFd()
		assert.Equal(fd, table.Efds[i])
		flags, e := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
		require.NoError(e)
		assert.NotZero(flags & unix.O_NONBLOCK)
	}

	require.NoError(table.Rebuild(makeSources(t, false, false), 0))
	assert.False(table.Enabled())
	assert.Equal(0, table.NbEfd)
	assert.Equal(intrvec.DefaultCapacity, table.Capacity)
}

func TestRebuildOverflow(t *testing.T) {
	assert, require := makeAR(t)

	var table intrvec.Table
	require.NoError(table.Rebuild(makeSources(t, true, true), 2))
	assert.True(table.Enabled())

	e := table.Rebuild(makeSources(t, true, false, true, true), 2)
	assert.ErrorIs(e, verbs.ErrConfiguration)
	assert.False(table.Enabled())
	assert.Nil(table.Vec)
	assert.Nil(table.Efds)
	assert.Equal(0, table.NbEfd)
}

func TestRebuildBadFd(t *testing.T) {
	assert, _ := makeAR(t)

	var table intrvec.Table
	e := table.Rebuild([]intrvec.EventSource{eventSource(1 << 20)}, 4)
	assert.ErrorIs(e, unix.EBADF)
	assert.False(table.Enabled())
}
