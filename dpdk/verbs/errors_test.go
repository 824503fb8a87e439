package verbs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/usnistgov/verbsrx/dpdk/eal"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
)

func TestToErrno(t *testing.T) {
	assert, _ := makeAR(t)

	assert.Equal(eal.Errno(0), verbs.ToErrno(nil))
	assert.Equal(eal.EINVAL, verbs.ToErrno(fmt.Errorf("x: %w", verbs.ErrInvalidArgument)))
	assert.Equal(eal.EINVAL, verbs.ToErrno(verbs.ErrConfiguration))
	assert.Equal(eal.ENOMEM, verbs.ToErrno(verbs.ErrOutOfMemory))
	assert.Equal(eal.EOVERFLOW, verbs.ToErrno(verbs.ErrOverflow))
	assert.Equal(eal.EBUSY, verbs.ToErrno(verbs.Wrap("CreateCQ", eal.EBUSY)))
	assert.Equal(eal.EINVAL, verbs.ToErrno(errors.New("other")))

	assert.Nil(verbs.Wrap("CreateCQ", nil))
	e := verbs.Wrap("CreateCQ", eal.ENOMEM)
	assert.ErrorIs(e, eal.ENOMEM)
	assert.Contains(e.Error(), "CreateCQ")
}
