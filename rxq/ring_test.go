package rxq_test

import (
	"testing"

	"github.com/usnistgov/verbsrx/rxq"
)

func TestArmDoorbell(t *testing.T) {
	assert, _ := makeAR(t)

	r := rxq.Ring{CqCi: 0xFFFF, CqArmSn: 7, Cqn: 0x1234}
	assert.Equal(uint64(3<<28|0xFFFF)<<32|0x1234, r.ArmDoorbell())

	r = rxq.Ring{Geometry: rxq.Geometry{EltsN: 4}}
	assert.EqualValues(15, r.Mask())
	assert.Equal(0, r.CountRetained())
}
