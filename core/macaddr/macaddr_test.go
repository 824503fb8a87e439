package macaddr_test

import (
	"encoding/json"
	"flag"
	"net"
	"testing"

	"github.com/usnistgov/verbsrx/core/macaddr"
	"github.com/usnistgov/verbsrx/core/testenv"
)

var makeAR = testenv.MakeAR

func TestMacAddr(t *testing.T) {
	assert, _ := makeAR(t)

	macZero, _ := net.ParseMAC("00:00:00:00:00:00")
	uA1, _ := net.ParseMAC("02:00:00:00:00:A1")
	uA2, _ := net.ParseMAC("02:00:00:00:00:A2")
	mA1, _ := net.ParseMAC("03:00:00:00:00:A1")
	mac64, _ := net.ParseMAC("02:00:00:00:00:00:00:64")

	assert.True(macaddr.Equal(uA1, uA1))
	assert.False(macaddr.Equal(uA1, uA2))
	assert.False(macaddr.Equal(uA1, mA1))

	assert.True(macaddr.IsValid(macZero))
	assert.True(macaddr.IsValid(uA1))
	assert.True(macaddr.IsValid(mA1))
	assert.False(macaddr.IsValid(mac64))

	assert.False(macaddr.IsUnicast(macZero))
	assert.True(macaddr.IsUnicast(uA1))
	assert.False(macaddr.IsUnicast(mA1))
	assert.False(macaddr.IsUnicast(mac64))

	assert.False(macaddr.IsMulticast(macZero))
	assert.False(macaddr.IsMulticast(uA1))
	assert.True(macaddr.IsMulticast(mA1))
	assert.False(macaddr.IsMulticast(mac64))

	assert.True(macaddr.IsUnicast(macaddr.MakeRandom(false)))
	assert.True(macaddr.IsMulticast(macaddr.MakeRandom(true)))
}

func TestMask(t *testing.T) {
	assert, _ := makeAR(t)

	a, _ := net.ParseMAC("33:33:FF:00:00:01")
	m, _ := net.ParseMAC("FF:FF:00:00:00:00")
	assert.Equal("33:33:00:00:00:00", macaddr.Mask(a, m).String())
	assert.Equal("00:00:00:00:00:00", macaddr.Mask(a, nil).String())
}

func TestFlag(t *testing.T) {
	assert, _ := makeAR(t)

	var f flag.FlagSet
	var m macaddr.Flag
	f.Var(&m, "m", "")

	assert.True(m.Empty())
	assert.Error(f.Parse([]string{"-m", "x"}))
	assert.NoError(f.Parse([]string{"-m", "02:00:00:00:00:A0"}))
	assert.Equal("02:00:00:00:00:a0", m.String())

	var list []macaddr.Flag
	assert.NoError(json.Unmarshal([]byte(`["02:00:00:00:00:01","02:00:00:00:00:02"]`), &list))
	list = append(list, macaddr.Flag{})
	addrs := macaddr.HardwareAddrs(list)
	assert.Len(addrs, 2)
	j, _ := json.Marshal(list[:2])
	assert.Equal(`["02:00:00:00:00:01","02:00:00:00:00:02"]`, string(j))
}
