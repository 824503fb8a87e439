// Package macaddr provides MAC-48 address helpers.
package macaddr

import (
	"bytes"
	"math/rand/v2"
	"net"
)

// Equal determines whether two HardwareAddrs are the same.
func Equal(a, b net.HardwareAddr) bool {
	return bytes.Equal([]byte(a), []byte(b))
}

// IsValid determines whether the HardwareAddr is a MAC-48 address.
func IsValid(a net.HardwareAddr) bool {
	return len(a) == 6
}

// IsUnicast determines whether the HardwareAddr is a non-zero unicast MAC-48 address.
func IsUnicast(a net.HardwareAddr) bool {
	return IsValid(a) && (a[0]&0x01) == 0 && (a[0]|a[1]|a[2]|a[3]|a[4]|a[5]) != 0
}

// IsMulticast determines whether the HardwareAddr is a multicast MAC-48 address.
func IsMulticast(a net.HardwareAddr) bool {
	return IsValid(a) && (a[0]&0x01) != 0
}

// Mask returns the bitwise AND of a MAC-48 address and a mask.
// Missing octets in either input are treated as zero.
func Mask(a, mask net.HardwareAddr) (m net.HardwareAddr) {
	m = make(net.HardwareAddr, 6)
	for i := range min(len(a), len(mask), len(m)) {
		m[i] = a[i] & mask[i]
	}
	return m
}

// MakeRandom generates a random locally administered MAC-48 address.
func MakeRandom(multicast bool) (a net.HardwareAddr) {
	a = make(net.HardwareAddr, 6)
	for i := range a {
		a[i] = byte(rand.Uint32())
	}
	a[0] |= 0x02
	if multicast {
		a[0] |= 0x01
	} else {
		a[0] &^= 0x01
	}
	return a
}
