package rss

import (
	"math"
)

// DefaultRssKey is the default Toeplitz hash key.
var DefaultRssKey = []byte{
	0x2c, 0xc6, 0x81, 0xd1,
	0x5b, 0xdb, 0xf4, 0xf7,
	0xfc, 0xa2, 0x83, 0x19,
	0xdb, 0x1a, 0x3e, 0x94,
	0x6b, 0x9e, 0x38, 0xd9,
	0x2c, 0x9c, 0x03, 0xd1,
	0xad, 0x99, 0x44, 0xa7,
	0xd9, 0x56, 0x3d, 0x59,
	0x06, 0x3c, 0x25, 0xf3,
	0xfc, 0x1f, 0xdc, 0x2a,
}

// IndTableInit is a template of an indirection table and the hash types that share it.
type IndTableInit struct {
	MaxSize    int // unbounded if math.MaxInt
	HashTypes  HashTypes
	HashTypesN int
}

var indTableInitCatalog = []IndTableInit{
	{
		MaxSize:    math.MaxInt,
		HashTypes:  MakeHashTypes(HashTCPv4, HashUDPv4, HashIPv4, HashTCPv6, HashUDPv6, HashIPv6),
		HashTypesN: 6,
	},
	{
		MaxSize:    1,
		HashTypes:  MakeHashTypes(HashEth),
		HashTypesN: 1,
	},
}

// IndTableInits returns a copy of the indirection table template catalog.
func IndTableInits() []IndTableInit {
	return append([]IndTableInit{}, indTableInitCatalog...)
}

// TableSize returns the indirection table size when retaN WQs are available.
func (tpl IndTableInit) TableSize(retaN int) int {
	return min(tpl.MaxSize, retaN)
}

// HashTypeAt returns the pos-th hash type in the template.
func (tpl IndTableInit) HashTypeAt(pos int) HashType {
	for t := range NHashTypes {
		if !tpl.HashTypes.Has(t) {
			continue
		}
		if pos == 0 {
			return t
		}
		pos--
	}
	return HashTypeNone
}

// SupportedHashTypes returns hash types enabled by rssHf when there are nRxqs receive queues.
// The Ethernet catch-all type is always supported; other types require more than one queue.
func SupportedHashTypes(rssHf HashFunction, nRxqs int) (sup HashTypes) {
	sup = MakeHashTypes(HashEth)
	if nRxqs <= 1 {
		return sup
	}
	for t := range NHashTypes {
		if rssHf&t.RssHf() != 0 {
			sup |= MakeHashTypes(t)
		}
	}
	return sup
}

// MakeIndTableInit filters the indirection table template catalog.
// Each template keeps only supported hash types; templates left empty are dropped.
func MakeIndTableInit(rssHf HashFunction, nRxqs int) (list []IndTableInit) {
	sup := SupportedHashTypes(rssHf, nRxqs)
	for _, tpl := range indTableInitCatalog {
		tpl.HashTypes &= sup
		tpl.HashTypesN = tpl.HashTypes.Count()
		if tpl.HashTypesN > 0 {
			list = append(list, tpl)
		}
	}
	return list
}
