// Package rss builds receive-side scaling classification structures.
//
// A HashType is one traffic class in a static catalog. For each active class,
// HashRxqSet creates a hashing queue pair bound to an indirection table that
// spreads traffic over the receive work queues. Steering rules (flows) direct
// matching frames to these queue pairs.
//
// Types in this package are not thread-safe.
package rss

import (
	"github.com/usnistgov/verbsrx/core/logging"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
)

var logger = logging.New("rss")

// FlowPriorityOffset is added to every flow priority.
// Lower priorities are reserved for flow director rules.
const FlowPriorityOffset = 3

// HashType identifies a classification type.
type HashType int

// HashType values, from most specific to least specific within each family.
const (
	HashTCPv4 HashType = iota
	HashUDPv4
	HashIPv4
	HashTCPv6
	HashUDPv6
	HashIPv6
	HashEth
	NHashTypes

	HashTypeNone HashType = -1
)

// HashTypes is a bitmask of HashType values.
type HashTypes uint32

// Has determines whether t is in the set.
func (m HashTypes) Has(t HashType) bool {
	return t >= 0 && t < NHashTypes && m&(1<<t) != 0
}

// Count returns number of types in the set.
func (m HashTypes) Count() (n int) {
	for t := range NHashTypes {
		if m.Has(t) {
			n++
		}
	}
	return n
}

// Slice returns types in the set, in catalog order.
func (m HashTypes) Slice() (list []HashType) {
	for t := range NHashTypes {
		if m.Has(t) {
			list = append(list, t)
		}
	}
	return list
}

// MakeHashTypes constructs HashTypes from a list.
func MakeHashTypes(list ...HashType) (m HashTypes) {
	for _, t := range list {
		m |= 1 << t
	}
	return m
}

type hashTypeInfo struct {
	name       string
	hashFields verbs.RxHashFields
	rssHf      HashFunction
	priority   int
	spec       verbs.FlowSpecType
	underlayer HashType
}

var hashTypeCatalog = [NHashTypes]hashTypeInfo{
	HashTCPv4: {
		name:       "tcp-ipv4",
		hashFields: verbs.RxHashSrcIPv4 | verbs.RxHashDstIPv4 | verbs.RxHashSrcPortTCP | verbs.RxHashDstPortTCP,
		rssHf:      RssNonfragIPv4TCP,
		priority:   0,
		spec:       verbs.FlowSpecTCP,
		underlayer: HashIPv4,
	},
	HashUDPv4: {
		name:       "udp-ipv4",
		hashFields: verbs.RxHashSrcIPv4 | verbs.RxHashDstIPv4 | verbs.RxHashSrcPortUDP | verbs.RxHashDstPortUDP,
		rssHf:      RssNonfragIPv4UDP,
		priority:   0,
		spec:       verbs.FlowSpecUDP,
		underlayer: HashIPv4,
	},
	HashIPv4: {
		name:       "ipv4",
		hashFields: verbs.RxHashSrcIPv4 | verbs.RxHashDstIPv4,
		rssHf:      RssIPv4 | RssFragIPv4,
		priority:   1,
		spec:       verbs.FlowSpecIPv4,
		underlayer: HashEth,
	},
	HashTCPv6: {
		name:       "tcp-ipv6",
		hashFields: verbs.RxHashSrcIPv6 | verbs.RxHashDstIPv6 | verbs.RxHashSrcPortTCP | verbs.RxHashDstPortTCP,
		rssHf:      RssNonfragIPv6TCP,
		priority:   0,
		spec:       verbs.FlowSpecTCP,
		underlayer: HashIPv6,
	},
	HashUDPv6: {
		name:       "udp-ipv6",
		hashFields: verbs.RxHashSrcIPv6 | verbs.RxHashDstIPv6 | verbs.RxHashSrcPortUDP | verbs.RxHashDstPortUDP,
		rssHf:      RssNonfragIPv6UDP,
		priority:   0,
		spec:       verbs.FlowSpecUDP,
		underlayer: HashIPv6,
	},
	HashIPv6: {
		name:       "ipv6",
		hashFields: verbs.RxHashSrcIPv6 | verbs.RxHashDstIPv6,
		rssHf:      RssIPv6 | RssFragIPv6,
		priority:   1,
		spec:       verbs.FlowSpecIPv6,
		underlayer: HashEth,
	},
	HashEth: {
		name:       "eth",
		priority:   2,
		spec:       verbs.FlowSpecEth,
		underlayer: HashTypeNone,
	},
}

// Valid determines whether t is in the catalog.
func (t HashType) Valid() bool {
	return t >= 0 && t < NHashTypes
}

func (t HashType) String() string {
	if !t.Valid() {
		return "none"
	}
	return hashTypeCatalog[t].name
}

// HashFields returns the packet fields hashed by this type.
func (t HashType) HashFields() verbs.RxHashFields {
	return hashTypeCatalog[t].hashFields
}

// RssHf returns the RSS hash functions that enable this type.
func (t HashType) RssHf() HashFunction {
	return hashTypeCatalog[t].rssHf
}

// Priority returns flow priority, 0 is most specific.
func (t HashType) Priority() int {
	return hashTypeCatalog[t].priority
}

// FlowSpec returns the flow spec type matched at this layer.
func (t HashType) FlowSpec() verbs.FlowSpecType {
	return hashTypeCatalog[t].spec
}

// Underlayer returns the type of the enclosing protocol layer, or HashTypeNone.
func (t HashType) Underlayer() HashType {
	return hashTypeCatalog[t].underlayer
}

// Chain returns this type followed by its underlayers, ending at HashEth.
func (t HashType) Chain() (chain []HashType) {
	for ; t != HashTypeNone; t = t.Underlayer() {
		chain = append(chain, t)
	}
	return chain
}

// FlowAttr writes the steering rule that matches this type into buf.
//
// The returned value is the total size of flow attribute header and specs.
// If buf is shorter, nothing is written, so that a nil buf probes the size.
// Specs are ordered from the outermost layer; the Ethernet spec immediately
// follows the header.
func (t HashType) FlowAttr(buf []byte, port uint8) int {
	chain := t.Chain()
	size := verbs.SizeofFlowAttr
	for _, layer := range chain {
		size += layer.FlowSpec().Size()
	}
	if len(buf) < size {
		return size
	}

	verbs.FlowAttrHeader{
		Type:       verbs.FlowAttrNormal,
		Size:       size,
		Priority:   uint16(t.Priority() + FlowPriorityOffset),
		NumOfSpecs: len(chain),
		Port:       port,
	}.Put(buf)
	offset := size
	for _, layer := range chain {
		offset -= layer.FlowSpec().Size()
		verbs.PutFlowSpec(buf[offset:], layer.FlowSpec())
	}
	return size
}
