package rss

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strings"
)

// HashFunction is a bitmask of requested RSS hash functions.
// Bit positions are shared with DPDK ETH_RSS_* flags.
type HashFunction uint64

// HashFunction bits.
const (
	RssIPv4           HashFunction = 1 << 2
	RssFragIPv4       HashFunction = 1 << 3
	RssNonfragIPv4TCP HashFunction = 1 << 4
	RssNonfragIPv4UDP HashFunction = 1 << 5
	RssIPv6           HashFunction = 1 << 8
	RssFragIPv6       HashFunction = 1 << 9
	RssNonfragIPv6TCP HashFunction = 1 << 10
	RssNonfragIPv6UDP HashFunction = 1 << 11

	RssIP  = RssIPv4 | RssFragIPv4 | RssIPv6 | RssFragIPv6
	RssTCP = RssNonfragIPv4TCP | RssNonfragIPv6TCP
	RssUDP = RssNonfragIPv4UDP | RssNonfragIPv6UDP

	DefaultHashFunction = RssIP | RssTCP | RssUDP
)

var hashFunctionNames = map[HashFunction]string{
	RssIPv4:           "ipv4",
	RssFragIPv4:       "frag-ipv4",
	RssNonfragIPv4TCP: "tcp-ipv4",
	RssNonfragIPv4UDP: "udp-ipv4",
	RssIPv6:           "ipv6",
	RssFragIPv6:       "frag-ipv6",
	RssNonfragIPv6TCP: "tcp-ipv6",
	RssNonfragIPv6UDP: "udp-ipv6",
}

// Names returns names of known bits, in bit order.
func (hf HashFunction) Names() (names []string) {
	for v := uint64(hf); v != 0; v &= v - 1 {
		bit := HashFunction(1) << bits.TrailingZeros64(v)
		if name, ok := hashFunctionNames[bit]; ok {
			names = append(names, name)
		} else {
			names = append(names, fmt.Sprintf("%#x", uint64(bit)))
		}
	}
	return names
}

func (hf HashFunction) String() string {
	if hf == 0 {
		return "none"
	}
	return strings.Join(hf.Names(), "|")
}

// ParseHashFunction parses a name, or a list of names separated by "|".
func ParseHashFunction(s string) (hf HashFunction, e error) {
	for _, token := range strings.Split(s, "|") {
		token = strings.TrimSpace(token)
		switch token {
		case "", "none":
			continue
		case "ip":
			hf |= RssIP
			continue
		case "tcp":
			hf |= RssTCP
			continue
		case "udp":
			hf |= RssUDP
			continue
		}
		found := false
		for bit, name := range hashFunctionNames {
			if name == token {
				hf |= bit
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown RSS hash function %q", token)
		}
	}
	return hf, nil
}

// MarshalJSON implements json.Marshaler interface.
func (hf HashFunction) MarshalJSON() ([]byte, error) {
	names := hf.Names()
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

// UnmarshalJSON implements json.Unmarshaler interface.
// It accepts a number, a string, or a list of strings.
func (hf *HashFunction) UnmarshalJSON(data []byte) error {
	var n uint64
	if e := json.Unmarshal(data, &n); e == nil {
		*hf = HashFunction(n)
		return nil
	}

	var list []string
	if e := json.Unmarshal(data, &list); e != nil {
		var s string
		if e := json.Unmarshal(data, &s); e != nil {
			return fmt.Errorf("RSS hash function must be number, string, or list: %w", e)
		}
		list = []string{s}
	}

	*hf = 0
	for _, s := range list {
		v, e := ParseHashFunction(s)
		if e != nil {
			return e
		}
		*hf |= v
	}
	return nil
}
