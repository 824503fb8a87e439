package verbs

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/gopacket/gopacket/layers"
)

// Flow attribute layout.
const (
	SizeofFlowAttr = 20

	FlowAttrNormal = 0
)

// FlowSpecType identifies a flow spec.
type FlowSpecType uint32

// FlowSpecType values.
const (
	FlowSpecEth  FlowSpecType = 0x20
	FlowSpecIPv4 FlowSpecType = 0x30
	FlowSpecIPv6 FlowSpecType = 0x31
	FlowSpecTCP  FlowSpecType = 0x40
	FlowSpecUDP  FlowSpecType = 0x41
)

// Size returns encoded size of the flow spec, or 0 if unknown.
func (t FlowSpecType) Size() int {
	switch t {
	case FlowSpecEth:
		return 40
	case FlowSpecIPv4:
		return 24
	case FlowSpecIPv6:
		return 88
	case FlowSpecTCP, FlowSpecUDP:
		return 16
	}
	return 0
}

func (t FlowSpecType) String() string {
	switch t {
	case FlowSpecEth:
		return "eth"
	case FlowSpecIPv4:
		return "ipv4"
	case FlowSpecIPv6:
		return "ipv6"
	case FlowSpecTCP:
		return "tcp"
	case FlowSpecUDP:
		return "udp"
	}
	return fmt.Sprintf("FlowSpecType(%#x)", uint32(t))
}

// FlowAttrHeader is the header of flow attribute bytes.
type FlowAttrHeader struct {
	Type       uint32
	Size       int // header plus specs
	Priority   uint16
	NumOfSpecs int
	Port       uint8
	Flags      uint32
}

// Put writes the header into b, which must have at least SizeofFlowAttr octets.
func (h FlowAttrHeader) Put(b []byte) {
	_ = b[SizeofFlowAttr-1]
	clear(b[:SizeofFlowAttr])
	binary.NativeEndian.PutUint32(b[4:], h.Type)
	binary.NativeEndian.PutUint16(b[8:], uint16(h.Size))
	binary.NativeEndian.PutUint16(b[10:], h.Priority)
	b[12] = uint8(h.NumOfSpecs)
	b[13] = h.Port
	binary.NativeEndian.PutUint32(b[16:], h.Flags)
}

// PutFlowSpec writes an empty flow spec of type t into b.
// Filter value and mask are zero.
func PutFlowSpec(b []byte, t FlowSpecType) {
	size := t.Size()
	clear(b[:size])
	binary.NativeEndian.PutUint32(b[0:], uint32(t))
	binary.NativeEndian.PutUint16(b[4:], uint16(size))
}

// FlowSpecHeader describes one flow spec within flow attribute bytes.
type FlowSpecHeader struct {
	Type   FlowSpecType
	Size   int
	Offset int // from start of flow attribute
}

// FlowAttr is decoded flow attribute bytes.
type FlowAttr struct {
	FlowAttrHeader
	Specs []FlowSpecHeader
}

// Spec returns the first flow spec of type t.
func (attr FlowAttr) Spec(t FlowSpecType) (spec FlowSpecHeader, ok bool) {
	for _, spec := range attr.Specs {
		if spec.Type == t {
			return spec, true
		}
	}
	return FlowSpecHeader{}, false
}

// ParseFlowAttr decodes flow attribute bytes.
func ParseFlowAttr(b []byte) (attr FlowAttr, e error) {
	if len(b) < SizeofFlowAttr {
		return attr, fmt.Errorf("flow attribute truncated at %d octets", len(b))
	}
	attr.Type = binary.NativeEndian.Uint32(b[4:])
	attr.Size = int(binary.NativeEndian.Uint16(b[8:]))
	attr.Priority = binary.NativeEndian.Uint16(b[10:])
	attr.NumOfSpecs = int(b[12])
	attr.Port = b[13]
	attr.Flags = binary.NativeEndian.Uint32(b[16:])
	if attr.Size > len(b) {
		return attr, fmt.Errorf("flow attribute size %d exceeds buffer %d", attr.Size, len(b))
	}

	off := SizeofFlowAttr
	for i := 0; i < attr.NumOfSpecs; i++ {
		if off+6 > attr.Size {
			return attr, fmt.Errorf("flow spec %d truncated", i)
		}
		spec := FlowSpecHeader{
			Type:   FlowSpecType(binary.NativeEndian.Uint32(b[off:])),
			Size:   int(binary.NativeEndian.Uint16(b[off+4:])),
			Offset: off,
		}
		if want := spec.Type.Size(); want == 0 || spec.Size != want {
			return attr, fmt.Errorf("flow spec %d type %s has size %d", i, spec.Type, spec.Size)
		}
		attr.Specs = append(attr.Specs, spec)
		off += spec.Size
	}
	if off != attr.Size {
		return attr, fmt.Errorf("flow attribute size %d does not match specs %d", attr.Size, off)
	}
	return attr, nil
}

// EthFilter is the value or mask of an Ethernet flow spec.
type EthFilter struct {
	Dst       net.HardwareAddr
	Src       net.HardwareAddr
	EtherType layers.EthernetType
	VlanTag   uint16
}

const (
	ethSpecValOffset  = 6
	ethSpecMaskOffset = 22
)

func (f EthFilter) put(b []byte) {
	clear(b[:16])
	copy(b[0:6], f.Dst)
	copy(b[6:12], f.Src)
	binary.BigEndian.PutUint16(b[12:], uint16(f.EtherType))
	binary.BigEndian.PutUint16(b[14:], f.VlanTag)
}

func parseEthFilter(b []byte) (f EthFilter) {
	f.Dst = net.HardwareAddr(append([]byte{}, b[0:6]...))
	f.Src = net.HardwareAddr(append([]byte{}, b[6:12]...))
	f.EtherType = layers.EthernetType(binary.BigEndian.Uint16(b[12:]))
	f.VlanTag = binary.BigEndian.Uint16(b[14:])
	return
}

// PutEthSpecFilter writes value and mask into the Ethernet flow spec that starts at b.
func PutEthSpecFilter(b []byte, val, mask EthFilter) {
	_ = b[FlowSpecEth.Size()-1]
	val.put(b[ethSpecValOffset:])
	mask.put(b[ethSpecMaskOffset:])
}

// ParseEthSpecFilter reads value and mask from the Ethernet flow spec that starts at b.
func ParseEthSpecFilter(b []byte) (val, mask EthFilter) {
	_ = b[FlowSpecEth.Size()-1]
	return parseEthFilter(b[ethSpecValOffset:]), parseEthFilter(b[ethSpecMaskOffset:])
}
