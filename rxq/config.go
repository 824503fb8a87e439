package rxq

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/usnistgov/verbsrx/dpdk/eal"
	"github.com/usnistgov/verbsrx/dpdk/pktmbuf"
	"github.com/usnistgov/verbsrx/dpdk/ringbuffer"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
)

// Capabilities describes offloads supported by the device.
type Capabilities struct {
	HwCsum      bool  `json:"hwCsum"`      // IP/TCP/UDP checksum
	HwCsumL2Tun bool  `json:"hwCsumL2Tun"` // checksum of L2 tunnel inner headers
	HwVlanStrip bool  `json:"hwVlanStrip"`
	HwFcsStrip  bool  `json:"hwFcsStrip"` // FCS stripping can be disabled
	HwPadding   bool  `json:"hwPadding"`  // end of packet padding
	RxVecEn     bool  `json:"rxVecEn"`    // vectorized receive path
	CqeComp     bool  `json:"cqeComp"`    // CQE compression
	IBPort      uint8 `json:"ibPort"`
}

// Config contains receive queue configuration.
type Config struct {
	Port          uint16         // port identifier stamped into packets
	Index         int            // queue index
	Desc          int            // number of descriptors, power of two
	Socket        eal.NumaSocket // where to allocate the ring
	Pool          *pktmbuf.Pool  // where to store packets
	MaxRxPktLen   int            // maximum receive packet length
	EnableScatter bool
	HwIPChecksum  bool // request checksum offload
	HwVlanStrip   bool // request VLAN stripping
	HwStripCRC    bool // request CRC stripping
	EnablePadding bool // request end of packet padding
	Interrupt     bool // create completion channel for interrupt mode
}

func (cfg Config) validate() error {
	if cfg.Pool == nil {
		return fmt.Errorf("packet pool missing: %w", verbs.ErrInvalidArgument)
	}
	if cfg.Desc <= 0 || cfg.Desc > ringbuffer.MaxCapacity || !ringbuffer.IsPowerOfTwo(cfg.Desc) {
		return fmt.Errorf("descriptor count %d must be a power of two not exceeding %d: %w",
			cfg.Desc, ringbuffer.MaxCapacity, verbs.ErrInvalidArgument)
	}
	return nil
}

// MaxLogSges is the maximum log2 of scatter/gather segments per packet.
const MaxLogSges = 5

// Geometry describes ring dimensions.
type Geometry struct {
	EltsN int `json:"eltsN"` // log2 descriptors
	SgesN int `json:"sgesN"` // log2 segments per packet
}

// Desc returns number of descriptors.
func (g Geometry) Desc() int {
	return 1 << g.EltsN
}

// MaxWr returns number of work requests, i.e. packets.
func (g Geometry) MaxWr() int {
	return g.Desc() >> g.SgesN
}

// MaxSge returns number of segments per packet.
func (g Geometry) MaxSge() int {
	return 1 << g.SgesN
}

// ComputeGeometry determines ring dimensions.
//
// A packet of maxRxPktLen octets, placed after headroom in the first segment,
// is spread over enough segments of dataroom octets each when scatter is enabled.
// Without scatter, longer packets are truncated to one segment and a warning is logged.
func ComputeGeometry(desc, maxRxPktLen int, scatter bool, dataroom, headroom int) (g Geometry, e error) {
	g.EltsN = ringbuffer.Log2Above(desc)
	switch {
	case maxRxPktLen <= dataroom-headroom:
		g.SgesN = 0
	case scatter:
		size := headroom + maxRxPktLen
		g.SgesN = min(ringbuffer.Log2Above((size+dataroom-1)/dataroom), MaxLogSges)
		if size = dataroom<<g.SgesN - headroom; size < maxRxPktLen {
			logger.Error("too many segments needed to handle maximum packet size",
				zap.Int("sges", 1<<g.SgesN), zap.Int("max-rx-pkt-len", maxRxPktLen))
			return g, fmt.Errorf("%d segments of %d octets cannot hold %d octets: %w",
				1<<g.SgesN, dataroom, maxRxPktLen, verbs.ErrOverflow)
		}
	default:
		logger.Warn("maximum packet size is larger than a single buffer and scatter is disabled",
			zap.Int("max-rx-pkt-len", maxRxPktLen), zap.Int("dataroom", dataroom-headroom))
	}

	if desc%(1<<g.SgesN) != 0 {
		return g, fmt.Errorf("descriptor count %d is not a multiple of segments %d: %w",
			desc, 1<<g.SgesN, verbs.ErrInvalidArgument)
	}
	return g, nil
}
