package rxport

import (
	"fmt"
	"slices"

	"github.com/zyedidia/generic"

	"github.com/usnistgov/verbsrx/core/macaddr"
	"github.com/usnistgov/verbsrx/dpdk/ringbuffer"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
	"github.com/usnistgov/verbsrx/intrvec"
	"github.com/usnistgov/verbsrx/rss"
)

// Limits and defaults.
const (
	MaxRxQueues        = 1024
	DefaultMaxRxPktLen = 1518
	MaxIntrCapacity    = 1024
)

// RxMode contains steering rule settings that may change while the port is started.
type RxMode struct {
	Promisc    bool           `json:"promisc,omitempty" gqldesc:"Receive all unicast frames."`
	AllMulti   bool           `json:"allMulti,omitempty" gqldesc:"Receive all multicast frames."`
	MacAddrs   []macaddr.Flag `json:"macAddrs,omitempty" gqldesc:"Unicast MAC addresses."`
	VlanFilter []uint16       `json:"vlanFilter,omitempty" gqldesc:"Accepted VLAN identifiers, empty to accept any VLAN."`
}

func (mode RxMode) flowConfig() rss.FlowConfig {
	return rss.FlowConfig{
		Promisc:  mode.Promisc,
		AllMulti: mode.AllMulti,
		MacAddrs: macaddr.HardwareAddrs(mode.MacAddrs),
		Vlans:    mode.VlanFilter,
	}
}

// Config contains Port configuration.
type Config struct {
	RxMode

	// PortID is stamped into received packets.
	PortID uint16 `json:"portID,omitempty"`

	// NRxQueues is the number of receive queues.
	NRxQueues int `json:"nRxQueues"`

	// RssHf selects RSS hash functions.
	RssHf rss.HashFunction `json:"rssHf,omitempty"`
	// RssKey is the Toeplitz hash key. Default is rss.DefaultRssKey.
	RssKey []byte `json:"rssKey,omitempty"`
	// Reta is the redirection table, listing queue indices.
	// Default is round-robin over the power of two at or above NRxQueues.
	Reta []int `json:"reta,omitempty"`

	MaxRxPktLen   int  `json:"maxRxPktLen,omitempty"`
	EnableScatter bool `json:"enableScatter,omitempty"`
	HwIPChecksum  bool `json:"hwIPChecksum,omitempty"`
	HwVlanStrip   bool `json:"hwVlanStrip,omitempty"`
	HwStripCRC    bool `json:"hwStripCRC,omitempty"`
	EnablePadding bool `json:"enablePadding,omitempty"`

	// RxqInterrupt enables receive interrupt mode.
	RxqInterrupt bool `json:"rxqInterrupt,omitempty"`
	// IntrCapacity is the interrupt vector table size.
	IntrCapacity int `json:"intrCapacity,omitempty"`

	// Isolated disables hash queues, leaving the port to explicit flow rules.
	Isolated bool `json:"isolated,omitempty"`
}

func (cfg *Config) applyDefaults() {
	if cfg.MaxRxPktLen <= 0 {
		cfg.MaxRxPktLen = DefaultMaxRxPktLen
	}
	if cfg.RssHf == 0 {
		cfg.RssHf = rss.DefaultHashFunction
	}
	if cfg.IntrCapacity <= 0 {
		cfg.IntrCapacity = intrvec.DefaultCapacity
	}
	cfg.IntrCapacity = generic.Min(cfg.IntrCapacity, MaxIntrCapacity)
}

func (cfg Config) validate() error {
	if cfg.NRxQueues <= 0 || cfg.NRxQueues > MaxRxQueues {
		return fmt.Errorf("nRxQueues must be between 1 and %d: %w", MaxRxQueues, verbs.ErrInvalidArgument)
	}
	for i, q := range cfg.Reta {
		if q < 0 || q >= cfg.NRxQueues {
			return fmt.Errorf("reta[%d] refers to queue %d out of range: %w", i, q, verbs.ErrInvalidArgument)
		}
	}
	if n := len(cfg.RssKey); n != 0 && n != len(rss.DefaultRssKey) {
		return fmt.Errorf("rssKey must have %d octets: %w", len(rss.DefaultRssKey), verbs.ErrInvalidArgument)
	}
	for _, vlan := range cfg.VlanFilter {
		if vlan >= 4096 {
			return fmt.Errorf("VLAN %d out of range: %w", vlan, verbs.ErrInvalidArgument)
		}
	}
	return nil
}

func (cfg Config) clone() Config {
	cfg.MacAddrs = slices.Clone(cfg.MacAddrs)
	cfg.VlanFilter = slices.Clone(cfg.VlanFilter)
	cfg.RssKey = slices.Clone(cfg.RssKey)
	cfg.Reta = slices.Clone(cfg.Reta)
	return cfg
}

// reta returns the redirection table.
func (cfg Config) reta() []int {
	if len(cfg.Reta) > 0 {
		return cfg.Reta
	}
	reta := make([]int, 1<<ringbuffer.Log2Above(cfg.NRxQueues))
	for i := range reta {
		reta[i] = i % cfg.NRxQueues
	}
	return reta
}
