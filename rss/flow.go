package rss

import (
	"fmt"
	"net"
	"slices"

	"github.com/gopacket/gopacket/layers"
	"go.uber.org/zap"

	"github.com/usnistgov/verbsrx/core/macaddr"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
)

// FlowType identifies a kind of steering rule.
type FlowType int

// FlowType values.
const (
	FlowPromisc FlowType = iota
	FlowAllMulti
	FlowBroadcast
	FlowIPv6Multi
	FlowMAC

	// NSpecialFlowTypes is the number of special flow types, which precede FlowMAC.
	NSpecialFlowTypes = int(FlowMAC)
)

func (ft FlowType) String() string {
	switch ft {
	case FlowPromisc:
		return "promisc"
	case FlowAllMulti:
		return "allmulti"
	case FlowBroadcast:
		return "broadcast"
	case FlowIPv6Multi:
		return "ipv6multi"
	case FlowMAC:
		return "mac"
	}
	return fmt.Sprintf("FlowType(%d)", int(ft))
}

// AllowFlowType determines whether a flow type should be enabled.
// When promiscuous mode is requested, only FlowPromisc is allowed.
// Broadcast and IPv6 multicast flows are unnecessary when all-multicast is on.
func AllowFlowType(promisc, allMulti bool, ft FlowType) bool {
	if promisc {
		return ft == FlowPromisc
	}
	switch ft {
	case FlowPromisc:
		return false
	case FlowAllMulti:
		return allMulti
	case FlowBroadcast, FlowIPv6Multi:
		return !allMulti
	case FlowMAC:
		return true
	}
	return false
}

type specialFlowInit struct {
	dst       net.HardwareAddr
	dstMask   net.HardwareAddr
	hashTypes HashTypes
	perVlan   bool
}

var specialFlowCatalog = [NSpecialFlowTypes]specialFlowInit{
	FlowPromisc: {
		dst:       net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		dstMask:   net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		hashTypes: MakeHashTypes(HashTCPv4, HashUDPv4, HashIPv4, HashTCPv6, HashUDPv6, HashIPv6, HashEth),
	},
	FlowAllMulti: {
		dst:       net.HardwareAddr{0x01, 0x00, 0x00, 0x00, 0x00, 0x00},
		dstMask:   net.HardwareAddr{0x01, 0x00, 0x00, 0x00, 0x00, 0x00},
		hashTypes: MakeHashTypes(HashUDPv4, HashIPv4, HashUDPv6, HashIPv6, HashEth),
	},
	FlowBroadcast: {
		dst:       layers.EthernetBroadcast,
		dstMask:   layers.EthernetBroadcast,
		hashTypes: MakeHashTypes(HashUDPv4, HashIPv4, HashUDPv6, HashIPv6, HashEth),
		perVlan:   true,
	},
	FlowIPv6Multi: {
		dst:       net.HardwareAddr{0x33, 0x33, 0x00, 0x00, 0x00, 0x00},
		dstMask:   net.HardwareAddr{0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00},
		hashTypes: MakeHashTypes(HashUDPv6, HashIPv6, HashEth),
		perVlan:   true,
	},
}

// SpecialFlowHashTypes returns hash types that receive a special flow type.
func SpecialFlowHashTypes(ft FlowType) HashTypes {
	if ft < 0 || int(ft) >= NSpecialFlowTypes {
		return 0
	}
	return specialFlowCatalog[ft].hashTypes
}

// FlowConfig contains steering rule parameters.
type FlowConfig struct {
	Promisc  bool
	AllMulti bool
	MacAddrs []net.HardwareAddr // unicast addresses
	Vlans    []uint16           // VLAN filter, empty to match any VLAN
}

func (hrxq *HashRxq) createFlow(dst, dstMask net.HardwareAddr, vlan uint16, vlanEnabled bool) (verbs.Flow, error) {
	port := hrxq.set.cfg.Port
	buf := make([]byte, hrxq.typ.FlowAttr(nil, port))
	hrxq.typ.FlowAttr(buf, port)

	val, mask := verbs.EthFilter{Dst: macaddr.Mask(dst, dstMask)}, verbs.EthFilter{Dst: dstMask}
	if vlanEnabled {
		val.VlanTag, mask.VlanTag = vlan, 0x0FFF
	}
	verbs.PutEthSpecFilter(buf[verbs.SizeofFlowAttr:], val, mask)

	flow, e := hrxq.set.ctx.CreateFlow(hrxq.qp, buf)
	if e != nil {
		return nil, verbs.Wrap("CreateFlow", e)
	}
	return flow, nil
}

func (hrxq *HashRxq) enableSpecialFlowVlan(ft FlowType, vlanIndex int, vlans []uint16) error {
	if hrxq.specialFlows[ft][vlanIndex] != nil {
		return nil
	}
	sfi := specialFlowCatalog[ft]
	vlanEnabled := sfi.perVlan && len(vlans) > 0
	var vlan uint16
	if vlanEnabled {
		vlan = vlans[vlanIndex]
	}

	flow, e := hrxq.createFlow(sfi.dst, sfi.dstMask, vlan, vlanEnabled)
	if e != nil {
		hrxq.set.logger.Error("special flow creation failed",
			zap.Stringer("flow", ft), zap.Stringer("type", hrxq.typ), zap.Int("vlan-index", vlanIndex), zap.Error(e))
		return e
	}
	hrxq.specialFlows[ft][vlanIndex] = flow
	hrxq.set.logger.Debug("special flow enabled",
		zap.Stringer("flow", ft), zap.Stringer("type", hrxq.typ), zap.Int("vlan-index", vlanIndex))
	return nil
}

func (hrxq *HashRxq) enableSpecialFlow(ft FlowType, vlans []uint16) error {
	nVlans := 1
	if specialFlowCatalog[ft].perVlan && len(vlans) > 0 {
		nVlans = len(vlans)
	}
	for i := range nVlans {
		if e := hrxq.enableSpecialFlowVlan(ft, i, vlans); e != nil {
			hrxq.disableSpecialFlow(ft)
			return e
		}
	}
	return nil
}

func (hrxq *HashRxq) disableSpecialFlow(ft FlowType) {
	for vlanIndex, flow := range hrxq.specialFlows[ft] {
		if e := flow.Close(); e != nil {
			hrxq.set.logger.Warn("flow destroy error", zap.Stringer("flow", ft), zap.Error(e))
		}
		delete(hrxq.specialFlows[ft], vlanIndex)
	}
}

// EnableSpecialFlow attaches a special flow to every hash queue whose type receives it.
// On failure, this special flow type is detached from every hash queue.
func (set *HashRxqSet) EnableSpecialFlow(ft FlowType, vlans []uint16) error {
	if ft < 0 || int(ft) >= NSpecialFlowTypes {
		return fmt.Errorf("%s is not a special flow type: %w", ft, verbs.ErrInvalidArgument)
	}
	hashTypes := specialFlowCatalog[ft].hashTypes
	for i, hrxq := range set.hashRxqs {
		if !hashTypes.Has(hrxq.typ) {
			continue
		}
		if e := hrxq.enableSpecialFlow(ft, vlans); e != nil {
			for _, prev := range set.hashRxqs[:i] {
				prev.disableSpecialFlow(ft)
			}
			return fmt.Errorf("enable %s flow: %w", ft, e)
		}
	}
	return nil
}

// DisableSpecialFlow detaches a special flow from every hash queue.
func (set *HashRxqSet) DisableSpecialFlow(ft FlowType) {
	if ft < 0 || int(ft) >= NSpecialFlowTypes {
		return
	}
	for _, hrxq := range set.hashRxqs {
		hrxq.disableSpecialFlow(ft)
	}
}

func (hrxq *HashRxq) enableMacFlow(mac net.HardwareAddr, vlans []uint16) error {
	nVlans := max(1, len(vlans))
	for vlanIndex := range nVlans {
		key := macFlowKey{vlan: vlanIndex}
		copy(key.mac[:], mac)
		if hrxq.macFlows[key] != nil {
			continue
		}
		var vlan uint16
		if len(vlans) > 0 {
			vlan = vlans[vlanIndex]
		}
		flow, e := hrxq.createFlow(mac, layers.EthernetBroadcast, vlan, len(vlans) > 0)
		if e != nil {
			hrxq.set.logger.Error("MAC flow creation failed",
				zap.Stringer("mac", mac), zap.Stringer("type", hrxq.typ), zap.Int("vlan-index", vlanIndex), zap.Error(e))
			return e
		}
		hrxq.macFlows[key] = flow
	}
	return nil
}

func (hrxq *HashRxq) disableMacFlows(keep func(key macFlowKey) bool) {
	for key, flow := range hrxq.macFlows {
		if keep(key) {
			continue
		}
		if e := flow.Close(); e != nil {
			hrxq.set.logger.Warn("flow destroy error", zap.Stringer("flow", FlowMAC), zap.Error(e))
		}
		delete(hrxq.macFlows, key)
	}
}

// EnableMacFlows attaches unicast MAC steering rules to every hash queue.
// Rules of addresses no longer listed are detached; zero and group addresses are skipped.
// On failure, all MAC steering rules are detached.
func (set *HashRxqSet) EnableMacFlows(macs []net.HardwareAddr, vlans []uint16) error {
	wanted := map[[6]byte]bool{}
	for _, mac := range macs {
		if macaddr.IsUnicast(mac) {
			wanted[[6]byte(mac)] = true
		}
	}
	nVlans := max(1, len(vlans))
	for _, hrxq := range set.hashRxqs {
		hrxq.disableMacFlows(func(key macFlowKey) bool { return wanted[key.mac] && key.vlan < nVlans })
	}

	for _, mac := range macs {
		if !macaddr.IsUnicast(mac) {
			continue
		}
		for _, hrxq := range set.hashRxqs {
			if e := hrxq.enableMacFlow(mac, vlans); e != nil {
				set.DisableMacFlows()
				return fmt.Errorf("enable MAC flow %s: %w", mac, e)
			}
		}
	}
	return nil
}

// DisableMacFlows detaches all unicast MAC steering rules.
func (set *HashRxqSet) DisableMacFlows() {
	for _, hrxq := range set.hashRxqs {
		hrxq.disableMacFlows(func(macFlowKey) bool { return false })
	}
}

// Rehash enables or disables every flow type according to cfg.
// A change of VLAN filter detaches every rule before reattaching.
// It stops at the first failing special flow type.
func (set *HashRxqSet) Rehash(cfg FlowConfig) error {
	if !slices.Equal(cfg.Vlans, set.vlans) {
		set.DisableAllFlows()
		set.vlans = slices.Clone(cfg.Vlans)
	}
	for ft := range FlowType(NSpecialFlowTypes) {
		if !AllowFlowType(cfg.Promisc, cfg.AllMulti, ft) {
			set.DisableSpecialFlow(ft)
			continue
		}
		if e := set.EnableSpecialFlow(ft, cfg.Vlans); e != nil {
			return e
		}
	}
	if AllowFlowType(cfg.Promisc, cfg.AllMulti, FlowMAC) {
		return set.EnableMacFlows(cfg.MacAddrs, cfg.Vlans)
	}
	set.DisableMacFlows()
	return nil
}

// DisableAllFlows detaches every steering rule.
func (set *HashRxqSet) DisableAllFlows() {
	set.DisableMacFlows()
	for ft := range FlowType(NSpecialFlowTypes) {
		set.DisableSpecialFlow(ft)
	}
}

// CountFlows returns number of attached steering rules across all hash queues.
func (set *HashRxqSet) CountFlows() (n int) {
	for _, hrxq := range set.hashRxqs {
		n += hrxq.CountFlows()
	}
	return n
}
