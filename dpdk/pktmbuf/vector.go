package pktmbuf

import (
	"go.uber.org/multierr"
)

// Vector is a vector of packet buffers.
type Vector []*Packet

// Close releases the packets.
// nil entries are skipped.
func (vec Vector) Close() error {
	errs := []error{}
	for _, pkt := range vec {
		if pkt != nil {
			errs = append(errs, pkt.Close())
		}
	}
	return multierr.Combine(errs...)
}
