// Package eal provides environment primitives shared by verbs objects:
// NUMA socket identifiers, errno values, and object naming.
package eal

import (
	"github.com/usnistgov/verbsrx/core/logging"
)

var logger = logging.New("eal")

// CacheLineSize is the expected CPU cache line size.
// Completion queue entries must have this size.
const CacheLineSize = 64
