package eal

import (
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// MaxNumaNodes is the maximum number of NUMA sockets.
const MaxNumaNodes = 32

// NumaSocket identifies where a ring or buffer should be allocated.
// The zero value means any socket.
type NumaSocket struct {
	v int // socket ID + 1
}

// NumaSocketFromID converts socket ID to NumaSocket.
// Out of range IDs become any socket.
func NumaSocketFromID(id int) NumaSocket {
	if id < 0 || id >= MaxNumaNodes {
		return NumaSocket{}
	}
	return NumaSocket{v: id + 1}
}

// ParseNumaSocket parses "any" or a decimal socket ID.
func ParseNumaSocket(s string) (NumaSocket, error) {
	if s == "any" || s == "" {
		return NumaSocket{}, nil
	}
	id, e := strconv.Atoi(s)
	if e != nil || id < 0 || id >= MaxNumaNodes {
		return NumaSocket{}, fmt.Errorf("invalid NUMA socket %q", s)
	}
	return NumaSocketFromID(id), nil
}

// ID returns NUMA socket ID, or -1 for any socket.
func (socket NumaSocket) ID() int {
	return socket.v - 1
}

// IsAny determines whether this is any socket.
func (socket NumaSocket) IsAny() bool {
	return socket.v == 0
}

// Match determines whether memory on socket can serve other.
func (socket NumaSocket) Match(other NumaSocket) bool {
	return socket.IsAny() || other.IsAny() || socket.v == other.v
}

func (socket NumaSocket) String() string {
	if socket.IsAny() {
		return "any"
	}
	return strconv.Itoa(socket.ID())
}

// ZapField returns a zap.Field for logging.
func (socket NumaSocket) ZapField(key string) zap.Field {
	return zap.Stringer(key, socket)
}

// MarshalJSON encodes socket ID as number, or any socket as null.
func (socket NumaSocket) MarshalJSON() ([]byte, error) {
	if socket.IsAny() {
		return []byte("null"), nil
	}
	return json.Marshal(socket.ID())
}

// UnmarshalJSON decodes a number, a string accepted by ParseNumaSocket, or null.
func (socket *NumaSocket) UnmarshalJSON(p []byte) (e error) {
	var v any
	if e = json.Unmarshal(p, &v); e != nil {
		return e
	}
	switch v := v.(type) {
	case nil:
		*socket = NumaSocket{}
	case float64:
		*socket, e = ParseNumaSocket(strconv.FormatFloat(v, 'f', -1, 64))
	case string:
		*socket, e = ParseNumaSocket(v)
	default:
		e = fmt.Errorf("invalid NUMA socket %s", p)
	}
	return e
}
