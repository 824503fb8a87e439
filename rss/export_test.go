package rss

// SetAllocHashRxqs replaces the hash queue array allocator.
func SetAllocHashRxqs(f func(n int) ([]*HashRxq, error)) (restore func()) {
	saved := allocHashRxqs
	allocHashRxqs = f
	return func() { allocHashRxqs = saved }
}
