package kernel

// cib indexes a power-of-two ring. read and write run freely and wrap; the
// difference is the fill level.
type cib struct {
	read  uint32
	write uint32
	size  uint32
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

func (c *cib) init(size int) {
	*c = cib{size: uint32(size)}
}

func (c *cib) capacity() int { return int(c.size) }

func (c *cib) avail() int { return int(c.write - c.read) }

func (c *cib) full() bool { return c.write-c.read >= c.size }

// put reserves the next write slot, or returns -1 if the ring is full.
func (c *cib) put() int {
	if c.full() {
		return -1
	}
	idx := c.write & (c.size - 1)
	c.write++
	return int(idx)
}

// get consumes the oldest slot, or returns -1 if the ring is empty.
func (c *cib) get() int {
	if c.read == c.write {
		return -1
	}
	idx := c.read & (c.size - 1)
	c.read++
	return int(idx)
}

// peek returns the slot that is n places after the oldest one.
func (c *cib) peek(n int) int {
	if n < 0 || n >= c.avail() {
		return -1
	}
	return int((c.read + uint32(n)) & (c.size - 1))
}
