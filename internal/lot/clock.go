package lot

import "time"

// clock is the per-lot countdown. Every arming bumps the generation; a
// fire carrying an older generation is stale and must be ignored, which
// is what makes "bid lands just as the old timer fires" safe.
type clock struct {
	gen      uint64
	timer    *time.Timer
	deadline time.Time
}

func (c *clock) Arm(d time.Duration, fire func(gen uint64)) uint64 {
	c.Cancel()
	c.gen++
	gen := c.gen
	c.deadline = time.Now().Add(d)
	c.timer = time.AfterFunc(d, func() { fire(gen) })
	return gen
}

func (c *clock) Cancel() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.deadline = time.Time{}
}

func (c *clock) Generation() uint64 { return c.gen }

// Remaining reports whole seconds left, zero when unarmed.
func (c *clock) Remaining() int {
	if c.deadline.IsZero() {
		return 0
	}
	rem := time.Until(c.deadline)
	if rem <= 0 {
		return 0
	}
	return int((rem + time.Second - 1) / time.Second)
}
