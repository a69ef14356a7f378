package timeline

import "github.com/zsiec/tsgop/internal/pts"

// CarryForward assigns an effective timestamp to every packet of a PID. Only
// the first packet of a payload unit carries a PTS; the packets that follow
// inherit it.
type CarryForward struct {
	last map[uint16]pts.PTS
}

// NewCarryForward returns a CarryForward with no timestamps stored.
func NewCarryForward() *CarryForward {
	return &CarryForward{last: make(map[uint16]pts.PTS)}
}

// Observe returns the effective original timestamp of a packet. A
// payload-unit start with a valid raw timestamp stores and returns it; a
// payload-unit start without one returns pts.Invalid and keeps the stored
// value. Any other packet returns the stored value, or pts.Invalid if the
// PID has none yet.
func (c *CarryForward) Observe(pid uint16, pusi bool, raw pts.PTS) pts.PTS {
	if pusi {
		if !raw.Valid() {
			return pts.Invalid
		}
		c.last[pid] = raw
		return raw
	}
	if p, ok := c.last[pid]; ok {
		return p
	}
	return pts.Invalid
}

// Last returns the stored timestamp of pid.
func (c *CarryForward) Last(pid uint16) (pts.PTS, bool) {
	p, ok := c.last[pid]
	return p, ok
}
