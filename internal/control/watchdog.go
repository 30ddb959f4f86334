package control

import (
	"log"
	"time"
)

// armWatchdog restarts the timer that abandons a stalled gesture.
func (c *Controller) armWatchdog() {
	c.stopWatchdog()
	id := c.timerID
	c.timer = time.AfterFunc(c.cfg.Watchdog, func() { c.expire(id) })
}

func (c *Controller) stopWatchdog() {
	c.timerID++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// expire drops every preview of a gesture that stalled and returns to
// Idle. A timer that was stopped or replaced in the meantime does nothing.
func (c *Controller) expire(id uint64) {
	c.mu.Lock()
	if id != c.timerID {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.g = gesture{}
	c.free.Discard()
	c.shapes.Discard()
	was := c.mode
	c.mode = Idle
	c.mu.Unlock()

	log.Printf("[CONTROL] %s gesture stalled, back to idle", was)
	if was != Idle {
		c.notify(Idle)
	}
}
