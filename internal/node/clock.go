package node

import (
	"sort"
	"sync"
	"time"
)

// zclEpoch is the origin of ZCL UTC time.
var zclEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// FromTime converts t to ZCL UTC seconds. Times before 2000 clamp to zero.
func FromTime(t time.Time) uint32 {
	if t.Before(zclEpoch) {
		return 0
	}
	return uint32(t.Sub(zclEpoch) / time.Second)
}

// ToTime converts ZCL UTC seconds to a time.Time.
func ToTime(s uint32) time.Time {
	return zclEpoch.Add(time.Duration(s) * time.Second)
}

// Clock is the node's source of time and timers.
type Clock interface {
	// Now returns ZCL UTC seconds.
	Now() uint32
	// AfterFunc calls fn after d on its own goroutine. The returned function
	// cancels the timer and reports whether it was still pending.
	AfterFunc(d time.Duration, fn func()) func() bool
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() uint32 { return FromTime(time.Now()) }

func (SystemClock) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// ManualClock is a Clock that only moves when told to. Timers fire
// synchronously from Advance and Set, in deadline order.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	nextID uint64
	timers map[uint64]*manualTimer
}

type manualTimer struct {
	id       uint64
	deadline time.Time
	fn       func()
}

// NewManualClock returns a clock stopped at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start, timers: make(map[uint64]*manualTimer)}
}

func (c *ManualClock) Now() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FromTime(c.now)
}

// Time returns the current clock time.
func (c *ManualClock) Time() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) AfterFunc(d time.Duration, fn func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.timers[id] = &manualTimer{id: id, deadline: c.now.Add(d), fn: fn}
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		_, ok := c.timers[id]
		delete(c.timers, id)
		return ok
	}
}

// Pending returns the number of armed timers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Advance moves the clock forward by d, firing every timer that falls due.
// Timers armed by a firing callback run too if they fall inside the window.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	c.Set(target)
}

// Set moves the clock to t, firing due timers.
func (c *ManualClock) Set(t time.Time) {
	for {
		c.mu.Lock()
		var due []*manualTimer
		for _, tm := range c.timers {
			if !tm.deadline.After(t) {
				due = append(due, tm)
			}
		}
		if len(due) == 0 {
			if t.After(c.now) {
				c.now = t
			}
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].deadline.Equal(due[j].deadline) {
				return due[i].id < due[j].id
			}
			return due[i].deadline.Before(due[j].deadline)
		})
		next := due[0]
		delete(c.timers, next.id)
		if next.deadline.After(c.now) {
			c.now = next.deadline
		}
		c.mu.Unlock()
		next.fn()
	}
}
