package models

import (
	"errors"
	"sync"
)

/* THREAD SAFE COUNTER */

// Returned when the counter cannot go any higher
var ErrorFull error = errors.New("counter is at max value")

// Global counter for the amount of clients
type Counter struct {
	mut sync.Mutex
	val int
	max int
}

/* FUNCTIONS */

// Creates a new counter with the max value it can have,
// a max of 0 or lower means there is no limit
func NewCounter(max int) *Counter {
	return &Counter{
		max: max,
	}
}

// Returns the value of the counter
func (c *Counter) Get() int {
	c.mut.Lock()
	defer c.mut.Unlock()
	return c.val
}

// Tries to increase the value unless it is max
func (c *Counter) TryInc() error {
	c.mut.Lock()
	defer c.mut.Unlock()
	if c.max > 0 && c.val >= c.max {
		return ErrorFull
	}

	c.val++
	return nil
}

// Decreases the value of the counter
func (c *Counter) Dec() {
	c.mut.Lock()
	defer c.mut.Unlock()
	if c.val > 0 {
		c.val--
	}
}
