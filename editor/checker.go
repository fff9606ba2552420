package editor

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounce is the delay between the last Check call and the lookup.
const DefaultDebounce = 500 * time.Millisecond

// SlugState is the availability of the slug currently being edited.
type SlugState int

const (
	SlugUnknown SlugState = iota
	SlugChecking
	SlugAvailable
	SlugTaken
)

func (s SlugState) String() string {
	switch s {
	case SlugChecking:
		return "checking"
	case SlugAvailable:
		return "available"
	case SlugTaken:
		return "taken"
	default:
		return "unknown"
	}
}

// SlugLookup reports whether a slug is already used by another record.
type SlugLookup interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// SlugLookupFunc adapts a function to SlugLookup.
type SlugLookupFunc func(ctx context.Context, slug string) (bool, error)

// SlugExists calls f.
func (f SlugLookupFunc) SlugExists(ctx context.Context, slug string) (bool, error) {
	return f(ctx, slug)
}

// SlugChecker debounces availability checks. Every Check replaces the pending
// one; only the most recent check can change the state.
type SlugChecker struct {
	lookup SlugLookup
	delay  time.Duration

	mu      sync.Mutex
	slug    string
	state   SlugState
	err     error
	seq     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	settled chan struct{}
}

// NewSlugChecker returns a checker that waits delay after the last Check
// before calling lookup. A zero delay uses DefaultDebounce.
func NewSlugChecker(lookup SlugLookup, delay time.Duration) *SlugChecker {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &SlugChecker{lookup: lookup, delay: delay}
}

// Check schedules an availability check for slug, superseding any check
// that is pending or in flight. An empty slug resets the state to unknown.
func (c *SlugChecker) Check(slug string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	seq := c.seq
	c.stopLocked()
	c.slug = slug
	c.err = nil

	if slug == "" {
		c.state = SlugUnknown
		c.settleLocked()
		return
	}

	c.state = SlugChecking
	if c.settled == nil {
		c.settled = make(chan struct{})
	}
	c.timer = time.AfterFunc(c.delay, func() { c.run(seq, slug) })
}

func (c *SlugChecker) run(seq uint64, slug string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.cancel = cancel
	c.mu.Unlock()

	exists, err := c.lookup.SlugExists(ctx, slug)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return
	}
	c.cancel = nil
	switch {
	case err != nil:
		c.state = SlugUnknown
		c.err = err
	case exists:
		c.state = SlugTaken
	default:
		c.state = SlugAvailable
	}
	c.settleLocked()
}

func (c *SlugChecker) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *SlugChecker) settleLocked() {
	if c.settled != nil {
		close(c.settled)
		c.settled = nil
	}
}

// State returns the slug last passed to Check and its availability.
func (c *SlugChecker) State() (string, SlugState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slug, c.state
}

// Err returns the error of the last lookup, if it failed.
func (c *SlugChecker) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// CanSave reports whether a save may proceed. Saving is blocked while a
// check is pending and when the slug is taken. A failed lookup leaves the
// state unknown and does not block; the server enforces uniqueness anyway.
func (c *SlugChecker) CanSave() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != SlugTaken && c.state != SlugChecking
}

// Wait blocks until the most recent check settles or ctx is done.
func (c *SlugChecker) Wait(ctx context.Context) (SlugState, error) {
	c.mu.Lock()
	ch := c.settled
	c.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return SlugChecking, ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.err
}

// Stop cancels any pending or in-flight check.
func (c *SlugChecker) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.stopLocked()
	if c.state == SlugChecking {
		c.state = SlugUnknown
	}
	c.settleLocked()
}
