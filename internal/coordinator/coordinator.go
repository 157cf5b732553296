// Package coordinator polls one Eldom account and keeps the latest device snapshot.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"eldom_bridge/internal/device"
	"eldom_bridge/internal/logger"

	"golang.org/x/sync/singleflight"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 30 * time.Second

var (
	// ErrUpdateFailed wraps every failed refresh.
	ErrUpdateFailed = errors.New("error communicating with API")
)

// Snapshot is an immutable view of all devices of the account. It is replaced
// wholesale by every successful refresh.
type Snapshot struct {
	Generation uint64
	Devices    device.Devices
	UpdatedAt  time.Time
}

// Lookup returns the device of the given type and id.
func (s *Snapshot) Lookup(t device.Type, id string) (device.Device, bool) {
	if s == nil {
		return nil, false
	}
	d, ok := s.Devices[t][id]
	return d, ok
}

type flight struct {
	snap *Snapshot
	seq  uint64
}

// Coordinator runs single-flight refreshes through a device.Source and fans out
// notifications to subscribers.
type Coordinator struct {
	name     string
	source   device.Source
	interval time.Duration
	log      *logger.Logger
	now      func() time.Time

	group  singleflight.Group
	starts atomic.Uint64

	mu        sync.RWMutex
	snapshot  *Snapshot
	available bool
	lastErr   error
	subs      map[uint64]func()
	nextSub   uint64
}

// New builds a coordinator; interval <= 0 selects DefaultInterval.
func New(name string, source device.Source, interval time.Duration, log *logger.Logger) *Coordinator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Coordinator{
		name:     name,
		source:   source,
		interval: interval,
		log:      log.Named("coordinator").With("entry_id", name),
		now:      time.Now,
		subs:     make(map[uint64]func()),
	}
}

// Interval is the polling period.
func (c *Coordinator) Interval() time.Duration { return c.interval }

// Refresh fetches the device set. Concurrent callers share a single fetch. A
// canceled ctx releases the caller; the shared fetch keeps running for the others.
func (c *Coordinator) Refresh(ctx context.Context) (*Snapshot, error) {
	f, err := c.refresh(ctx)
	return f.snap, err
}

func (c *Coordinator) refresh(ctx context.Context) (flight, error) {
	ch := c.group.DoChan("refresh", func() (any, error) {
		seq := c.starts.Add(1)
		snap, err := c.fetch(context.WithoutCancel(ctx))
		return flight{snap: snap, seq: seq}, err
	})
	select {
	case <-ctx.Done():
		return flight{}, ctx.Err()
	case r := <-ch:
		f, _ := r.Val.(flight)
		return f, r.Err
	}
}

// RequestRefresh refreshes after a command. It returns once a fetch that started
// after the call has finished, joining or following any fetch already in flight.
func (c *Coordinator) RequestRefresh(ctx context.Context) error {
	mark := c.starts.Load()
	for {
		f, err := c.refresh(ctx)
		if f.seq > mark || ctx.Err() != nil {
			return err
		}
	}
}

func (c *Coordinator) fetch(ctx context.Context) (*Snapshot, error) {
	devices, err := c.source.Fetch(ctx)

	c.mu.Lock()
	if err != nil {
		wasAvailable := c.available
		c.available = false
		c.lastErr = err
		snap := c.snapshot
		c.mu.Unlock()

		if wasAvailable {
			c.log.Errorw("refresh_failed", "error", err)
		} else {
			c.log.Debugw("refresh_failed", "error", err)
		}
		c.notify()
		return snap, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	var gen uint64 = 1
	if c.snapshot != nil {
		gen = c.snapshot.Generation + 1
	}
	snap := &Snapshot{Generation: gen, Devices: devices, UpdatedAt: c.now().UTC()}
	c.snapshot = snap
	recovered := !c.available && c.lastErr != nil
	c.available = true
	c.lastErr = nil
	c.mu.Unlock()

	if recovered {
		c.log.Infow("refresh_recovered", "generation", gen)
	}
	c.log.Debugw("refresh_done", "generation", gen, "devices", devices.Len())
	c.notify()
	return snap, nil
}

// Run refreshes on every tick until ctx is canceled.
func (c *Coordinator) Run(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			// failures are recorded on the coordinator
			_, _ = c.Refresh(ctx)
		}
	}
}

// Snapshot returns the latest successful snapshot, nil before the first one.
func (c *Coordinator) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Devices returns the device partition of the latest snapshot, nil before the first one.
func (c *Coordinator) Devices() device.Devices {
	if snap := c.Snapshot(); snap != nil {
		return snap.Devices
	}
	return nil
}

// Lookup resolves a device in the latest snapshot together with its generation.
func (c *Coordinator) Lookup(t device.Type, id string) (device.Device, uint64, bool) {
	snap := c.Snapshot()
	d, ok := snap.Lookup(t, id)
	if !ok {
		return nil, 0, false
	}
	return d, snap.Generation, true
}

// Available reports whether the last refresh succeeded.
func (c *Coordinator) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

// LastError is the error of the last refresh, nil after a success.
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Subscribe registers fn to be called after every refresh, successful or not.
// The returned func removes the subscription.
func (c *Coordinator) Subscribe(fn func()) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Coordinator) notify() {
	c.mu.RLock()
	fns := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
