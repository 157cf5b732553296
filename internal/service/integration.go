package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"eldom_bridge"
	"eldom_bridge/internal/coordinator"
	"eldom_bridge/internal/entity"
	"eldom_bridge/internal/logger"
	"eldom_bridge/internal/repository"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

var (
	// ErrNotReady means the entry could not be set up yet; it is retried.
	ErrNotReady       = errors.New("entry not ready")
	ErrEntryNotLoaded = errors.New("entry not loaded")
	errAlreadyLoaded  = errors.New("entry already loaded")
)

const (
	defaultRetryInitial = 5 * time.Second
	defaultRetryMax     = 5 * time.Minute
)

// StatesListener receives every entity state of an entry after each refresh.
type StatesListener func(entryID string, states []eldom_bridge.EntityState)

type runtime struct {
	entry    eldom_bridge.Entry
	coord    *coordinator.Coordinator
	registry *entity.Registry
	cancel   context.CancelFunc
	done     chan struct{}
}

type pending struct {
	cancel  context.CancelFunc
	lastErr error
}

// Integration owns the running entries: one coordinator and entity registry
// per vendor account.
type Integration struct {
	connector Connector
	events    repository.EventRepo
	entries   repository.EntryRepo
	interval  time.Duration
	log       *logger.Logger

	// retry tuning, overridable in tests
	initialInterval time.Duration
	maxInterval     time.Duration

	mu        sync.RWMutex
	base      context.Context
	running   map[string]*runtime
	retrying  map[string]*pending
	listeners map[uint64]StatesListener
	nextID    uint64
	wg        sync.WaitGroup
}

func NewIntegration(connector Connector, entries repository.EntryRepo, events repository.EventRepo, interval time.Duration, log *logger.Logger) *Integration {
	return &Integration{
		connector:       connector,
		entries:         entries,
		events:          events,
		interval:        interval,
		log:             log.Named("integration"),
		initialInterval: defaultRetryInitial,
		maxInterval:     defaultRetryMax,
		base:            context.Background(),
		running:         make(map[string]*runtime),
		retrying:        make(map[string]*pending),
		listeners:       make(map[uint64]StatesListener),
	}
}

// Start loads every persisted entry and sets it up, retrying the ones that are
// not ready. Poll loops and retries stop when ctx is canceled.
func (i *Integration) Start(ctx context.Context) error {
	i.mu.Lock()
	i.base = ctx
	i.mu.Unlock()

	list, err := i.entries.List(ctx)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	for _, e := range list {
		if err := i.Setup(ctx, e); err != nil {
			i.log.Warnw("setup_deferred", "entry_id", e.UniqueID, "error", err)
			i.retry(e, err)
		}
	}
	return nil
}

// Setup connects the entry, runs the first refresh, builds its entities and
// starts polling. Any connection or refresh failure is wrapped in ErrNotReady.
func (i *Integration) Setup(ctx context.Context, entry eldom_bridge.Entry) error {
	i.mu.RLock()
	_, loaded := i.running[entry.UniqueID]
	base := i.base
	i.mu.RUnlock()
	if loaded {
		return errAlreadyLoaded
	}

	src, err := i.connector.Connect(ctx, entry)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}

	coord := coordinator.New(entry.UniqueID, src, i.interval, i.log)
	if _, err := coord.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}

	registry := entity.NewRegistry(entry.UniqueID, coord, i.log)
	runCtx, cancel := context.WithCancel(base)
	rt := &runtime{entry: entry, coord: coord, registry: registry, cancel: cancel, done: make(chan struct{})}

	wasAvailable := true
	registry.OnUpdate(func(states []eldom_bridge.EntityState) {
		available := coord.Available()
		if available != wasAvailable {
			wasAvailable = available
			i.recordAvailability(entry.UniqueID, available, coord.LastError())
		}
		i.publish(entry.UniqueID, states)
	})

	i.mu.Lock()
	if _, dup := i.running[entry.UniqueID]; dup {
		i.mu.Unlock()
		cancel()
		registry.Close()
		return errAlreadyLoaded
	}
	if err := ctx.Err(); err != nil {
		// unloaded while connecting
		i.mu.Unlock()
		cancel()
		registry.Close()
		return err
	}
	i.running[entry.UniqueID] = rt
	i.mu.Unlock()

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		defer close(rt.done)
		coord.Run(runCtx)
	}()

	i.record(ctx, eldom_bridge.DeviceEvent{
		Type:        eldom_bridge.EventSetup,
		EntryID:     entry.UniqueID,
		Description: "entry set up",
		Metadata:    map[string]any{"api": entry.API, "entities": len(registry.List())},
	})
	i.log.Infow("entry_setup", "entry_id", entry.UniqueID, "api", entry.API, "entities", len(registry.List()))
	i.publish(entry.UniqueID, registry.States())
	return nil
}

// retry keeps calling Setup with exponential backoff until it succeeds, the
// entry is unloaded or the integration stops.
func (i *Integration) retry(entry eldom_bridge.Entry, cause error) {
	i.mu.Lock()
	if _, ok := i.retrying[entry.UniqueID]; ok {
		i.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(i.base)
	p := &pending{cancel: cancel, lastErr: cause}
	i.retrying[entry.UniqueID] = p
	i.mu.Unlock()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = i.initialInterval
	b.MaxInterval = i.maxInterval
	b.MaxElapsedTime = 0

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		defer func() {
			i.mu.Lock()
			if i.retrying[entry.UniqueID] == p {
				delete(i.retrying, entry.UniqueID)
			}
			i.mu.Unlock()
		}()

		op := func() error {
			err := i.Setup(ctx, entry)
			if errors.Is(err, errAlreadyLoaded) {
				return nil
			}
			return err
		}
		notify := func(err error, next time.Duration) {
			i.mu.Lock()
			p.lastErr = err
			i.mu.Unlock()
			i.log.Warnw("setup_retry", "entry_id", entry.UniqueID, "error", err, "next_in", next.String())
		}
		if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
			i.log.Debugw("setup_retry_stopped", "entry_id", entry.UniqueID, "error", err)
		}
	}()
}

// Unload stops polling, drops the entities and cancels a pending retry.
func (i *Integration) Unload(ctx context.Context, entryID string) error {
	i.mu.Lock()
	rt, ok := i.running[entryID]
	delete(i.running, entryID)
	p, retrying := i.retrying[entryID]
	delete(i.retrying, entryID)
	// canceled under the lock so a retrying Setup cannot register afterwards
	if retrying {
		p.cancel()
	}
	i.mu.Unlock()

	if !ok {
		if retrying {
			return nil
		}
		return ErrEntryNotLoaded
	}

	rt.cancel()
	select {
	case <-rt.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	rt.registry.Close()

	i.record(ctx, eldom_bridge.DeviceEvent{
		Type:        eldom_bridge.EventUnload,
		EntryID:     entryID,
		Description: "entry unloaded",
	})
	i.log.Infow("entry_unloaded", "entry_id", entryID)
	return nil
}

// Shutdown unloads every entry and waits for background work to finish.
func (i *Integration) Shutdown(ctx context.Context) error {
	i.mu.RLock()
	ids := make([]string, 0, len(i.running)+len(i.retrying))
	for id := range i.running {
		ids = append(ids, id)
	}
	for id := range i.retrying {
		ids = append(ids, id)
	}
	i.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if err := i.Unload(ctx, id); err != nil && !errors.Is(err, ErrEntryNotLoaded) {
			errs = append(errs, err)
		}
	}

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}

// Status reports the runtime state of an entry.
func (i *Integration) Status(entryID string) (string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if rt, ok := i.running[entryID]; ok {
		return eldom_bridge.EntryLoaded, rt.coord.LastError()
	}
	if p, ok := i.retrying[entryID]; ok {
		return eldom_bridge.EntrySetupRetry, p.lastErr
	}
	return eldom_bridge.EntryNotLoaded, nil
}

// Entity finds an entity by unique id over all running entries.
func (i *Integration) Entity(uniqueID string) (entity.Entity, string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for id, rt := range i.running {
		if e, ok := rt.registry.Get(uniqueID); ok {
			return e, id, true
		}
	}
	return nil, "", false
}

// States lists every entity state, ordered by entry and unique id.
func (i *Integration) States() []eldom_bridge.EntityState {
	i.mu.RLock()
	ids := make([]string, 0, len(i.running))
	for id := range i.running {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	regs := make([]*entity.Registry, 0, len(ids))
	for _, id := range ids {
		regs = append(regs, i.running[id].registry)
	}
	i.mu.RUnlock()

	var out []eldom_bridge.EntityState
	for _, r := range regs {
		out = append(out, r.States()...)
	}
	return out
}

// Entities lists every entity, ordered by entry and unique id.
func (i *Integration) Entities() []entity.Entity {
	i.mu.RLock()
	ids := make([]string, 0, len(i.running))
	for id := range i.running {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []entity.Entity
	for _, id := range ids {
		out = append(out, i.running[id].registry.List()...)
	}
	i.mu.RUnlock()
	return out
}

// Refresh triggers a refresh of every running entry.
func (i *Integration) Refresh(ctx context.Context) error {
	i.mu.RLock()
	coords := make([]*coordinator.Coordinator, 0, len(i.running))
	for _, rt := range i.running {
		coords = append(coords, rt.coord)
	}
	i.mu.RUnlock()

	var errs []error
	for _, c := range coords {
		if _, err := c.Refresh(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers fn for entity states of every entry, present and future.
func (i *Integration) Subscribe(fn StatesListener) (cancel func()) {
	i.mu.Lock()
	id := i.nextID
	i.nextID++
	i.listeners[id] = fn
	i.mu.Unlock()
	return func() {
		i.mu.Lock()
		delete(i.listeners, id)
		i.mu.Unlock()
	}
}

func (i *Integration) publish(entryID string, states []eldom_bridge.EntityState) {
	i.mu.RLock()
	fns := make([]StatesListener, 0, len(i.listeners))
	for _, fn := range i.listeners {
		fns = append(fns, fn)
	}
	i.mu.RUnlock()
	for _, fn := range fns {
		fn(entryID, states)
	}
}

func (i *Integration) recordAvailability(entryID string, available bool, cause error) {
	ctx := context.Background()
	if !available {
		msg := "refresh failed"
		if cause != nil {
			msg = cause.Error()
		}
		i.record(ctx, eldom_bridge.DeviceEvent{
			Type:        eldom_bridge.EventRefreshFailed,
			EntryID:     entryID,
			Description: msg,
		})
		i.log.Warnw("entry_unavailable", "entry_id", entryID, "error", cause)
	} else {
		i.log.Infow("entry_available", "entry_id", entryID)
	}
	i.record(ctx, eldom_bridge.DeviceEvent{
		Type:        eldom_bridge.EventAvailability,
		EntryID:     entryID,
		Description: fmt.Sprintf("available=%t", available),
		Metadata:    map[string]any{"available": available},
	})
}

// record appends to the event log; a failing log never fails the caller.
func (i *Integration) record(ctx context.Context, ev eldom_bridge.DeviceEvent) {
	if i.events == nil {
		return
	}
	ev.EventID = uuid.NewString()
	ev.OccurredAt = time.Now().UTC()
	if err := i.events.Append(context.WithoutCancel(ctx), ev); err != nil {
		i.log.Errorw("event_append_failed", "type", ev.Type, "entry_id", ev.EntryID, "error", err)
	}
}
