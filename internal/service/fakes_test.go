package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"eldom_bridge"
	"eldom_bridge/internal/device"
	"eldom_bridge/internal/eldom"
	"eldom_bridge/internal/logger"
	"eldom_bridge/internal/repository"
)

// fakeClassicAPI records commands sent by the devices.
type fakeClassicAPI struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeClassicAPI) record(action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, action)
	return nil
}

func (f *fakeClassicAPI) SetState(context.Context, eldom.Kind, string, int) error {
	return f.record("setState")
}

func (f *fakeClassicAPI) SetTemperature(context.Context, eldom.Kind, string, float64) error {
	return f.record("setTemperature")
}

func (f *fakeClassicAPI) SetPowerful(context.Context, eldom.Kind, string) error {
	return f.record("setHeater")
}

func (f *fakeClassicAPI) ResetEnergy(context.Context, eldom.Kind, string) error {
	return f.record("resetEnergy")
}

func (f *fakeClassicAPI) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeSource serves one flat boiler and one convector. Setting err makes
// every following fetch fail.
type fakeSource struct {
	api *fakeClassicAPI

	mu  sync.Mutex
	err error
}

func (s *fakeSource) Fetch(context.Context) (device.Devices, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	boiler := device.NewFlatBoiler("1", eldom.FlatBoilerDetails{DeviceID: "FB0001", State: 2, SetTemp: 60}, s.api, logger.Nop())
	conv := device.NewConvectorHeater("2", eldom.ConvectorHeaterDetails{DeviceID: "CV0002", State: 1}, s.api, logger.Nop())
	return device.Devices{
		device.TypeFlatBoiler:      {"1": boiler},
		device.TypeConvectorHeater: {"2": conv},
	}, nil
}

func (s *fakeSource) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// fakeConnector fails the first `failures` connects with err. onConnect, when
// set, runs at the start of every attempt.
type fakeConnector struct {
	source    *fakeSource
	err       error
	failures  int32
	connects  atomic.Int32
	onConnect func(n int32)
}

func (c *fakeConnector) Connect(context.Context, eldom_bridge.Entry) (device.Source, error) {
	n := c.connects.Add(1)
	if c.onConnect != nil {
		c.onConnect(n)
	}
	if c.err != nil && (c.failures == 0 || n <= c.failures) {
		return nil, c.err
	}
	return c.source, nil
}

// memEntryRepo is an in-memory repository.EntryRepo.
type memEntryRepo struct {
	mu      sync.Mutex
	entries map[string]eldom_bridge.Entry
}

func newMemEntryRepo(entries ...eldom_bridge.Entry) *memEntryRepo {
	r := &memEntryRepo{entries: map[string]eldom_bridge.Entry{}}
	for _, e := range entries {
		r.entries[e.UniqueID] = e
	}
	return r
}

func (r *memEntryRepo) Save(_ context.Context, e eldom_bridge.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[e.UniqueID]; ok {
		return repository.ErrDuplicate
	}
	r.entries[e.UniqueID] = e
	return nil
}

func (r *memEntryRepo) Get(_ context.Context, id string) (*eldom_bridge.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *memEntryRepo) List(context.Context) ([]eldom_bridge.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]eldom_bridge.Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out, nil
}

func (r *memEntryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	return nil
}

func newTestIntegration(conn Connector, entries *memEntryRepo, events *fakeEventRepo) *Integration {
	i := NewIntegration(conn, entries, events, time.Hour, logger.Nop())
	i.initialInterval = 5 * time.Millisecond
	i.maxInterval = 20 * time.Millisecond
	return i
}
