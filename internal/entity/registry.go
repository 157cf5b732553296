package entity

import (
	"sort"
	"sync"

	"eldom_bridge"
	"eldom_bridge/internal/device"
	"eldom_bridge/internal/logger"
)

// Registry owns the entities of one entry. It is the only coordinator
// subscriber of the entry; its own listeners run after every entity has
// re-resolved its device.
type Registry struct {
	entryID string
	coord   Coordinator
	log     *logger.Logger

	mu       sync.RWMutex
	entities map[string]Entity
	known    map[device.Type]map[string]bool
	unsub    func()

	lmu       sync.Mutex
	listeners map[uint64]func([]eldom_bridge.EntityState)
	nextID    uint64
}

// NewRegistry builds entities for the devices currently in the coordinator
// and follows its refreshes. Devices appearing later get entities on the
// refresh that first reports them.
func NewRegistry(entryID string, coord Coordinator, log *logger.Logger) *Registry {
	r := &Registry{
		entryID:   entryID,
		coord:     coord,
		log:       log.Named("entity").With("entry_id", entryID),
		entities:  make(map[string]Entity),
		known:     make(map[device.Type]map[string]bool),
		listeners: make(map[uint64]func([]eldom_bridge.EntityState)),
	}
	r.sync()
	r.unsub = coord.Subscribe(r.handleUpdate)
	return r
}

// Build returns the entities for one device.
func Build(entryID string, coord Coordinator, dev device.Device, log *logger.Logger) []Entity {
	var out []Entity
	switch dev.Category() {
	case device.CategoryClimate:
		out = append(out, NewClimate(entryID, coord, dev, log))
	case device.CategoryWaterHeater:
		out = append(out, NewWaterHeater(entryID, coord, dev, log))
	}
	caps := dev.Capabilities()
	if caps.Has(device.CapPowerful) {
		out = append(out, NewPowerfulSwitch(entryID, coord, dev, log))
	}
	if caps.Has(device.CapEnergyMetering) {
		for _, desc := range BoilerSensors {
			out = append(out, NewSensor(entryID, coord, dev, desc, log))
		}
	}
	if caps.Has(device.CapEnergyReset) {
		out = append(out, NewResetEnergyButton(entryID, coord, dev, log))
	}
	return out
}

func (r *Registry) sync() {
	devices := r.coord.Devices()

	r.mu.Lock()
	defer r.mu.Unlock()
	for typ, byID := range devices {
		if r.known[typ] == nil {
			r.known[typ] = make(map[string]bool)
		}
		for id, dev := range byID {
			if r.known[typ][id] {
				continue
			}
			r.known[typ][id] = true
			for _, e := range Build(r.entryID, r.coord, dev, r.log) {
				r.entities[e.UniqueID()] = e
			}
			r.log.Infow("device_added", "device_id", dev.DeviceID(), "type", string(typ))
		}
	}
}

func (r *Registry) handleUpdate() {
	r.sync()
	for _, e := range r.List() {
		e.HandleCoordinatorUpdate()
	}

	states := r.States()
	r.lmu.Lock()
	fns := make([]func([]eldom_bridge.EntityState), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.lmu.Unlock()
	for _, fn := range fns {
		fn(states)
	}
}

// Get returns the entity with the given unique id.
func (r *Registry) Get(uniqueID string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[uniqueID]
	return e, ok
}

// List returns every entity ordered by unique id.
func (r *Registry) List() []Entity {
	r.mu.RLock()
	out := make([]Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UniqueID() < out[j].UniqueID() })
	return out
}

// States snapshots the state of every entity.
func (r *Registry) States() []eldom_bridge.EntityState {
	list := r.List()
	out := make([]eldom_bridge.EntityState, 0, len(list))
	for _, e := range list {
		out = append(out, e.State())
	}
	return out
}

// OnUpdate registers fn to receive all entity states after every refresh.
func (r *Registry) OnUpdate(fn func([]eldom_bridge.EntityState)) (cancel func()) {
	r.lmu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.lmu.Unlock()
	return func() {
		r.lmu.Lock()
		delete(r.listeners, id)
		r.lmu.Unlock()
	}
}

// Close detaches the registry from the coordinator.
func (r *Registry) Close() {
	if r.unsub != nil {
		r.unsub()
	}
}
