package device

import (
	"context"
	"sync"

	"eldom_bridge/internal/eldom"
)

type classicCall struct {
	action   string
	kind     eldom.Kind
	deviceID string
	value    any
}

// fakeClassic records commands. during runs inside every command so tests can
// observe the optimistic state while the call is in flight.
type fakeClassic struct {
	mu     sync.Mutex
	calls  []classicCall
	err    error
	during func()

	devices    []eldom.ClassicDevice
	flat       map[int]eldom.FlatBoilerDetails
	smart      map[int]eldom.SmartBoilerDetails
	convectors map[int]eldom.ConvectorHeaterDetails
	statusErr  error
	listCalls  int
}

func (f *fakeClassic) record(action string, kind eldom.Kind, deviceID string, value any) error {
	if f.during != nil {
		f.during()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, classicCall{action: action, kind: kind, deviceID: deviceID, value: value})
	return f.err
}

func (f *fakeClassic) SetState(_ context.Context, kind eldom.Kind, deviceID string, state int) error {
	return f.record("setState", kind, deviceID, state)
}

func (f *fakeClassic) SetTemperature(_ context.Context, kind eldom.Kind, deviceID string, temperature float64) error {
	return f.record("setTemperature", kind, deviceID, temperature)
}

func (f *fakeClassic) SetPowerful(_ context.Context, kind eldom.Kind, deviceID string) error {
	return f.record("setHeater", kind, deviceID, true)
}

func (f *fakeClassic) ResetEnergy(_ context.Context, kind eldom.Kind, deviceID string) error {
	return f.record("resetEnergy", kind, deviceID, nil)
}

func (f *fakeClassic) GetDevices(context.Context) ([]eldom.ClassicDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.devices, nil
}

func (f *fakeClassic) GetFlatBoilerStatus(_ context.Context, id int) (eldom.FlatBoilerDetails, error) {
	return f.flat[id], f.statusErr
}

func (f *fakeClassic) GetSmartBoilerStatus(_ context.Context, id int) (eldom.SmartBoilerDetails, error) {
	return f.smart[id], f.statusErr
}

func (f *fakeClassic) GetConvectorHeaterStatus(_ context.Context, id int) (eldom.ConvectorHeaterDetails, error) {
	return f.convectors[id], f.statusErr
}

func (f *fakeClassic) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type iotCall struct {
	uuid, name, value string
}

type fakeIoT struct {
	mu     sync.Mutex
	calls  []iotCall
	err    error
	during func()

	devices    []eldom.IoTDevice
	boilers    map[string]eldom.IoTFlatBoilerStatus
	convectors map[string]eldom.IoTConvectorStatus
	statusErr  error
}

func (f *fakeIoT) SendCommand(_ context.Context, uuid, name, value string) error {
	if f.during != nil {
		f.during()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, iotCall{uuid: uuid, name: name, value: value})
	return f.err
}

func (f *fakeIoT) GetDevices(context.Context) ([]eldom.IoTDevice, error) {
	return f.devices, nil
}

func (f *fakeIoT) GetFlatBoilerStatus(_ context.Context, uuid string) (eldom.IoTFlatBoilerStatus, error) {
	return f.boilers[uuid], f.statusErr
}

func (f *fakeIoT) GetConvectorHeaterStatus(_ context.Context, uuid string) (eldom.IoTConvectorStatus, error) {
	return f.convectors[uuid], f.statusErr
}
