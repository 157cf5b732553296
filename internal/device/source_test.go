package device

import (
	"context"
	"errors"
	"testing"

	"eldom_bridge/internal/eldom"
	"eldom_bridge/internal/logger"
)

func TestClassicSource_FetchPartitionsByType(t *testing.T) {
	api := &fakeClassic{
		devices: []eldom.ClassicDevice{
			{ID: 1, DeviceType: eldom.DeviceTypeFlatBoiler},
			{ID: 2, DeviceType: eldom.DeviceTypeSmartBoiler},
			{ID: 3, DeviceType: eldom.DeviceTypeConvectorHeater},
			{ID: 4, DeviceType: 99},
		},
		flat:       map[int]eldom.FlatBoilerDetails{1: {DeviceID: "F1"}},
		smart:      map[int]eldom.SmartBoilerDetails{2: {DeviceID: "S2"}},
		convectors: map[int]eldom.ConvectorHeaterDetails{3: {DeviceID: "C3"}},
	}

	devices, err := NewClassicSource(api, logger.Nop()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if devices.Len() != 3 {
		t.Fatalf("expected 3 devices, got %d", devices.Len())
	}
	if d := devices[TypeFlatBoiler]["1"]; d == nil || d.DeviceID() != "F1" {
		t.Errorf("flat boiler missing: %v", d)
	}
	if d := devices[TypeSmartBoiler]["2"]; d == nil || d.DeviceID() != "S2" {
		t.Errorf("smart boiler missing: %v", d)
	}
	if d := devices[TypeConvectorHeater]["3"]; d == nil || d.DeviceID() != "C3" {
		t.Errorf("convector missing: %v", d)
	}
}

func TestClassicSource_StatusFailureAbortsFetch(t *testing.T) {
	api := &fakeClassic{
		devices:   []eldom.ClassicDevice{{ID: 1, DeviceType: eldom.DeviceTypeFlatBoiler}},
		statusErr: errors.New("timeout"),
	}

	devices, err := NewClassicSource(api, logger.Nop()).Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if devices != nil {
		t.Errorf("expected no partial result, got %v", devices)
	}
}

func TestIoTSource_Fetch(t *testing.T) {
	api := &fakeIoT{
		devices: []eldom.IoTDevice{
			{UUID: "b", Model: eldom.ModelFlatBoiler},
			{UUID: "c", Model: eldom.ModelConvectorHeater},
		},
		boilers:    map[string]eldom.IoTFlatBoilerStatus{"b": {M: "1"}},
		convectors: map[string]eldom.IoTConvectorStatus{"c": {T: "180"}},
	}

	devices, err := NewIoTSource(api, logger.Nop()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if devices[TypeIoTFlatBoiler]["b"].CurrentOperation() != ModeHeating {
		t.Error("iot boiler not built")
	}
	if devices[TypeIoTConvectorHeater]["c"].CurrentTemperature() != 18 {
		t.Error("iot convector not built")
	}
}
