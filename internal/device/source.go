package device

import (
	"context"
	"fmt"
	"strconv"

	"eldom_bridge/internal/eldom"
	"eldom_bridge/internal/logger"
)

// Devices partitions devices by type, then by id.
type Devices map[Type]map[string]Device

// Len counts the devices over all types.
func (d Devices) Len() int {
	n := 0
	for _, byID := range d {
		n += len(byID)
	}
	return n
}

func (d Devices) add(dev Device) {
	byID, ok := d[dev.Type()]
	if !ok {
		byID = make(map[string]Device)
		d[dev.Type()] = byID
	}
	byID[dev.ID()] = dev
}

// Source fetches the complete device set of one account.
type Source interface {
	Fetch(ctx context.Context) (Devices, error)
}

// ClassicClient is what ClassicSource needs from the classic vendor client.
type ClassicClient interface {
	ClassicAPI
	GetDevices(ctx context.Context) ([]eldom.ClassicDevice, error)
	GetFlatBoilerStatus(ctx context.Context, id int) (eldom.FlatBoilerDetails, error)
	GetSmartBoilerStatus(ctx context.Context, id int) (eldom.SmartBoilerDetails, error)
	GetConvectorHeaterStatus(ctx context.Context, id int) (eldom.ConvectorHeaterDetails, error)
}

// ClassicSource builds devices from the classic cloud.
type ClassicSource struct {
	client ClassicClient
	log    *logger.Logger
}

func NewClassicSource(client ClassicClient, log *logger.Logger) *ClassicSource {
	return &ClassicSource{client: client, log: log}
}

// Fetch lists the devices and reads every status. One failed status read fails
// the whole fetch.
func (s *ClassicSource) Fetch(ctx context.Context) (Devices, error) {
	list, err := s.client.GetDevices(ctx)
	if err != nil {
		return nil, err
	}

	out := make(Devices)
	for _, d := range list {
		id := strconv.Itoa(d.ID)
		switch d.DeviceType {
		case eldom.DeviceTypeFlatBoiler:
			details, err := s.client.GetFlatBoilerStatus(ctx, d.ID)
			if err != nil {
				return nil, err
			}
			out.add(NewFlatBoiler(id, details, s.client, s.log))
		case eldom.DeviceTypeSmartBoiler:
			details, err := s.client.GetSmartBoilerStatus(ctx, d.ID)
			if err != nil {
				return nil, err
			}
			out.add(NewSmartBoiler(id, details, s.client, s.log))
		case eldom.DeviceTypeConvectorHeater:
			details, err := s.client.GetConvectorHeaterStatus(ctx, d.ID)
			if err != nil {
				return nil, err
			}
			out.add(NewConvectorHeater(id, details, s.client, s.log))
		default:
			s.log.Debugw("unsupported_device_type", "device_id", d.RealDeviceID, "device_type", d.DeviceType)
		}
	}
	return out, nil
}

// IoTClient is what IoTSource needs from the IoT vendor client.
type IoTClient interface {
	IoTAPI
	GetDevices(ctx context.Context) ([]eldom.IoTDevice, error)
	GetFlatBoilerStatus(ctx context.Context, uuid string) (eldom.IoTFlatBoilerStatus, error)
	GetConvectorHeaterStatus(ctx context.Context, uuid string) (eldom.IoTConvectorStatus, error)
}

// IoTSource builds devices from the IoT cloud.
type IoTSource struct {
	client IoTClient
	log    *logger.Logger
}

func NewIoTSource(client IoTClient, log *logger.Logger) *IoTSource {
	return &IoTSource{client: client, log: log}
}

func (s *IoTSource) Fetch(ctx context.Context) (Devices, error) {
	list, err := s.client.GetDevices(ctx)
	if err != nil {
		return nil, err
	}

	out := make(Devices)
	for _, d := range list {
		switch d.Model {
		case eldom.ModelFlatBoiler:
			status, err := s.client.GetFlatBoilerStatus(ctx, d.UUID)
			if err != nil {
				return nil, fmt.Errorf("device %s: %w", d.UUID, err)
			}
			out.add(NewIoTFlatBoiler(d, status, s.client, s.log))
		case eldom.ModelConvectorHeater:
			status, err := s.client.GetConvectorHeaterStatus(ctx, d.UUID)
			if err != nil {
				return nil, fmt.Errorf("device %s: %w", d.UUID, err)
			}
			out.add(NewIoTConvectorHeater(d, status, s.client, s.log))
		default:
			s.log.Debugw("unsupported_device_model", "device_id", d.UUID, "model", d.Model)
		}
	}
	return out, nil
}
