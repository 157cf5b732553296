package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eldom_bridge"
	"eldom_bridge/internal/device"
	"eldom_bridge/internal/eldom"
	"eldom_bridge/internal/logger"
)

var (
	ErrInvalidAuth   = errors.New("invalid_auth")
	ErrCannotConnect = errors.New("cannot_connect")
	ErrInvalidAPI    = errors.New("unknown api family")
)

// Connector logs into the vendor cloud of an entry and returns its device source.
type Connector interface {
	Connect(ctx context.Context, entry eldom_bridge.Entry) (device.Source, error)
}

// VendorConnector builds the real vendor clients. Empty URLs select the
// production endpoints.
type VendorConnector struct {
	ClassicURL string
	IoTURL     string
	Timeout    time.Duration
	Log        *logger.Logger
}

// Connect logs in and lists the devices once; the classic login accepts wrong
// credentials, so the listing is what validates them.
func (c *VendorConnector) Connect(ctx context.Context, entry eldom_bridge.Entry) (device.Source, error) {
	log := c.Log.With("entry_id", entry.UniqueID)
	switch entry.API {
	case eldom_bridge.APIClassic, "":
		client := eldom.NewClassicClient(c.ClassicURL, c.Timeout)
		if err := client.Login(ctx, entry.Username, entry.Password); err != nil {
			return nil, classify(err)
		}
		if _, err := client.GetDevices(ctx); err != nil {
			return nil, classify(err)
		}
		return device.NewClassicSource(client, log), nil
	case eldom_bridge.APIIoT:
		client := eldom.NewIoTClient(c.IoTURL, entry.Username, entry.Password, c.Timeout)
		if err := client.Login(ctx); err != nil {
			return nil, classify(err)
		}
		if _, err := client.GetDevices(ctx); err != nil {
			return nil, classify(err)
		}
		return device.NewIoTSource(client, log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAPI, entry.API)
	}
}

func classify(err error) error {
	if errors.Is(err, eldom.ErrUnauthorized) {
		return fmt.Errorf("%w: %w", ErrInvalidAuth, err)
	}
	return fmt.Errorf("%w: %w", ErrCannotConnect, err)
}
