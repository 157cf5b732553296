package eldom

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// ClassicBaseURL is the endpoint of the first generation Eldom cloud.
const ClassicBaseURL = "https://myeldom.com"

// Device type codes reported by the classic device list.
const (
	DeviceTypeConvectorHeater = 4
	DeviceTypeSmartBoiler     = 5
	DeviceTypeFlatBoiler      = 7
)

// Kind selects the per-device-type endpoint group of the classic API.
type Kind string

const (
	KindFlatBoiler      Kind = "flatboiler"
	KindSmartBoiler     Kind = "smartboiler"
	KindConvectorHeater Kind = "convector"
)

const classicLoginPath = "Account/Login"

// ClassicDevice is one entry of the classic device list.
type ClassicDevice struct {
	ID           int    `json:"id"`
	RealDeviceID string `json:"realDeviceId"`
	DeviceType   int    `json:"deviceType"`
	Name         string `json:"name"`
}

// FlatBoilerDetails is the status of a flat boiler (two chambers).
type FlatBoilerDetails struct {
	DeviceID        string    `json:"DeviceID"`
	Type            int       `json:"Type"`
	SoftwareVersion string    `json:"SoftwareVersion"`
	HardwareVersion string    `json:"HardwareVersion"`
	State           int       `json:"State"`
	SetTemp         float64   `json:"SetTemp"`
	STLTemp         float64   `json:"STL_Temp"`
	FTTemp          float64   `json:"FT_Temp"`
	HasBoost        bool      `json:"HasBoost"`
	EnergyD         float64   `json:"EnergyD"`
	EnergyN         float64   `json:"EnergyN"`
	SavedEnergy     float64   `json:"SavedEnergy"`
	PowerFlag       int       `json:"PowerFlag"`
	ResetDate       time.Time `json:"EnergyUsageResetDate"`
}

// SmartBoilerDetails is the status of a smart (cylindrical) boiler.
type SmartBoilerDetails struct {
	DeviceID        string    `json:"DeviceID"`
	Type            int       `json:"Type"`
	SoftwareVersion string    `json:"SoftwareVersion"`
	HardwareVersion string    `json:"HardwareVersion"`
	State           int       `json:"State"`
	SetTemp         float64   `json:"SetTemp"`
	WHTempL         float64   `json:"WH_TempL"`
	BoostHeating    bool      `json:"BoostHeating"`
	EnergyD         float64   `json:"EnergyD"`
	EnergyN         float64   `json:"EnergyN"`
	SavedEnergy     float64   `json:"SavedEnergy"`
	Heater          bool      `json:"Heater"`
	ResetDate       time.Time `json:"EnergyUsageResetDate"`
}

// ConvectorHeaterDetails is the status of a convector heater.
type ConvectorHeaterDetails struct {
	DeviceID        string  `json:"DeviceID"`
	Type            int     `json:"Type"`
	SoftwareVersion string  `json:"SoftwareVersion"`
	HardwareVersion string  `json:"HardwareVersion"`
	State           int     `json:"State"`
	SetTemp         float64 `json:"SetTemp"`
	AmbientTemp     float64 `json:"AmbientTemp"`
	BoostHeating    bool    `json:"BoostHeating"`
	EnergyD         float64 `json:"EnergyD"`
	EnergyN         float64 `json:"EnergyN"`
	Power           int     `json:"Power"`
}

// ClassicClient talks to the first generation Eldom cloud. The session is a cookie
// obtained by the form login.
type ClassicClient struct {
	client  *http.Client
	baseURL string

	mu       sync.Mutex
	username string
	password string
	loggedIn bool
}

// NewClassicClient builds a client; an empty baseURL selects ClassicBaseURL.
func NewClassicClient(baseURL string, timeout time.Duration) *ClassicClient {
	if baseURL == "" {
		baseURL = ClassicBaseURL
	}
	jar, _ := cookiejar.New(nil) // only fails on a non-nil PublicSuffixList
	client := HTTPClient(timeout)
	client.Jar = jar
	return &ClassicClient{client: client, baseURL: baseURL}
}

// Login posts the credentials and keeps the session cookie. The endpoint accepts
// wrong credentials silently; callers validate with GetDevices.
func (c *ClassicClient) Login(ctx context.Context, username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
	c.password = password
	return c.loginLocked(ctx)
}

func (c *ClassicClient) loginLocked(ctx context.Context) error {
	if c.username == "" {
		return errors.New("missing username")
	}
	if c.password == "" {
		return errors.New("missing password")
	}
	data := url.Values{}
	data.Set("Email", c.username)
	data.Set("Password", c.password)

	req, err := newFormRequest(ctx, c.baseURL, classicLoginPath, data)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	if err := decodeResponse(resp, nil); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.loggedIn = true
	return nil
}

// do sends the request built by build and retries once after a fresh login when the
// session expired.
func (c *ClassicClient) do(ctx context.Context, build func() (*http.Request, error), dest any) error {
	for attempt := 0; attempt < 2; attempt++ {
		req, err := build()
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		err = decodeResponse(resp, dest)
		if !errors.Is(err, ErrUnauthorized) || attempt > 0 {
			return err
		}

		c.mu.Lock()
		canRetry := c.loggedIn
		if canRetry {
			err = c.loginLocked(ctx)
		}
		c.mu.Unlock()
		if !canRetry {
			return ErrUnauthorized
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// GetDevices lists every device registered to the account.
func (c *ClassicClient) GetDevices(ctx context.Context) ([]ClassicDevice, error) {
	var devices []ClassicDevice
	err := c.do(ctx, func() (*http.Request, error) {
		return newJSONRequest(ctx, http.MethodGet, c.baseURL, "api/device/getmy", nil)
	}, &devices)
	if err != nil {
		return nil, fmt.Errorf("get devices: %w", err)
	}
	return devices, nil
}

func (c *ClassicClient) getStatus(ctx context.Context, kind Kind, id int, dest any) error {
	endpoint := "api/" + string(kind) + "/" + strconv.Itoa(id)
	err := c.do(ctx, func() (*http.Request, error) {
		return newJSONRequest(ctx, http.MethodGet, c.baseURL, endpoint, nil)
	}, dest)
	if err != nil {
		return fmt.Errorf("get %s %d status: %w", kind, id, err)
	}
	return nil
}

func (c *ClassicClient) GetFlatBoilerStatus(ctx context.Context, id int) (FlatBoilerDetails, error) {
	var d FlatBoilerDetails
	err := c.getStatus(ctx, KindFlatBoiler, id, &d)
	return d, err
}

func (c *ClassicClient) GetSmartBoilerStatus(ctx context.Context, id int) (SmartBoilerDetails, error) {
	var d SmartBoilerDetails
	err := c.getStatus(ctx, KindSmartBoiler, id, &d)
	return d, err
}

func (c *ClassicClient) GetConvectorHeaterStatus(ctx context.Context, id int) (ConvectorHeaterDetails, error) {
	var d ConvectorHeaterDetails
	err := c.getStatus(ctx, KindConvectorHeater, id, &d)
	return d, err
}

func (c *ClassicClient) command(ctx context.Context, kind Kind, action string, body map[string]any) error {
	endpoint := "api/" + string(kind) + "/" + action
	err := c.do(ctx, func() (*http.Request, error) {
		return newJSONRequest(ctx, http.MethodPost, c.baseURL, endpoint, body)
	}, nil)
	if err != nil {
		return fmt.Errorf("%s %s for %v: %w", kind, action, body["deviceId"], err)
	}
	return nil
}

// SetState sets the operation mode code of a device.
func (c *ClassicClient) SetState(ctx context.Context, kind Kind, deviceID string, state int) error {
	return c.command(ctx, kind, "setState", map[string]any{"deviceId": deviceID, "state": state})
}

// SetTemperature sets the target temperature; the value is forwarded unchanged.
func (c *ClassicClient) SetTemperature(ctx context.Context, kind Kind, deviceID string, temperature float64) error {
	return c.command(ctx, kind, "setTemperature", map[string]any{"deviceId": deviceID, "temperature": temperature})
}

// SetPowerful switches on the boost heater. There is no inverse call.
func (c *ClassicClient) SetPowerful(ctx context.Context, kind Kind, deviceID string) error {
	return c.command(ctx, kind, "setHeater", map[string]any{"deviceId": deviceID, "heater": true})
}

// ResetEnergy zeroes the energy counters of a boiler.
func (c *ClassicClient) ResetEnergy(ctx context.Context, kind Kind, deviceID string) error {
	return c.command(ctx, kind, "resetEnergy", map[string]any{"deviceId": deviceID})
}
