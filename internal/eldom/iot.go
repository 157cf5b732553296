package eldom

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// IoTBaseURL is the endpoint of the second generation (IoT) Eldom cloud.
const IoTBaseURL = "https://iot.myeldom.com"

// Device models reported by the IoT device list.
const (
	ModelConvectorHeater = "ConvectorHeater"
	ModelFlatBoiler      = "FlatBoiler"
)

// Command names understood by the IoT command endpoint.
const (
	IoTCommandMode        = "M"
	IoTCommandTemperature = "ST"
	IoTCommandResetEnergy = "RESET_ENERGY"
)

const iotLoginPath = "api/v1/auth/login"

// IoTDevice is one entry of the IoT device list.
type IoTDevice struct {
	UUID            string `json:"uuid"`
	Model           string `json:"model"`
	Name            string `json:"name"`
	SerialNumber    string `json:"serialNumber"`
	FirmwareVersion string `json:"firmwareVersion"`
	HardwareVersion string `json:"hardwareVersion"`
}

// IoTConvectorStatus is the raw IoT convector status. Numeric values arrive as
// strings; temperatures are scaled by ten.
type IoTConvectorStatus struct {
	T   string `json:"T"`   // ambient temperature x10
	ST  string `json:"ST"`  // set temperature x10
	M   string `json:"M"`   // mode code
	PWR string `json:"PWR"` // heating power level
	ED  string `json:"ED"`  // day energy, kWh
	EN  string `json:"EN"`  // night energy, kWh
}

// IoTFlatBoilerStatus is the raw IoT flat boiler status.
type IoTFlatBoilerStatus struct {
	T1 string `json:"T1"` // left chamber x10
	T2 string `json:"T2"` // right chamber x10
	ST string `json:"ST"` // set temperature x10
	M  string `json:"M"`  // mode code
	H  string `json:"H"`  // heater relay, "0" or "1"
	ED string `json:"ED"`
	EN string `json:"EN"`
	ES string `json:"ES"` // saved energy
	RD string `json:"RD"` // energy reset, unix seconds
}

// Scaled parses an x10 integer string into degrees. Unparseable input reads as 0.
func Scaled(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v / 10
}

// Unscaled renders degrees as the x10 integer string the IoT API expects.
func Unscaled(v float64) string {
	return strconv.Itoa(int(math.Round(v * 10)))
}

// Number parses a plain numeric string. Unparseable input reads as 0.
func Number(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

type iotLoginResult struct {
	AccessToken string `json:"access_token"`
}

// IoTClient talks to the IoT Eldom cloud using a bearer token. It logs in lazily
// with the stored credentials and again whenever the token is rejected.
type IoTClient struct {
	client   *http.Client
	baseURL  string
	username string
	password string

	mu    sync.Mutex
	token string
}

// NewIoTClient builds a client; an empty baseURL selects IoTBaseURL.
func NewIoTClient(baseURL, username, password string, timeout time.Duration) *IoTClient {
	if baseURL == "" {
		baseURL = IoTBaseURL
	}
	return &IoTClient{
		client:   HTTPClient(timeout),
		baseURL:  baseURL,
		username: username,
		password: password,
	}
}

// Login fetches a fresh token.
func (c *IoTClient) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

func (c *IoTClient) loginLocked(ctx context.Context) error {
	if c.username == "" {
		return errors.New("missing username")
	}
	if c.password == "" {
		return errors.New("missing password")
	}
	req, err := newJSONRequest(ctx, http.MethodPost, c.baseURL, iotLoginPath, map[string]string{
		"email":    c.username,
		"password": c.password,
	})
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	var res iotLoginResult
	if err := decodeResponse(resp, &res); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if res.AccessToken == "" {
		return fmt.Errorf("login: %w", ErrUnauthorized)
	}
	c.token = res.AccessToken
	return nil
}

func (c *IoTClient) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		if err := c.loginLocked(ctx); err != nil {
			return "", err
		}
	}
	return c.token, nil
}

func (c *IoTClient) do(ctx context.Context, method, endpoint string, body, dest any) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.ensureToken(ctx)
		if err != nil {
			return err
		}
		req, err := newJSONRequest(ctx, method, c.baseURL, endpoint, body)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		err = decodeResponse(resp, dest)
		if !errors.Is(err, ErrUnauthorized) || attempt > 0 {
			return err
		}
		c.mu.Lock()
		if c.token == token {
			c.token = ""
		}
		c.mu.Unlock()
	}
	return nil
}

// GetDevices lists every device registered to the account.
func (c *IoTClient) GetDevices(ctx context.Context) ([]IoTDevice, error) {
	var devices []IoTDevice
	if err := c.do(ctx, http.MethodGet, "api/v1/devices", nil, &devices); err != nil {
		return nil, fmt.Errorf("get devices: %w", err)
	}
	return devices, nil
}

func (c *IoTClient) getStatus(ctx context.Context, uuid string, dest any) error {
	if err := c.do(ctx, http.MethodGet, "api/v1/devices/"+uuid+"/status", nil, dest); err != nil {
		return fmt.Errorf("get %s status: %w", uuid, err)
	}
	return nil
}

func (c *IoTClient) GetConvectorHeaterStatus(ctx context.Context, uuid string) (IoTConvectorStatus, error) {
	var s IoTConvectorStatus
	err := c.getStatus(ctx, uuid, &s)
	return s, err
}

func (c *IoTClient) GetFlatBoilerStatus(ctx context.Context, uuid string) (IoTFlatBoilerStatus, error) {
	var s IoTFlatBoilerStatus
	err := c.getStatus(ctx, uuid, &s)
	return s, err
}

// SendCommand writes a single named value to a device.
func (c *IoTClient) SendCommand(ctx context.Context, uuid, name, value string) error {
	body := map[string]string{"name": name, "value": value}
	if err := c.do(ctx, http.MethodPost, "api/v1/devices/"+uuid+"/commands", body, nil); err != nil {
		return fmt.Errorf("command %s=%s for %s: %w", name, value, uuid, err)
	}
	return nil
}
