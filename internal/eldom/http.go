package eldom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const userAgent = "eldom-bridge/1.0"

// ErrUnauthorized is returned when the vendor rejects the credentials or session.
var ErrUnauthorized = errors.New("eldom: unauthorized")

type userAgentTransport struct {
	transport http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	return t.transport.RoundTrip(req)
}

// HTTPClient returns an http.Client with the bridge user agent and the given timeout.
func HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &userAgentTransport{transport: http.DefaultTransport},
		Timeout:   timeout,
	}
}

func joinURL(baseURL, endpoint string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	u.Path, err = url.JoinPath(u.Path, endpoint)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func newJSONRequest(ctx context.Context, method, baseURL, endpoint string, body any) (*http.Request, error) {
	u, err := joinURL(baseURL, endpoint)
	if err != nil {
		return nil, err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s body: %w", endpoint, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func newFormRequest(ctx context.Context, baseURL, endpoint string, data url.Values) (*http.Request, error) {
	u, err := joinURL(baseURL, endpoint)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// decodeResponse checks the status code and decodes a JSON body into dest (if non-nil).
func decodeResponse(resp *http.Response, dest any) error {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		// the classic API answers with its HTML login page once the session is gone
		if bytes.HasPrefix(bytes.TrimSpace(body), []byte("<")) {
			return ErrUnauthorized
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
