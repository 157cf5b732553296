package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"eldom_bridge"
	"eldom_bridge/internal/device"
	"eldom_bridge/internal/entity"
	"eldom_bridge/internal/service"
)

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&service.Service{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}
}

func TestEntityHandlers_ListAndGet(t *testing.T) {
	ctl := &mockControl{
		states: []eldom_bridge.EntityState{{UniqueID: "FB0001", Kind: "water_heater"}},
		state:  eldom_bridge.EntityState{UniqueID: "CV0002", Kind: "climate", State: "heat"},
	}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, Control: ctl})

	// requires auth
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/entities", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	w = doRequest(r, http.MethodGet, "/api/v1/entities", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count    int                        `json:"count"`
		Entities []eldom_bridge.EntityState `json:"entities"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 1 || out.Entities[0].UniqueID != "FB0001" {
		t.Fatalf("unexpected list: %+v", out)
	}

	w = doRequest(r, http.MethodGet, "/api/v1/entities/CV0002", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d", w.Code)
	}
	if ctl.lastID != "CV0002" {
		t.Fatalf("expected lookup of CV0002, got %q", ctl.lastID)
	}

	ctl.getErr = service.ErrEntityNotFound
	w = doRequest(r, http.MethodGet, "/api/v1/entities/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestEntityHandlers_Action(t *testing.T) {
	ctl := &mockControl{state: eldom_bridge.EntityState{UniqueID: "FB0001", State: "Smart"}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, Control: ctl})

	w := doRequest(r, http.MethodPost, "/api/v1/entities/FB0001/set_temperature", `{"temperature":62.5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("action status=%d, body=%s", w.Code, w.Body.String())
	}
	if ctl.lastAction != service.ActionSetTemperature || ctl.lastParams.Temperature == nil || *ctl.lastParams.Temperature != 62.5 {
		t.Fatalf("unexpected dispatch: %s %+v", ctl.lastAction, ctl.lastParams)
	}

	// no body is fine for turn_on / press
	w = doRequest(r, http.MethodPost, "/api/v1/entities/FB0001/turn_on", "")
	if w.Code != http.StatusOK {
		t.Fatalf("turn_on status=%d, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(r, http.MethodPost, "/api/v1/entities/FB0001/set_temperature", `{"temperature":"hot"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad body, got %d", w.Code)
	}
}

func TestEntityHandlers_ActionErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrEntityNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: %q", device.ErrInvalidOperationMode, "Turbo"), http.StatusBadRequest},
		{service.ErrUnsupportedAction, http.StatusBadRequest},
		{service.ErrMissingTemperature, http.StatusBadRequest},
		{fmt.Errorf("%w: FB0001", entity.ErrUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: set_temperature", entity.ErrOperationFailed), http.StatusBadGateway},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			ctl := &mockControl{execErr: tc.err}
			r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, Control: ctl})
			w := doRequest(r, http.MethodPost, "/api/v1/entities/FB0001/set_operation_mode", `{"mode":"Turbo"}`)
			if w.Code != tc.want {
				t.Fatalf("status=%d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestRefreshHandler(t *testing.T) {
	ctl := &mockControl{}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, Control: ctl})

	w := doRequest(r, http.MethodPost, "/api/v1/refresh", "")
	if w.Code != http.StatusOK || ctl.refreshes != 1 {
		t.Fatalf("refresh status=%d calls=%d", w.Code, ctl.refreshes)
	}

	ctl.refreshErr = errors.New("vendor down")
	w = doRequest(r, http.MethodPost, "/api/v1/refresh", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}
