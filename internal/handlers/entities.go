package handlers

import (
	"errors"
	"io"
	"net/http"

	"eldom_bridge/internal/device"
	"eldom_bridge/internal/entity"
	"eldom_bridge/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK        = "ok"
	statusRefreshed = "refreshed"

	errListEntities    = "failed to list entities"
	errRefresh         = "refresh failed"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// actionStatus maps an entity action error to its HTTP status.
func actionStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrEntityNotFound):
		return http.StatusNotFound
	case errors.Is(err, device.ErrInvalidOperationMode),
		errors.Is(err, service.ErrUnsupportedAction),
		errors.Is(err, service.ErrMissingTemperature),
		errors.Is(err, service.ErrMissingMode):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, entity.ErrOperationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ActionRequest is the optional payload of an entity action.
type ActionRequest struct {
	// Target temperature in Celsius, for set_temperature
	Temperature *float64 `json:"temperature,omitempty" example:"60"`
	// Operation mode (Off, Heating, Smart, Study, ...) or hvac mode (off, heat)
	Mode string `json:"mode,omitempty" example:"Smart"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      List entities
// @Tags         entities
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, entities"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/entities [get]
// @Security     BearerAuth
func (h *Handler) listEntities(c *gin.Context) {
	states, err := h.services.Control.ListEntities(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListEntities, "entities_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(states),
		"entities": states,
	})
}

// @Summary      Get entity state
// @Tags         entities
// @Produce      json
// @Param        id   path      string  true  "Entity unique id"
// @Success      200  {object}  eldom_bridge.EntityState
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/entities/{id} [get]
// @Security     BearerAuth
func (h *Handler) getEntity(c *gin.Context) {
	id := c.Param("id")
	st, err := h.services.Control.GetEntity(c.Request.Context(), id)
	if err != nil {
		code := actionStatus(err)
		if code == http.StatusNotFound {
			c.JSON(code, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, code, err.Error(), "entity_get_failed", err, "unique_id", id)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Run an entity action
// @Description  Actions: turn_on, turn_off, set_temperature, set_operation_mode, set_hvac_mode, press
// @Tags         entities
// @Accept       json
// @Produce      json
// @Param        id      path      string         true   "Entity unique id"
// @Param        action  path      string         true   "Action"  Enums(turn_on,turn_off,set_temperature,set_operation_mode,set_hvac_mode,press)
// @Param        body    body      ActionRequest  false  "Action payload"
// @Success      200     {object}  eldom_bridge.EntityState
// @Failure      400     {object}  map[string]string
// @Failure      401     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Failure      502     {object}  map[string]string
// @Failure      503     {object}  map[string]string
// @Router       /api/v1/entities/{id}/{action} [post]
// @Security     BearerAuth
func (h *Handler) entityAction(c *gin.Context) {
	id, action := c.Param("id"), c.Param("action")

	var req ActionRequest
	// the body is optional; turn_on and press carry none
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	st, err := h.services.Control.Execute(c.Request.Context(), id, action, service.ActionParams{
		Temperature: req.Temperature,
		Mode:        req.Mode,
	})
	if err != nil {
		code := actionStatus(err)
		if code < http.StatusInternalServerError {
			if h.log != nil {
				h.log.Infow("entity_action_rejected", "err", err, "unique_id", id, "action", action)
			}
			c.JSON(code, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, code, err.Error(), "entity_action_failed", err, "unique_id", id, "action", action)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Refresh every entry now
// @Tags         entities
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/refresh [post]
// @Security     BearerAuth
func (h *Handler) refreshAll(c *gin.Context) {
	if err := h.services.Control.RefreshAll(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusBadGateway, errRefresh, "refresh_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusRefreshed})
}
