package handlers

import (
	"errors"
	"net/http"

	"eldom_bridge/internal/service"

	"github.com/gin-gonic/gin"
)

const errListEntries = "failed to list entries"

// CreateEntryRequest is the config flow payload.
type CreateEntryRequest struct {
	Username string `json:"username" binding:"required" example:"me@example.com"`
	Password string `json:"password" binding:"required" example:"secret"`
	// API family: eldom (default) or iot_eldom
	API string `json:"api,omitempty" example:"eldom" enums:"eldom,iot_eldom"`
}

// @Summary      List config entries
// @Tags         entries
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, entries"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/entries [get]
// @Security     BearerAuth
func (h *Handler) listEntries(c *gin.Context) {
	list, err := h.services.Entries.ListEntries(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListEntries, "entries_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(list),
		"entries": list,
	})
}

// @Summary      Add a vendor account
// @Description  Validates the credentials against the vendor cloud and sets the entry up.
// @Tags         entries
// @Accept       json
// @Produce      json
// @Param        body  body      CreateEntryRequest  true  "Account"
// @Success      201   {object}  eldom_bridge.Entry
// @Failure      400   {object}  map[string]interface{}  "errors.base: invalid_auth | cannot_connect"
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/entries [post]
// @Security     BearerAuth
func (h *Handler) createEntry(c *gin.Context) {
	var req CreateEntryRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	entry, err := h.services.Entries.CreateEntry(c.Request.Context(), service.EntryParams{
		Username: req.Username,
		Password: req.Password,
		API:      req.API,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidAuth):
		c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"base": service.ErrInvalidAuth.Error()}})
		return
	case errors.Is(err, service.ErrCannotConnect):
		c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"base": service.ErrCannotConnect.Error()}})
		return
	case errors.Is(err, service.ErrAlreadyConfigured):
		c.JSON(http.StatusConflict, gin.H{"error": service.ErrAlreadyConfigured.Error()})
		return
	case errors.Is(err, service.ErrInvalidAPI):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to create entry", "entry_create_failed", err, "username", req.Username)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// @Summary      Remove a vendor account
// @Tags         entries
// @Produce      json
// @Param        id   path  string  true  "Entry unique id"
// @Success      204
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/entries/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteEntry(c *gin.Context) {
	id := c.Param("id")
	err := h.services.Entries.DeleteEntry(c.Request.Context(), id)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, service.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to delete entry", "entry_delete_failed", err, "entry_id", id)
	}
}
