package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"event-scheduler-backend/internal/schedule"
)

type eventRequest struct {
	Title       string `json:"title" binding:"required"`
	StartTime   string `json:"start_time" binding:"required"`
	EndTime     string `json:"end_time" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) bindEvent(c *gin.Context) (schedule.EventInput, bool) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return schedule.EventInput{}, false
	}
	start, err := h.parseTime("start_time", req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return schedule.EventInput{}, false
	}
	end, err := h.parseTime("end_time", req.EndTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return schedule.EventInput{}, false
	}
	return schedule.EventInput{Title: req.Title, StartTime: start, EndTime: end, Description: req.Description}, true
}

// ListEvents returns all events, most recent first.
func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.svc.ListEvents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	e, err := h.svc.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) CreateEvent(c *gin.Context) {
	in, ok := h.bindEvent(c)
	if !ok {
		return
	}
	e, err := h.svc.CreateEvent(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// UpdateEvent rejects the edit with 409 when the new interval conflicts
// with any of the event's allocations.
func (h *Handler) UpdateEvent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	in, ok := h.bindEvent(c)
	if !ok {
		return
	}
	e, err := h.svc.UpdateEvent(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteEvent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteEvent(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
