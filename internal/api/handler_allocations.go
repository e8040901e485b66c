package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"event-scheduler-backend/internal/model"
)

type allocateRequest struct {
	ResourceIDs []int64 `json:"resource_ids" binding:"required,min=1"`
}

// Allocate commits resources to an event. The response itemizes every
// requested resource; it is 201 when at least one allocation was created
// and 200 otherwise, with per-resource conflicts listed in the body.
func (h *Handler) Allocate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.Allocate(c.Request.Context(), id, req.ResourceIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if len(result.Created()) > 0 {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (h *Handler) ListAllocations(c *gin.Context) {
	allocations, err := h.svc.ListAllocations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, allocations)
}

func (h *Handler) EventAllocations(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	allocations, err := h.svc.AllocationsByEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, allocations)
}

type resourceBooking struct {
	ID         int64       `json:"id"`
	EventID    int64       `json:"event_id"`
	ResourceID int64       `json:"resource_id"`
	Event      model.Event `json:"event"`
}

// ResourceAllocations lists the bookings of a resource with their events.
func (h *Handler) ResourceAllocations(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	allocations, err := h.svc.AllocationsByResource(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	bookings := make([]resourceBooking, 0, len(allocations))
	for _, a := range allocations {
		bookings = append(bookings, resourceBooking{ID: a.ID, EventID: a.EventID, ResourceID: a.ResourceID, Event: a.Event})
	}
	c.JSON(http.StatusOK, bookings)
}

// DeleteAllocation detaches a resource from an event.
func (h *Handler) DeleteAllocation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Detach(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
