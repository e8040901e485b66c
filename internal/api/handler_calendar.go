package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"event-scheduler-backend/internal/calendar"
)

// CalendarFeed serves every event as an iCalendar feed.
func (h *Handler) CalendarFeed(c *gin.Context) {
	snap, err := h.store.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, calendar.ContentType, []byte(calendar.All(snap, h.now())))
}

// ResourceCalendarFeed serves the bookings of one resource as an iCalendar feed.
func (h *Handler) ResourceCalendarFeed(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := h.svc.GetResource(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	snap, err := h.store.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, calendar.ContentType, []byte(calendar.ForResource(snap, id, h.now())))
}
