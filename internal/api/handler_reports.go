package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"event-scheduler-backend/internal/report"
)

// GetStats returns the dashboard counts.
func (h *Handler) GetStats(c *gin.Context) {
	counts, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// ListConflicts returns every pair of overlapping allocations of one resource.
func (h *Handler) ListConflicts(c *gin.Context) {
	conflicts, err := h.svc.FindAllConflicts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conflicts)
}

// CheckConflict answers whether a resource is free for an interval:
// GET /api/conflicts/check?resource_id=&start=&end=[&exclude_event_id=]
func (h *Handler) CheckConflict(c *gin.Context) {
	resourceID, err := strconv.ParseInt(c.Query("resource_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resource_id"})
		return
	}
	var exclude int64
	if raw := c.Query("exclude_event_id"); raw != "" {
		if exclude, err = strconv.ParseInt(raw, 10, 64); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exclude_event_id"})
			return
		}
	}
	start, err := h.parseTime("start", c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	end, err := h.parseTime("end", c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conflict, reason, err := h.svc.CheckConflict(c.Request.Context(), resourceID, exclude, start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conflict": conflict, "reason": reason})
}

// ScheduleOverview lists all time-overlapping event pairs, tagged by what
// they share.
func (h *Handler) ScheduleOverview(c *gin.Context) {
	overlaps, err := h.svc.ScheduleOverview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overlaps)
}

// UtilizationReport returns per-resource utilization as JSON, or as a file
// when format is given.
func (h *Handler) UtilizationReport(c *gin.Context) {
	today := h.now().In(h.svc.Location()).Format("2006-01-02")
	from, err := h.parseDate("start", c.DefaultQuery("start", today))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := h.parseDate("end", c.DefaultQuery("end", today))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.svc.CalculateUtilization(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	format := c.Query("format")
	if format == "" {
		c.JSON(http.StatusOK, gin.H{
			"start_date":  from.Format("2006-01-02"),
			"end_date":    to.Format("2006-01-02"),
			"utilization": rows,
		})
		return
	}
	h.sendFile(c, func() (*report.File, error) { return h.exporter.Utilization(format, from, to, rows) })
}

// ConflictsReport exports the conflict list as a file.
func (h *Handler) ConflictsReport(c *gin.Context) {
	conflicts, err := h.svc.FindAllConflicts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	format := c.DefaultQuery("format", report.FormatCSV)
	h.sendFile(c, func() (*report.File, error) { return h.exporter.Conflicts(format, conflicts) })
}

func (h *Handler) sendFile(c *gin.Context, export func() (*report.File, error)) {
	f, err := export()
	if err != nil {
		if errors.Is(err, report.ErrUnsupportedFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", f.Filename))
	c.Data(http.StatusOK, f.ContentType, f.Data)
}

