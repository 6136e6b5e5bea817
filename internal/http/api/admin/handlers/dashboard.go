package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/luxspa/giftspa/internal/ledger"
	"github.com/luxspa/giftspa/internal/models"
	"gorm.io/gorm"
)

// summarizer is the part of the ledger the dashboard reads.
type summarizer interface {
	Summarize(ctx context.Context) (ledger.Summary, error)
}

// DashboardHandler serves the admin dashboard summary.
type DashboardHandler struct {
	db     *gorm.DB
	ledger summarizer
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(db *gorm.DB, s summarizer) *DashboardHandler {
	return &DashboardHandler{db: db, ledger: s}
}

// Summary returns card counts by status, the total sold amount and fulfillment backlog.
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, errSummary := h.ledger.Summarize(c.Request.Context())
	if errSummary != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "summarize gift cards failed"})
		return
	}

	type taskRow struct {
		Status string
		Count  int64
	}
	var rows []taskRow
	if errTasks := h.db.WithContext(c.Request.Context()).
		Model(&models.FulfillmentTask{}).
		Select("status, COUNT(*) AS count").
		Where("status <> ?", models.FulfillmentDone).
		Group("status").
		Scan(&rows).Error; errTasks != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "summarize fulfillment failed"})
		return
	}
	backlog := gin.H{models.FulfillmentPending: int64(0), models.FulfillmentRunning: int64(0), models.FulfillmentFailed: int64(0)}
	for _, row := range rows {
		backlog[row.Status] = row.Count
	}

	c.JSON(http.StatusOK, gin.H{
		"total":        summary.Total,
		"by_status":    summary.ByStatus,
		"total_amount": summary.TotalAmount,
		"fulfillment":  backlog,
	})
}
