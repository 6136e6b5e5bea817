package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/luxspa/giftspa/internal/checkout"
	"github.com/luxspa/giftspa/internal/ledger"
	"github.com/luxspa/giftspa/internal/models"
	log "github.com/sirupsen/logrus"
)

// ExportFileName is the download name of the purchased card export.
const ExportFileName = "purchased_gift_cards.json"

// GiftCardHandler serves purchased gift cards to administrators. Records include the staff note.
type GiftCardHandler struct {
	ledger    ledger.Repository
	fulfiller *checkout.Fulfiller
}

// NewGiftCardHandler constructs a GiftCardHandler.
func NewGiftCardHandler(repo ledger.Repository, fulfiller *checkout.Fulfiller) *GiftCardHandler {
	return &GiftCardHandler{ledger: repo, fulfiller: fulfiller}
}

// List returns purchased cards matching q and any status filter, newest first.
func (h *GiftCardHandler) List(c *gin.Context) {
	filter, ok := parseListFilter(c)
	if !ok {
		return
	}
	cards, errList := h.ledger.List(c.Request.Context(), filter)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list gift cards failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"gift_cards": cards})
}

// Get returns one purchased card.
func (h *GiftCardHandler) Get(c *gin.Context) {
	card, ok := h.find(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, card)
}

// Export downloads the filtered cards as a JSON file.
func (h *GiftCardHandler) Export(c *gin.Context) {
	filter, ok := parseListFilter(c)
	if !ok {
		return
	}
	cards, errList := h.ledger.List(c.Request.Context(), filter)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export gift cards failed"})
		return
	}
	if cards == nil {
		cards = []models.GiftCard{}
	}
	payload, errMarshal := json.MarshalIndent(cards, "", "  ")
	if errMarshal != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export gift cards failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+ExportFileName+`"`)
	c.Data(http.StatusOK, "application/json", payload)
}

// Tasks lists the fulfillment tasks of a card.
func (h *GiftCardHandler) Tasks(c *gin.Context) {
	card, ok := h.find(c)
	if !ok {
		return
	}
	tasks, errTasks := h.fulfiller.Tasks(c.Request.Context(), card.ID)
	if errTasks != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list fulfillment tasks failed"})
		return
	}
	out := make([]gin.H, 0, len(tasks))
	for i := range tasks {
		out = append(out, formatTask(&tasks[i]))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

// Retry re-arms failed fulfillment tasks of a card and runs them now.
func (h *GiftCardHandler) Retry(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	result, errRetry := h.fulfiller.Retry(c.Request.Context(), id)
	if errRetry != nil {
		if errors.Is(errRetry, checkout.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "gift card not found"})
			return
		}
		log.WithError(errRetry).WithField("gift_card_id", id).Error("fulfillment retry failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "retry fulfillment failed"})
		return
	}
	pending := result.Pending
	if pending == nil {
		pending = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"pending_steps":       pending,
		"delivery_email_sent": result.DeliveryEmailSent,
	})
}

func (h *GiftCardHandler) find(c *gin.Context) (*models.GiftCard, bool) {
	id := strings.TrimSpace(c.Param("id"))
	card, errGet := h.ledger.Get(c.Request.Context(), id)
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query gift card failed"})
		return nil, false
	}
	if card == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "gift card not found"})
		return nil, false
	}
	return card, true
}

// parseListFilter reads q, status (repeatable or comma separated), limit and offset.
func parseListFilter(c *gin.Context) (ledger.ListFilter, bool) {
	filter := ledger.ListFilter{
		Query:    strings.TrimSpace(c.Query("q")),
		Statuses: c.QueryArray("status"),
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, errParse := strconv.Atoi(raw)
		if errParse != nil || limit < 0 || limit > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 0 and 1000"})
			return filter, false
		}
		filter.Limit = limit
	}
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		offset, errParse := strconv.Atoi(raw)
		if errParse != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset cannot be negative"})
			return filter, false
		}
		filter.Offset = offset
	}
	return filter, true
}

func formatTask(task *models.FulfillmentTask) gin.H {
	out := gin.H{
		"step":         task.Step,
		"status":       task.Status,
		"attempts":     task.Attempts,
		"last_error":   task.LastError,
		"locked_until": task.LockedUntil,
		"completed_at": task.CompletedAt,
		"updated_at":   task.UpdatedAt,
	}
	if len(task.Details) > 0 {
		out["details"] = json.RawMessage(task.Details)
	}
	return out
}
