package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/luxspa/giftspa/internal/checkout"
	"github.com/luxspa/giftspa/internal/giftcard"
	"github.com/luxspa/giftspa/internal/ledger"
	"github.com/luxspa/giftspa/internal/metrics"
	"github.com/luxspa/giftspa/internal/security"
	log "github.com/sirupsen/logrus"
)

var lastFourPattern = regexp.MustCompile(`^\d{4}$`)

// GiftCardFrontHandler serves gift card retrieval and document downloads.
type GiftCardFrontHandler struct {
	ledger    ledger.Repository
	fulfiller *checkout.Fulfiller
	links     checkout.Links
	metrics   *metrics.Metrics
}

// NewGiftCardFrontHandler constructs a GiftCardFrontHandler.
func NewGiftCardFrontHandler(repo ledger.Repository, fulfiller *checkout.Fulfiller, links checkout.Links, m *metrics.Metrics) *GiftCardFrontHandler {
	return &GiftCardFrontHandler{ledger: repo, fulfiller: fulfiller, links: links, metrics: m}
}

// retrieveRequest identifies a card by delivery email and the last four payment digits.
type retrieveRequest struct {
	Email          string `json:"email"`
	LastFourDigits string `json:"last_four_digits"`
}

// Retrieve looks up a card by delivery email and payment last four.
func (h *GiftCardFrontHandler) Retrieve(c *gin.Context) {
	var body retrieveRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.TrimSpace(body.Email)
	if !giftcard.ValidEmail(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "please enter a valid email address"})
		return
	}
	lastFour := strings.TrimSpace(body.LastFourDigits)
	if !lastFourPattern.MatchString(lastFour) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "must be 4 digits"})
		return
	}

	card, errFind := h.ledger.FindByEmailAndLast4(c.Request.Context(), email, lastFour)
	if errFind != nil {
		log.WithError(errFind).Error("gift card lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	h.metrics.Lookup(card != nil)
	if card == nil {
		c.JSON(http.StatusNotFound, gin.H{"gift_card": nil, "error": "no gift card found for these details"})
		return
	}

	documentPath, errLink := h.links.DocumentPath(card.ID)
	if errLink != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign document link failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"gift_card": toGiftCardDTO(card), "document_url": documentPath})
}

// Document downloads the printable card. The signed token must name the requested card.
func (h *GiftCardFrontHandler) Document(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	token := strings.TrimSpace(c.Query("token"))
	if id == "" || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	claims, errParse := security.ParseArtifactToken(h.links.Secret, token)
	if errParse != nil {
		if errors.Is(errParse, security.ErrExpiredToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "download link expired"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if claims.GiftCardID != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not match gift card"})
		return
	}

	card, errGet := h.ledger.Get(c.Request.Context(), id)
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query gift card failed"})
		return
	}
	if card == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "gift card not found"})
		return
	}
	doc, errDoc := h.fulfiller.Document(c.Request.Context(), card)
	if errDoc != nil {
		log.WithError(errDoc).WithField("gift_card_id", card.ID).Error("render gift card document failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "document unavailable"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}
