package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/luxspa/giftspa/internal/catalog"
)

// CatalogHandler serves the read-only design and package catalogs.
type CatalogHandler struct {
	catalog catalog.Catalog
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(c catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// Designs lists the card design templates.
func (h *CatalogHandler) Designs(c *gin.Context) {
	designs, errList := h.catalog.Designs(c.Request.Context())
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list designs failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"designs": designs})
}

// Packages lists the spa packages.
func (h *CatalogHandler) Packages(c *gin.Context) {
	packages, errList := h.catalog.Packages(c.Request.Context())
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list packages failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": packages})
}
