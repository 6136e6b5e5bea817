package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/luxspa/giftspa/internal/catalog"
	dbutil "github.com/luxspa/giftspa/internal/db"
	"github.com/luxspa/giftspa/internal/models"
	"gorm.io/gorm"
)

// DesignTemplateHandler handles admin operations for card design templates.
type DesignTemplateHandler struct {
	db *gorm.DB // Database handle for template queries.
}

// NewDesignTemplateHandler wires a design template handler with its database dependency.
func NewDesignTemplateHandler(db *gorm.DB) *DesignTemplateHandler {
	return &DesignTemplateHandler{db: db}
}

// designTemplateRequest captures the payload for creating or updating a template.
type designTemplateRequest struct {
	Name             *string `json:"name"`             // Display name.
	ImageURL         *string `json:"imageUrl"`         // Artwork location.
	AIHint           *string `json:"aiHint"`           // Optional image search hint.
	FeaturedOccasion *string `json:"featuredOccasion"` // Optional featured occasion.
	SortOrder        *int    `json:"sortOrder"`        // Optional display order.
}

// apply copies the provided fields onto tpl.
func (r designTemplateRequest) apply(tpl *models.DesignTemplate) {
	if r.Name != nil {
		tpl.Name = strings.TrimSpace(*r.Name)
	}
	if r.ImageURL != nil {
		tpl.ImageURL = strings.TrimSpace(*r.ImageURL)
	}
	if r.AIHint != nil {
		tpl.AIHint = strings.TrimSpace(*r.AIHint)
	}
	if r.FeaturedOccasion != nil {
		tpl.FeaturedOccasion = strings.TrimSpace(*r.FeaturedOccasion)
	}
	if r.SortOrder != nil {
		tpl.SortOrder = *r.SortOrder
	}
}

// List returns design templates, optionally filtered by name.
func (h *DesignTemplateHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.DesignTemplate{})
	if nameQ := strings.TrimSpace(c.Query("name")); nameQ != "" {
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "name"), dbutil.ContainsPattern(h.db, nameQ))
	}
	var templates []models.DesignTemplate
	if errFind := q.Order("sort_order ASC, created_at ASC, id ASC").Find(&templates).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list design templates failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"design_templates": templates})
}

// Get returns one design template.
func (h *DesignTemplateHandler) Get(c *gin.Context) {
	tpl, ok := h.find(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// Create validates input and persists a new template with a generated id.
func (h *DesignTemplateHandler) Create(c *gin.Context) {
	var body designTemplateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	tpl := models.DesignTemplate{ID: "template_" + uuid.NewString()}
	body.apply(&tpl)
	if errs := catalog.ValidateDesign(tpl); !errs.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid design template", "errors": errs})
		return
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&tpl).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create design template failed"})
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

// Update applies a partial update to a template.
func (h *DesignTemplateHandler) Update(c *gin.Context) {
	var body designTemplateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	tpl, ok := h.find(c)
	if !ok {
		return
	}
	body.apply(tpl)
	if errs := catalog.ValidateDesign(*tpl); !errs.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid design template", "errors": errs})
		return
	}
	if errSave := h.db.WithContext(c.Request.Context()).Save(tpl).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update design template failed"})
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// Delete removes a template. Existing purchases keep their design id.
func (h *DesignTemplateHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	res := h.db.WithContext(c.Request.Context()).Where("id = ?", id).Delete(&models.DesignTemplate{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete design template failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "design template not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *DesignTemplateHandler) find(c *gin.Context) (*models.DesignTemplate, bool) {
	id := strings.TrimSpace(c.Param("id"))
	var tpl models.DesignTemplate
	if errFind := h.db.WithContext(c.Request.Context()).Where("id = ?", id).First(&tpl).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "design template not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query design template failed"})
		return nil, false
	}
	return &tpl, true
}
