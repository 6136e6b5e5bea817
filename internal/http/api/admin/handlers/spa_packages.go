package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/luxspa/giftspa/internal/catalog"
	"github.com/luxspa/giftspa/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var packageIDPattern = regexp.MustCompile(`^[a-z0-9_-]{3,64}$`)

// SpaPackageHandler handles admin operations for spa packages.
type SpaPackageHandler struct {
	db *gorm.DB
}

// NewSpaPackageHandler constructs a SpaPackageHandler.
func NewSpaPackageHandler(db *gorm.DB) *SpaPackageHandler {
	return &SpaPackageHandler{db: db}
}

// spaPackageRequest captures the payload for creating or updating a package.
type spaPackageRequest struct {
	ID          string           `json:"id"` // Optional on create; ignored on update.
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	SortOrder   *int             `json:"sortOrder"`
}

func (r spaPackageRequest) apply(pkg *models.SpaPackage) {
	if r.Name != nil {
		pkg.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		pkg.Description = strings.TrimSpace(*r.Description)
	}
	if r.Price != nil {
		pkg.Price = *r.Price
	}
	if r.SortOrder != nil {
		pkg.SortOrder = *r.SortOrder
	}
}

// List returns packages by display order.
func (h *SpaPackageHandler) List(c *gin.Context) {
	var packages []models.SpaPackage
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("sort_order ASC, price ASC, id ASC").
		Find(&packages).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list spa packages failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"spa_packages": packages})
}

// Get returns one package.
func (h *SpaPackageHandler) Get(c *gin.Context) {
	pkg, ok := h.find(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, pkg)
}

// Create validates and persists a package.
func (h *SpaPackageHandler) Create(c *gin.Context) {
	var body spaPackageRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	id := strings.TrimSpace(body.ID)
	if id == "" {
		id = "pkg_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	if !packageIDPattern.MatchString(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be 3-64 lowercase letters, digits, '-' or '_'"})
		return
	}
	if body.Price == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing price"})
		return
	}
	pkg := models.SpaPackage{ID: id}
	body.apply(&pkg)
	if errs := catalog.ValidatePackage(pkg); !errs.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid spa package", "errors": errs})
		return
	}

	var existing int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.SpaPackage{}).Where("id = ?", id).Count(&existing).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create spa package failed"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "spa package id already exists"})
		return
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&pkg).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create spa package failed"})
		return
	}
	c.JSON(http.StatusCreated, pkg)
}

// Update applies a partial update. Purchased cards keep the name and price they were bought with.
func (h *SpaPackageHandler) Update(c *gin.Context) {
	var body spaPackageRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	pkg, ok := h.find(c)
	if !ok {
		return
	}
	body.apply(pkg)
	if errs := catalog.ValidatePackage(*pkg); !errs.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid spa package", "errors": errs})
		return
	}
	if errSave := h.db.WithContext(c.Request.Context()).Save(pkg).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update spa package failed"})
		return
	}
	c.JSON(http.StatusOK, pkg)
}

// Delete removes a package.
func (h *SpaPackageHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	res := h.db.WithContext(c.Request.Context()).Where("id = ?", id).Delete(&models.SpaPackage{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete spa package failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "spa package not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *SpaPackageHandler) find(c *gin.Context) (*models.SpaPackage, bool) {
	id := strings.TrimSpace(c.Param("id"))
	var pkg models.SpaPackage
	if errFind := h.db.WithContext(c.Request.Context()).Where("id = ?", id).First(&pkg).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "spa package not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query spa package failed"})
		return nil, false
	}
	return &pkg, true
}
