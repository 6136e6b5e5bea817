package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/luxspa/giftspa/internal/catalog"
	"github.com/luxspa/giftspa/internal/giftcard"
	"github.com/luxspa/giftspa/internal/session"
	log "github.com/sirupsen/logrus"
)

// DraftHandler serves the live card builder. Drafts live in the session store under a random key.
type DraftHandler struct {
	sessions session.Store
	catalog  catalog.Catalog
	policy   func() giftcard.Policy
}

// NewDraftHandler constructs a DraftHandler.
func NewDraftHandler(sessions session.Store, c catalog.Catalog, policy func() giftcard.Policy) *DraftHandler {
	return &DraftHandler{sessions: sessions, catalog: c, policy: policy}
}

// draftResponse is returned by every builder endpoint.
type draftResponse struct {
	SessionKey string               `json:"session_key"`
	Draft      giftcard.Draft       `json:"draft"`
	Preview    giftcard.Preview     `json:"preview"`
	Errors     giftcard.FieldErrors `json:"errors"`
	Valid      bool                 `json:"valid"`
}

// updateDraftRequest carries field edits keyed by draft field name.
type updateDraftRequest struct {
	Fields map[string]any `json:"fields"`
}

// selectPackageRequest picks a spa package.
type selectPackageRequest struct {
	PackageID string `json:"package_id"`
}

// Create opens a new builder session, optionally applying initial field edits.
func (h *DraftHandler) Create(c *gin.Context) {
	var body updateDraftRequest
	if c.Request.ContentLength != 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	cats, errCatalog := catalog.Load(c.Request.Context(), h.catalog)
	if errCatalog != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load catalog failed"})
		return
	}

	builder := giftcard.NewBuilder(cats, h.policy())
	applyFields(builder, body.Fields)

	key := uuid.NewString()
	if errSave := session.Save(c.Request.Context(), h.sessions, session.DraftKey(key), builder.Snapshot()); errSave != nil {
		log.WithError(errSave).Error("save draft failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save draft failed"})
		return
	}
	c.JSON(http.StatusCreated, newDraftResponse(key, builder))
}

// Get returns the saved draft with its preview and current errors.
func (h *DraftHandler) Get(c *gin.Context) {
	key, builder, ok := h.resume(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newDraftResponse(key, builder))
}

// Update applies field edits. Invalid values are reported in errors, never rejected.
func (h *DraftHandler) Update(c *gin.Context) {
	var body updateDraftRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	key, builder, ok := h.resume(c)
	if !ok {
		return
	}
	applyFields(builder, body.Fields)
	if !h.save(c, key, builder) {
		return
	}
	c.JSON(http.StatusOK, newDraftResponse(key, builder))
}

// SelectPackage switches the draft to package pricing with the chosen package.
func (h *DraftHandler) SelectPackage(c *gin.Context) {
	var body selectPackageRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	packageID := strings.TrimSpace(body.PackageID)
	if packageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing package_id"})
		return
	}
	key, builder, ok := h.resume(c)
	if !ok {
		return
	}
	if errSelect := builder.SelectPackage(packageID); errSelect != nil {
		if errors.Is(errSelect, giftcard.ErrUnknownPackage) {
			c.JSON(http.StatusNotFound, gin.H{"error": "package not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "select package failed"})
		return
	}
	if !h.save(c, key, builder) {
		return
	}
	c.JSON(http.StatusOK, newDraftResponse(key, builder))
}

// Delete discards the draft.
func (h *DraftHandler) Delete(c *gin.Context) {
	key := sessionKeyParam(c)
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session key"})
		return
	}
	if errRemove := h.sessions.Remove(c.Request.Context(), session.DraftKey(key)); errRemove != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete draft failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// resume loads the session draft into a builder, writing the error response when it cannot.
func (h *DraftHandler) resume(c *gin.Context) (string, *giftcard.Builder, bool) {
	key := sessionKeyParam(c)
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session key"})
		return "", nil, false
	}
	var draft giftcard.Draft
	found, errLoad := session.Load(c.Request.Context(), h.sessions, session.DraftKey(key), &draft)
	if errLoad != nil {
		log.WithError(errLoad).Error("load draft failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load draft failed"})
		return "", nil, false
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		return "", nil, false
	}
	cats, errCatalog := catalog.Load(c.Request.Context(), h.catalog)
	if errCatalog != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load catalog failed"})
		return "", nil, false
	}
	return key, giftcard.ResumeBuilder(giftcard.Normalize(draft, cats), cats, h.policy()), true
}

func (h *DraftHandler) save(c *gin.Context, key string, builder *giftcard.Builder) bool {
	if errSave := session.Save(c.Request.Context(), h.sessions, session.DraftKey(key), builder.Snapshot()); errSave != nil {
		log.WithError(errSave).Error("save draft failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save draft failed"})
		return false
	}
	return true
}

func newDraftResponse(key string, builder *giftcard.Builder) draftResponse {
	return draftResponse{
		SessionKey: key,
		Draft:      builder.Snapshot(),
		Preview:    builder.Preview(),
		Errors:     builder.CurrentErrors(),
		Valid:      builder.Valid(),
	}
}

// applyFields applies edits with the pricing mode first and the package second, so a request that
// switches to package pricing and picks a package in one go is not undone by the mode reset.
func applyFields(builder *giftcard.Builder, fields map[string]any) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	sort.SliceStable(names, func(i, j int) bool {
		return fieldRank(names[i]) < fieldRank(names[j])
	})
	for _, name := range names {
		builder.Update(name, fields[name])
	}
}

func fieldRank(name string) int {
	switch name {
	case "amountType":
		return 0
	case "selectedPackageId":
		return 1
	default:
		return 2
	}
}
