package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	internalsettings "github.com/luxspa/giftspa/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

// SettingsHandler reads and writes DB-backed runtime settings.
type SettingsHandler struct {
	db *gorm.DB
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

// putSettingRequest carries the new JSON value of one setting.
type putSettingRequest struct {
	Value json.RawMessage `json:"value"`
}

// List returns the effective settings and the raw stored values.
func (h *SettingsHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"settings":   effectiveSettings(),
		"stored":     internalsettings.All(),
		"updated_at": internalsettings.UpdatedAt(),
	})
}

// Put validates and stores one setting, then refreshes the in-memory snapshot.
func (h *SettingsHandler) Put(c *gin.Context) {
	key := strings.ToUpper(strings.TrimSpace(c.Param("key")))
	var body putSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	value := bytes.TrimSpace(body.Value)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing value"})
		return
	}
	if msg := validateSetting(key, value); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if errPut := internalsettings.Put(c.Request.Context(), h.db, key, value); errPut != nil {
		log.WithError(errPut).WithField("key", key).Error("update setting failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update setting failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": effectiveSettings()})
}

func effectiveSettings() gin.H {
	return gin.H{
		internalsettings.SiteNameKey:                        internalsettings.SiteName(),
		internalsettings.CurrencyKey:                        internalsettings.Currency(),
		internalsettings.DeliveryEmailRequiredKey:           internalsettings.DeliveryEmailRequired(),
		internalsettings.FulfillmentRetryIntervalSecondsKey: int(internalsettings.FulfillmentRetryInterval().Seconds()),
	}
}

// validateSetting returns an error message, or "" when value suits key.
func validateSetting(key string, value json.RawMessage) string {
	switch key {
	case internalsettings.SiteNameKey:
		var s string
		if json.Unmarshal(value, &s) != nil || strings.TrimSpace(s) == "" {
			return "SITE_NAME must be a non-empty string"
		}
	case internalsettings.CurrencyKey:
		var s string
		if json.Unmarshal(value, &s) != nil || !currencyPattern.MatchString(strings.TrimSpace(s)) {
			return "CURRENCY must be a 3-letter ISO code"
		}
	case internalsettings.DeliveryEmailRequiredKey:
		var b bool
		if json.Unmarshal(value, &b) != nil {
			return "DELIVERY_EMAIL_REQUIRED must be a boolean"
		}
	case internalsettings.FulfillmentRetryIntervalSecondsKey:
		var n int
		if json.Unmarshal(value, &n) != nil || n <= 0 {
			return "FULFILLMENT_RETRY_INTERVAL_SECONDS must be a positive integer"
		}
	default:
		return "unknown setting"
	}
	return ""
}
