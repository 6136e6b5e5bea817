package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/luxspa/giftspa/internal/giftcard"
	internalsettings "github.com/luxspa/giftspa/internal/settings"
)

// customAmountRules describes the custom amount input.
type customAmountRules struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Step    int `json:"step"`
	Default int `json:"default"`
}

// publicConfigResponse is the response payload for public config.
type publicConfigResponse struct {
	SiteName              string            `json:"site_name"`
	Currency              string            `json:"currency"`
	Occasions             []string          `json:"occasions"`
	CustomAmount          customAmountRules `json:"custom_amount"`
	MessageMaxLength      int               `json:"message_max_length"`
	NoteMaxLength         int               `json:"note_max_length"`
	DeliveryEmailRequired bool              `json:"delivery_email_required"`
}

// GetPublicConfig returns public configuration for the storefront UI.
func GetPublicConfig(c *gin.Context) {
	c.JSON(http.StatusOK, publicConfigResponse{
		SiteName:  internalsettings.SiteName(),
		Currency:  internalsettings.Currency(),
		Occasions: giftcard.Occasions,
		CustomAmount: customAmountRules{
			Min:     giftcard.MinCustomAmount,
			Max:     giftcard.MaxCustomAmount,
			Step:    giftcard.CustomAmountStep,
			Default: giftcard.DefaultCustomAmount,
		},
		MessageMaxLength:      giftcard.MaxMessageLength,
		NoteMaxLength:         giftcard.MaxNoteLength,
		DeliveryEmailRequired: internalsettings.DeliveryEmailRequired(),
	})
}
