// Package giftcard holds the gift card draft model, its validation rules and the card builder.
package giftcard

import (
	"github.com/luxspa/giftspa/internal/models"
	"github.com/shopspring/decimal"
)

// AmountType selects how a draft is priced.
type AmountType string

// Pricing modes.
const (
	AmountCustom  AmountType = "custom"
	AmountPackage AmountType = "package"
)

// Custom amount bounds and field limits.
const (
	MinCustomAmount     = 100
	MaxCustomAmount     = 800
	CustomAmountStep    = 20
	DefaultCustomAmount = 100
	MinNameLength       = 2
	MaxMessageLength    = 90
	MaxNoteLength       = 150
)

// DefaultOccasion is preselected on new drafts.
const DefaultOccasion = "Birthday"

// DefaultDesignID names the fallback design used when no templates exist.
const DefaultDesignID = "default"

// Occasions lists the selectable occasions in display order.
var Occasions = []string{
	"Birthday",
	"Anniversary",
	"Thank You",
	"Congratulations",
	"Holiday",
	"Just Because",
	"Unbirthday",
	"Other",
}

// IsOccasion reports whether name is a catalog occasion.
func IsOccasion(name string) bool {
	for _, o := range Occasions {
		if o == name {
			return true
		}
	}
	return false
}

// DefaultDesign is shown when the template catalog is empty.
var DefaultDesign = models.DesignTemplate{
	ID:       DefaultDesignID,
	Name:     "Classic",
	ImageURL: "https://picsum.photos/seed/default/600/370",
	AIHint:   "spa gift",
}

// Draft is an unpurchased, user-editable gift card configuration.
type Draft struct {
	RecipientName       string          `json:"recipientName"`
	SenderName          string          `json:"senderName"`
	SenderEmail         string          `json:"senderEmail"`
	DeliveryEmail       string          `json:"deliveryEmail,omitempty"`
	Message             string          `json:"message,omitempty"`
	NoteToStaff         string          `json:"noteToStaff,omitempty"`
	Occasion            string          `json:"occasion"`
	DesignID            string          `json:"designId"`
	AmountType          AmountType      `json:"amountType"`
	Amount              decimal.Decimal `json:"amount"`
	SelectedPackageID   string          `json:"selectedPackageId,omitempty"`
	SelectedPackageName string          `json:"selectedPackageName,omitempty"`
}

// Catalogs is the design and package snapshot a draft is validated against.
type Catalogs struct {
	Designs  []models.DesignTemplate
	Packages []models.SpaPackage
}

// Design resolves a template by id.
func (c Catalogs) Design(id string) (models.DesignTemplate, bool) {
	for _, d := range c.Designs {
		if d.ID == id {
			return d, true
		}
	}
	return models.DesignTemplate{}, false
}

// Package resolves a spa package by id.
func (c Catalogs) Package(id string) (models.SpaPackage, bool) {
	if id == "" {
		return models.SpaPackage{}, false
	}
	for _, p := range c.Packages {
		if p.ID == id {
			return p, true
		}
	}
	return models.SpaPackage{}, false
}

// ResolveDesign returns the template for id, falling back to DefaultDesign when the catalog is empty.
func (c Catalogs) ResolveDesign(id string) (models.DesignTemplate, bool) {
	if len(c.Designs) == 0 {
		return DefaultDesign, true
	}
	return c.Design(id)
}

// NewDraft returns the initial draft shown when the builder opens.
func NewDraft(c Catalogs) Draft {
	designID := DefaultDesignID
	if len(c.Designs) > 0 {
		designID = c.Designs[0].ID
	}
	return Draft{
		Occasion:   DefaultOccasion,
		DesignID:   designID,
		AmountType: AmountCustom,
		Amount:     decimal.NewFromInt(DefaultCustomAmount),
	}
}

// Normalize enforces the pricing-mode invariants without validating anything else.
//
// Custom drafts lose any package fields. Package drafts whose package resolves get the package
// price and name; unresolved packages keep their fields so validation can flag them.
// With no designs in the catalog the draft always carries the default design.
func Normalize(d Draft, c Catalogs) Draft {
	switch d.AmountType {
	case AmountCustom:
		d.SelectedPackageID = ""
		d.SelectedPackageName = ""
	case AmountPackage:
		if pkg, ok := c.Package(d.SelectedPackageID); ok {
			d.Amount = pkg.Price
			d.SelectedPackageName = pkg.Name
		}
	}
	if len(c.Designs) == 0 {
		d.DesignID = DefaultDesignID
	}
	return d
}
