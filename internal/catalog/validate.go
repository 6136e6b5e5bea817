package catalog

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/luxspa/giftspa/internal/giftcard"
	"github.com/luxspa/giftspa/internal/models"
)

// Design and package field limits used by the admin surface.
const (
	MinDesignNameLength  = 3
	MaxAIHintLength      = 50
	MinPackageNameLength = 3
)

// ValidateDesign checks an admin-submitted design template.
func ValidateDesign(d models.DesignTemplate) giftcard.FieldErrors {
	errs := giftcard.FieldErrors{}
	if utf8.RuneCountInString(strings.TrimSpace(d.Name)) < MinDesignNameLength {
		errs["name"] = "name must be at least 3 characters"
	}
	if !isHTTPURL(d.ImageURL) {
		errs["imageUrl"] = "image url must be an absolute http(s) url"
	}
	if utf8.RuneCountInString(d.AIHint) > MaxAIHintLength {
		errs["aiHint"] = "ai hint must be at most 50 characters"
	}
	if d.FeaturedOccasion != "" && !giftcard.IsOccasion(d.FeaturedOccasion) {
		errs["featuredOccasion"] = "occasion is not supported"
	}
	return errs
}

// ValidatePackage checks an admin-submitted spa package.
func ValidatePackage(p models.SpaPackage) giftcard.FieldErrors {
	errs := giftcard.FieldErrors{}
	if utf8.RuneCountInString(strings.TrimSpace(p.Name)) < MinPackageNameLength {
		errs["name"] = "name must be at least 3 characters"
	}
	if !p.Price.IsPositive() {
		errs["price"] = "price must be positive"
	}
	if p.Price.Exponent() < -2 && !p.Price.Round(2).Equal(p.Price) {
		errs["price"] = "price must have at most two decimal places"
	}
	return errs
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
