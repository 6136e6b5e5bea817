package giftcard

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// FieldErrors maps a draft field name to a human-readable message. Empty means valid.
type FieldErrors map[string]string

// Valid reports whether no field errors are present.
func (e FieldErrors) Valid() bool { return len(e) == 0 }

// Fields returns the failing field names in sorted order.
func (e FieldErrors) Fields() []string {
	out := make([]string, 0, len(e))
	for k := range e {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Policy carries configurable validation rules.
type Policy struct {
	RequireDeliveryEmail bool
}

var validate = validator.New()

// ValidEmail reports whether s is a syntactically valid email address.
func ValidEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

// Validate checks a draft against the field rules and the current catalogs.
func Validate(d Draft, c Catalogs, p Policy) FieldErrors {
	errs := FieldErrors{}

	if utf8.RuneCountInString(strings.TrimSpace(d.RecipientName)) < MinNameLength {
		errs["recipientName"] = fmt.Sprintf("recipient name must be at least %d characters", MinNameLength)
	}
	if utf8.RuneCountInString(strings.TrimSpace(d.SenderName)) < MinNameLength {
		errs["senderName"] = fmt.Sprintf("sender name must be at least %d characters", MinNameLength)
	}

	senderEmail := strings.TrimSpace(d.SenderEmail)
	switch {
	case senderEmail == "":
		errs["senderEmail"] = "sender email is required"
	case !ValidEmail(senderEmail):
		errs["senderEmail"] = "sender email is invalid"
	}

	deliveryEmail := strings.TrimSpace(d.DeliveryEmail)
	switch {
	case deliveryEmail == "" && p.RequireDeliveryEmail:
		errs["deliveryEmail"] = "recipient email is required"
	case deliveryEmail != "" && !ValidEmail(deliveryEmail):
		errs["deliveryEmail"] = "recipient email is invalid"
	}

	if utf8.RuneCountInString(d.Message) > MaxMessageLength {
		errs["message"] = fmt.Sprintf("message must be at most %d characters", MaxMessageLength)
	}
	if utf8.RuneCountInString(d.NoteToStaff) > MaxNoteLength {
		errs["noteToStaff"] = fmt.Sprintf("note to staff must be at most %d characters", MaxNoteLength)
	}

	switch {
	case strings.TrimSpace(d.Occasion) == "":
		errs["occasion"] = "occasion is required"
	case !IsOccasion(d.Occasion):
		errs["occasion"] = "occasion is not supported"
	}

	if _, ok := c.ResolveDesign(d.DesignID); !ok {
		errs["designId"] = "design template not found"
	}

	switch d.AmountType {
	case AmountCustom:
		if msg := checkCustomAmount(d.Amount); msg != "" {
			errs["amount"] = msg
		}
	case AmountPackage:
		pkg, ok := c.Package(d.SelectedPackageID)
		if !ok {
			errs["selectedPackageId"] = "select a spa package"
			break
		}
		if !d.Amount.Equal(pkg.Price) {
			errs["amount"] = "amount must equal the package price"
		}
	default:
		errs["amountType"] = "amount type must be custom or package"
	}

	return errs
}

// ValidCustomAmount reports whether amount is an allowed custom value.
func ValidCustomAmount(amount decimal.Decimal) bool {
	return checkCustomAmount(amount) == ""
}

func checkCustomAmount(amount decimal.Decimal) string {
	minAmount := decimal.NewFromInt(MinCustomAmount)
	maxAmount := decimal.NewFromInt(MaxCustomAmount)
	if amount.LessThan(minAmount) || amount.GreaterThan(maxAmount) {
		return fmt.Sprintf("amount must be between %d and %d", MinCustomAmount, MaxCustomAmount)
	}
	if !amount.Mod(decimal.NewFromInt(CustomAmountStep)).IsZero() {
		return fmt.Sprintf("amount must be a multiple of %d", CustomAmountStep)
	}
	return ""
}
