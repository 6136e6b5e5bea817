package giftcard

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/luxspa/giftspa/internal/models"
	"github.com/shopspring/decimal"
)

// ErrUnknownPackage is returned when a package id does not resolve.
var ErrUnknownPackage = errors.New("giftcard: unknown spa package")

// Builder keeps one live draft and its validation state.
//
// Edits never fail; invalid input is recorded as a field error and can be fixed by another edit.
type Builder struct {
	draft    Draft
	catalogs Catalogs
	policy   Policy

	inputErrs FieldErrors
	errs      FieldErrors
}

// NewBuilder starts a builder from the initial draft.
func NewBuilder(c Catalogs, p Policy) *Builder {
	return ResumeBuilder(NewDraft(c), c, p)
}

// ResumeBuilder wraps an existing draft, e.g. one loaded from the session store.
func ResumeBuilder(d Draft, c Catalogs, p Policy) *Builder {
	b := &Builder{draft: d, catalogs: c, policy: p, inputErrs: FieldErrors{}}
	b.revalidate()
	return b
}

// Update applies a single field edit. value may be a string, a JSON number or a decimal.
func (b *Builder) Update(field string, value any) {
	delete(b.inputErrs, field)
	defer b.revalidate()

	switch field {
	case "recipientName":
		b.draft.RecipientName = stringValue(value)
	case "senderName":
		b.draft.SenderName = stringValue(value)
	case "senderEmail":
		b.draft.SenderEmail = strings.TrimSpace(stringValue(value))
	case "deliveryEmail":
		b.draft.DeliveryEmail = strings.TrimSpace(stringValue(value))
	case "message":
		b.draft.Message = stringValue(value)
	case "noteToStaff":
		b.draft.NoteToStaff = stringValue(value)
	case "occasion":
		b.draft.Occasion = stringValue(value)
	case "designId":
		b.draft.DesignID = stringValue(value)
	case "amountType":
		b.switchMode(AmountType(stringValue(value)))
	case "amount":
		if b.draft.AmountType == AmountPackage {
			b.inputErrs["amount"] = "amount is set by the selected package"
			return
		}
		amount, err := decimalValue(value)
		if err != nil {
			b.inputErrs["amount"] = "amount must be a number"
			return
		}
		b.draft.Amount = amount
	case "selectedPackageId":
		if errSelect := b.SelectPackage(stringValue(value)); errSelect != nil {
			b.inputErrs["selectedPackageId"] = "select a spa package"
		}
	default:
		b.inputErrs[field] = "unknown field"
	}
}

// switchMode applies the pricing-mode reset. Selecting the current mode changes nothing.
func (b *Builder) switchMode(mode AmountType) {
	if mode == b.draft.AmountType {
		return
	}
	b.draft.AmountType = mode
	b.draft.SelectedPackageID = ""
	b.draft.SelectedPackageName = ""
	switch mode {
	case AmountCustom:
		b.draft.Amount = decimal.NewFromInt(DefaultCustomAmount)
	default:
		b.draft.Amount = decimal.Zero
	}
}

// SelectPackage writes the package id, name and price together, or nothing when id does not resolve.
func (b *Builder) SelectPackage(id string) error {
	pkg, ok := b.catalogs.Package(strings.TrimSpace(id))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPackage, id)
	}
	next := b.draft
	next.AmountType = AmountPackage
	next.SelectedPackageID = pkg.ID
	next.SelectedPackageName = pkg.Name
	next.Amount = pkg.Price
	b.draft = next
	delete(b.inputErrs, "selectedPackageId")
	b.revalidate()
	return nil
}

// CurrentErrors returns a copy of the current field errors.
func (b *Builder) CurrentErrors() FieldErrors {
	out := make(FieldErrors, len(b.errs))
	for k, v := range b.errs {
		out[k] = v
	}
	return out
}

// Valid reports whether the draft currently passes validation.
func (b *Builder) Valid() bool { return len(b.errs) == 0 }

// Snapshot returns the present draft.
func (b *Builder) Snapshot() Draft { return b.draft }

// Preview is the display projection of a draft. It never carries the staff note.
type Preview struct {
	RecipientName       string                `json:"recipientName"`
	SenderName          string                `json:"senderName"`
	Message             string                `json:"message"`
	Occasion            string                `json:"occasion"`
	AmountType          AmountType            `json:"amountType"`
	Amount              decimal.Decimal       `json:"amount"`
	SelectedPackageName string                `json:"selectedPackageName,omitempty"`
	Design              models.DesignTemplate `json:"design"`
}

// Preview returns the draft projection with its resolved design.
func (b *Builder) Preview() Preview {
	design, ok := b.catalogs.ResolveDesign(b.draft.DesignID)
	if !ok && len(b.catalogs.Designs) > 0 {
		design = b.catalogs.Designs[0]
	}
	return Preview{
		RecipientName:       b.draft.RecipientName,
		SenderName:          b.draft.SenderName,
		Message:             b.draft.Message,
		Occasion:            b.draft.Occasion,
		AmountType:          b.draft.AmountType,
		Amount:              b.draft.Amount,
		SelectedPackageName: b.draft.SelectedPackageName,
		Design:              design,
	}
}

func (b *Builder) revalidate() {
	if b.draft.AmountType == AmountPackage {
		if pkg, ok := b.catalogs.Package(b.draft.SelectedPackageID); ok {
			b.draft.Amount = pkg.Price
			b.draft.SelectedPackageName = pkg.Name
		}
	}
	errs := Validate(b.draft, b.catalogs, b.policy)
	for k, v := range b.inputErrs {
		errs[k] = v
	}
	b.errs = errs
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func decimalValue(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported amount value %T", value)
	}
}
