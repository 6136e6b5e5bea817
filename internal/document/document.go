// Package document renders printable gift card PDFs and stores them per card.
package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// ContentType is the MIME type of rendered documents.
const ContentType = "application/pdf"

// Card is everything printed on a gift card. It never carries the staff note.
type Card struct {
	SiteName      string
	CardNumber    string
	RecipientName string
	SenderName    string
	Message       string
	Occasion      string
	DesignID      string
	DesignName    string
	Amount        decimal.Decimal
	Currency      string
	PackageName   string
	PurchaseDate  time.Time
}

// Renderer turns a Card into a document.
type Renderer interface {
	RenderCard(ctx context.Context, card Card) ([]byte, error)
}

// FileName returns the download name for a card document.
func FileName(cardNumber string) string {
	name := strings.TrimSpace(cardNumber)
	if name == "" {
		name = "gift-card"
	}
	return name + ".pdf"
}

// PDFRenderer renders A5 landscape cards with fpdf.
type PDFRenderer struct {
	compress bool
}

// NewPDFRenderer returns a renderer producing compressed PDFs.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{compress: true}
}

// RenderCard draws the card and returns the PDF bytes.
func (r *PDFRenderer) RenderCard(ctx context.Context, card Card) ([]byte, error) {
	if errCtx := ctx.Err(); errCtx != nil {
		return nil, errCtx
	}

	pdf := fpdf.New("L", "mm", "A5", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle("Gift Card "+card.CardNumber, true)
	pdf.SetAuthor(card.SiteName, true)
	if !card.PurchaseDate.IsZero() {
		pdf.SetCreationDate(card.PurchaseDate.UTC())
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 10)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	pdf.SetFillColor(247, 243, 236)
	pdf.Rect(0, 0, pageW, pageH, "F")
	pdf.SetDrawColor(176, 141, 87)
	pdf.SetLineWidth(0.8)
	pdf.Rect(8, 8, pageW-16, pageH-16, "D")

	contentW := pageW - 30
	pdf.SetTextColor(90, 70, 50)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetXY(15, 18)
	pdf.CellFormat(contentW, 10, tr(card.SiteName), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 13)
	pdf.CellFormat(contentW, 8, tr(strings.ToUpper(card.Occasion)+" GIFT CARD"), "", 1, "C", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 30)
	pdf.CellFormat(contentW, 14, tr(formatAmount(card.Amount, card.Currency)), "", 1, "C", false, 0, "")
	if card.PackageName != "" {
		pdf.SetFont("Helvetica", "I", 12)
		pdf.CellFormat(contentW, 7, tr(card.PackageName), "", 1, "C", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(contentW, 7, tr("For: "+card.RecipientName), "", 1, "C", false, 0, "")
	if card.SenderName != "" {
		pdf.CellFormat(contentW, 7, tr("From: "+card.SenderName), "", 1, "C", false, 0, "")
	}
	if msg := strings.TrimSpace(card.Message); msg != "" {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "I", 11)
		pdf.MultiCell(contentW, 6, tr("\""+msg+"\""), "", "C", false)
	}

	pdf.SetFont("Courier", "B", 12)
	pdf.SetXY(15, pageH-30)
	pdf.CellFormat(contentW, 7, "Card No. "+card.CardNumber, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	design := card.DesignName
	if design == "" {
		design = card.DesignID
	}
	footer := "Design: " + design
	if !card.PurchaseDate.IsZero() {
		footer += "  |  Issued " + card.PurchaseDate.UTC().Format("2006-01-02")
	}
	pdf.CellFormat(contentW, 5, tr(footer), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if errOut := pdf.Output(&buf); errOut != nil {
		return nil, fmt.Errorf("document: render pdf: %w", errOut)
	}
	return buf.Bytes(), nil
}

func formatAmount(amount decimal.Decimal, currency string) string {
	switch strings.ToLower(currency) {
	case "", "usd":
		return "$" + amount.StringFixed(2)
	case "eur":
		return amount.StringFixed(2) + " EUR"
	default:
		return amount.StringFixed(2) + " " + strings.ToUpper(currency)
	}
}
