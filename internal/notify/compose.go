package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CardDetails is the purchase data shown in customer emails.
type CardDetails struct {
	SiteName      string
	CardNumber    string
	RecipientName string
	SenderName    string
	Message       string
	Occasion      string
	Amount        decimal.Decimal
	Currency      string
	PackageName   string
	PurchaseDate  time.Time
	DocumentURL   string
}

// RecipientMessage composes the gift delivery email. The document is attached when present.
func RecipientMessage(to string, d CardDetails, document *Attachment) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", d.RecipientName)
	fmt.Fprintf(&b, "%s has sent you a %s gift card for %s", d.SenderName, d.SiteName, formatAmount(d.Amount, d.Currency))
	if d.PackageName != "" {
		fmt.Fprintf(&b, " (%s)", d.PackageName)
	}
	b.WriteString(".\n\n")
	if msg := strings.TrimSpace(d.Message); msg != "" {
		fmt.Fprintf(&b, "Their message: \"%s\"\n\n", msg)
	}
	fmt.Fprintf(&b, "Occasion: %s\nCard number: %s\n\n", d.Occasion, d.CardNumber)
	b.WriteString("Your printable gift card is attached. Present it at reception to redeem.\n")

	out := Message{
		To:      to,
		Subject: fmt.Sprintf("You've Received a Gift Card from %s!", d.SenderName),
		Body:    b.String(),
	}
	if document != nil {
		out.Attachments = []Attachment{*document}
	}
	return out
}

// SenderMessage composes the buyer's order confirmation.
func SenderMessage(to string, d CardDetails, deliveredTo string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", d.SenderName)
	fmt.Fprintf(&b, "Thank you for your order. Your %s gift card for %s is ready.\n\n", formatAmount(d.Amount, d.Currency), d.RecipientName)
	fmt.Fprintf(&b, "Card number: %s\n", d.CardNumber)
	if !d.PurchaseDate.IsZero() {
		fmt.Fprintf(&b, "Purchased: %s\n", d.PurchaseDate.UTC().Format("January 2, 2006"))
	}
	if deliveredTo != "" {
		fmt.Fprintf(&b, "\nWe emailed the gift card to %s.\n", deliveredTo)
	} else {
		b.WriteString("\nNo recipient email was given, so the card was not emailed. Download and print it yourself.\n")
	}
	if d.DocumentURL != "" {
		fmt.Fprintf(&b, "Download: %s\n", d.DocumentURL)
	}
	return Message{
		To:      to,
		Subject: "Your Gift Spa Order Confirmation",
		Body:    b.String(),
	}
}

func formatAmount(amount decimal.Decimal, currency string) string {
	if currency == "" || strings.EqualFold(currency, "usd") {
		return "$" + amount.StringFixed(2)
	}
	return amount.StringFixed(2) + " " + strings.ToUpper(currency)
}
