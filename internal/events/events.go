// Package events publishes purchase events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/luxspa/giftspa/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "giftspa.giftcard.purchased"

// Purchased is the event payload. It carries no email addresses or staff notes.
type Purchased struct {
	ID                string          `json:"id"`
	CardNumber        string          `json:"cardNumber"`
	AmountType        string          `json:"amountType"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	SelectedPackageID string          `json:"selectedPackageId,omitempty"`
	Occasion          string          `json:"occasion"`
	DesignID          string          `json:"designId"`
	DeliveryByEmail   bool            `json:"deliveryByEmail"`
	PurchaseDate      time.Time       `json:"purchaseDate"`
}

// FromGiftCard builds the event for a ledger record.
func FromGiftCard(card *models.GiftCard) Purchased {
	ev := Purchased{
		ID:              card.ID,
		CardNumber:      card.CardNumber,
		AmountType:      card.AmountType,
		Amount:          card.Amount,
		Currency:        card.Currency,
		Occasion:        card.Occasion,
		DesignID:        card.DesignID,
		DeliveryByEmail: strings.TrimSpace(card.DeliveryEmail) != "",
		PurchaseDate:    card.PurchaseDate.UTC(),
	}
	if card.SelectedPackageID != nil {
		ev.SelectedPackageID = *card.SelectedPackageID
	}
	return ev
}

// Publisher announces completed purchases.
type Publisher interface {
	PublishPurchased(ctx context.Context, ev Purchased) error
}

// Nop drops every event.
type Nop struct{}

// PublishPurchased does nothing.
func (Nop) PublishPurchased(context.Context, Purchased) error { return nil }

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATSPublisher publishes events as JSON on a NATS subject.
type NATSPublisher struct {
	nc      conn
	close   func()
	subject string
}

// ConnectNATS dials url and returns a publisher for subject.
func ConnectNATS(url, subject string) (*NATSPublisher, error) {
	nc, errConnect := nats.Connect(url,
		nats.Name("giftspa"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("events: nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.WithField("url", c.ConnectedUrl()).Info("events: nats reconnected")
		}),
	)
	if errConnect != nil {
		return nil, fmt.Errorf("events: connect nats: %w", errConnect)
	}
	p := newNATSPublisher(nc, subject)
	p.close = nc.Close
	return p, nil
}

func newNATSPublisher(nc conn, subject string) *NATSPublisher {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{nc: nc, subject: subject}
}

// PublishPurchased publishes ev and waits for the server to acknowledge the flush.
func (p *NATSPublisher) PublishPurchased(ctx context.Context, ev Purchased) error {
	data, errMarshal := json.Marshal(ev)
	if errMarshal != nil {
		return fmt.Errorf("events: encode: %w", errMarshal)
	}
	if errPublish := p.nc.Publish(p.subject, data); errPublish != nil {
		return fmt.Errorf("events: publish %s: %w", p.subject, errPublish)
	}
	if errFlush := p.nc.FlushWithContext(ctx); errFlush != nil {
		return fmt.Errorf("events: flush: %w", errFlush)
	}
	return nil
}

// Close closes the underlying connection.
func (p *NATSPublisher) Close() {
	if p.close != nil {
		p.close()
	}
}
