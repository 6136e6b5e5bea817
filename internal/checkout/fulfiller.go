package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/luxspa/giftspa/internal/catalog"
	"github.com/luxspa/giftspa/internal/document"
	"github.com/luxspa/giftspa/internal/events"
	"github.com/luxspa/giftspa/internal/giftcard"
	"github.com/luxspa/giftspa/internal/ledger"
	"github.com/luxspa/giftspa/internal/metrics"
	"github.com/luxspa/giftspa/internal/models"
	"github.com/luxspa/giftspa/internal/notify"
	"github.com/luxspa/giftspa/internal/security"
	"github.com/luxspa/giftspa/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Fulfillment steps, in execution order. The ledger append is not a task: it either succeeds
// during checkout or fails the purchase.
const (
	StepLedger         = "ledger"
	StepDocument       = "document"
	StepRecipientEmail = "recipient_email"
	StepSenderEmail    = "sender_email"
	StepEvent          = "event"
)

const (
	// DefaultMaxAttempts bounds automatic executions of one task.
	DefaultMaxAttempts = 5
	// DefaultTaskLease is how long a claimed task stays reserved for its runner.
	DefaultTaskLease = 5 * time.Minute
	// cardNumberAttempts bounds suffix re-draws when a card number is already taken.
	cardNumberAttempts = 5
	// DefaultDocumentLinkTTL is how long an emailed download link stays valid.
	DefaultDocumentLinkTTL = 30 * 24 * time.Hour
)

// ErrCardNotFound is returned when retrying fulfillment for an unknown card.
var ErrCardNotFound = errors.New("checkout: gift card not found")

// Links signs document download URLs.
type Links struct {
	BaseURL string
	Secret  string
	TTL     time.Duration
}

// DocumentPath returns the signed path of a card document, relative to the server root.
func (l Links) DocumentPath(cardID string) (string, error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = DefaultDocumentLinkTTL
	}
	token, errToken := security.GenerateArtifactToken(l.Secret, cardID, ttl)
	if errToken != nil {
		return "", fmt.Errorf("checkout: sign document link: %w", errToken)
	}
	return "/v0/front/gift-cards/" + url.PathEscape(cardID) + "/document?token=" + url.QueryEscape(token), nil
}

// DocumentURL returns the absolute signed URL of a card document.
func (l Links) DocumentURL(cardID string) (string, error) {
	path, err := l.DocumentPath(cardID)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(l.BaseURL, "/") + path, nil
}

// FulfillerDeps wires a Fulfiller.
type FulfillerDeps struct {
	DB          *gorm.DB
	Ledger      ledger.Repository
	Catalog     catalog.Catalog
	Renderer    document.Renderer
	Documents   *document.Store
	Notifier    notify.Notifier
	Publisher   events.Publisher
	Links       Links
	Metrics     *metrics.Metrics
	MaxAttempts int
	TaskLease   time.Duration
}

// Fulfiller records the ledger entry and runs the remaining post-payment steps as idempotent tasks.
type Fulfiller struct {
	db          *gorm.DB
	ledger      ledger.Repository
	catalog     catalog.Catalog
	renderer    document.Renderer
	documents   *document.Store
	notifier    notify.Notifier
	publisher   events.Publisher
	links       Links
	metrics     *metrics.Metrics
	maxAttempts int
	lease       time.Duration
	now         func() time.Time
}

// NewFulfiller constructs a Fulfiller. A nil publisher drops events.
func NewFulfiller(d FulfillerDeps) *Fulfiller {
	f := &Fulfiller{
		db:          d.DB,
		ledger:      d.Ledger,
		catalog:     d.Catalog,
		renderer:    d.Renderer,
		documents:   d.Documents,
		notifier:    d.Notifier,
		publisher:   d.Publisher,
		links:       d.Links,
		metrics:     d.Metrics,
		maxAttempts: d.MaxAttempts,
		lease:       d.TaskLease,
		now:         func() time.Time { return time.Now().UTC() },
	}
	if f.maxAttempts <= 0 {
		f.maxAttempts = DefaultMaxAttempts
	}
	if f.lease <= 0 {
		f.lease = DefaultTaskLease
	}
	if f.publisher == nil {
		f.publisher = events.Nop{}
	}
	return f
}

// Result summarises fulfillment for the confirmation view.
type Result struct {
	DocumentURL       string
	DeliveryEmailSent bool
	Pending           []string
}

// Fulfill appends card to the ledger, then runs every remaining step once.
//
// Only the ledger append can fail the purchase. A taken card number is re-drawn with a fresh suffix.
// Later step failures stay pending for the retry worker.
func (f *Fulfiller) Fulfill(ctx context.Context, card *models.GiftCard) (*Result, error) {
	if errSave := f.append(ctx, card); errSave != nil {
		f.metrics.FulfillmentStep(StepLedger, false)
		return nil, &FulfillmentError{Step: StepLedger, Err: errSave}
	}
	f.metrics.FulfillmentStep(StepLedger, true)
	return f.RunCard(ctx, card)
}

func (f *Fulfiller) append(ctx context.Context, card *models.GiftCard) error {
	for attempt := 1; ; attempt++ {
		errSave := f.ledger.Save(ctx, card)
		if errSave == nil || !errors.Is(errSave, ledger.ErrCardNumberTaken) || attempt >= cardNumberAttempts {
			return errSave
		}
		number, errNumber := giftcard.RerollCardNumber(card.CardNumber)
		if errNumber != nil {
			return fmt.Errorf("checkout: card number: %w", errNumber)
		}
		log.WithFields(log.Fields{"gift_card_id": card.ID, "taken": card.CardNumber}).Info("fulfillment: card number taken, drawing a new suffix")
		card.CardNumber = number
	}
}

// RunCard makes sure every step task exists for card and executes those still pending.
func (f *Fulfiller) RunCard(ctx context.Context, card *models.GiftCard) (*Result, error) {
	if errEnsure := f.ensureTasks(ctx, card); errEnsure != nil {
		return nil, errEnsure
	}
	tasks, errTasks := f.Tasks(ctx, card.ID)
	if errTasks != nil {
		return nil, errTasks
	}
	for i := range tasks {
		if !claimable(&tasks[i], f.now()) {
			continue
		}
		f.execute(ctx, card, &tasks[i])
	}
	// Another runner may have finished steps this one skipped.
	tasks, errTasks = f.Tasks(ctx, card.ID)
	if errTasks != nil {
		return nil, errTasks
	}
	return f.result(card, tasks)
}

// claimable reports whether task is pending or running under an expired lease.
func claimable(task *models.FulfillmentTask, now time.Time) bool {
	switch task.Status {
	case models.FulfillmentPending:
		return true
	case models.FulfillmentRunning:
		return task.LockedUntil != nil && task.LockedUntil.Before(now)
	default:
		return false
	}
}

// Tasks lists the fulfillment tasks of a card in step order.
func (f *Fulfiller) Tasks(ctx context.Context, cardID string) ([]models.FulfillmentTask, error) {
	var rows []models.FulfillmentTask
	if errFind := f.db.WithContext(ctx).Where("gift_card_id = ?", cardID).Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("checkout: load tasks: %w", errFind)
	}
	order := map[string]int{}
	for i, step := range allSteps {
		order[step] = i
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return order[rows[i].Step] < order[rows[j].Step]
	})
	return rows, nil
}

// Retry re-arms failed tasks of one card and runs everything pending.
func (f *Fulfiller) Retry(ctx context.Context, cardID string) (*Result, error) {
	card, errGet := f.ledger.Get(ctx, cardID)
	if errGet != nil {
		return nil, errGet
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	if errReset := f.db.WithContext(ctx).
		Model(&models.FulfillmentTask{}).
		Where("gift_card_id = ? AND status = ?", cardID, models.FulfillmentFailed).
		Updates(map[string]any{"status": models.FulfillmentPending, "attempts": 0}).Error; errReset != nil {
		return nil, fmt.Errorf("checkout: re-arm tasks: %w", errReset)
	}
	return f.RunCard(ctx, card)
}

// RetryPending runs every claimable task once and returns how many are still pending or running.
func (f *Fulfiller) RetryPending(ctx context.Context) (int, error) {
	var cardIDs []string
	if errPluck := f.db.WithContext(ctx).
		Model(&models.FulfillmentTask{}).
		Where("status = ? OR (status = ? AND locked_until < ?)", models.FulfillmentPending, models.FulfillmentRunning, f.now()).
		Distinct("gift_card_id").
		Pluck("gift_card_id", &cardIDs).Error; errPluck != nil {
		return 0, fmt.Errorf("checkout: list pending: %w", errPluck)
	}

	for _, id := range cardIDs {
		if ctx.Err() != nil {
			break
		}
		card, errGet := f.ledger.Get(ctx, id)
		if errGet != nil {
			log.WithError(errGet).WithField("gift_card_id", id).Warn("fulfillment retry: load card failed")
			continue
		}
		if card == nil {
			log.WithField("gift_card_id", id).Warn("fulfillment retry: card missing from ledger")
			continue
		}
		if _, errRun := f.RunCard(ctx, card); errRun != nil {
			log.WithError(errRun).WithField("gift_card_id", id).Warn("fulfillment retry: run failed")
		}
	}

	var remaining int64
	if errCount := f.db.WithContext(ctx).
		Model(&models.FulfillmentTask{}).
		Where("status IN ?", []string{models.FulfillmentPending, models.FulfillmentRunning}).
		Count(&remaining).Error; errCount != nil {
		return 0, fmt.Errorf("checkout: count pending: %w", errCount)
	}
	f.metrics.SetPending(int(remaining))
	return int(remaining), nil
}

var allSteps = []string{StepDocument, StepRecipientEmail, StepSenderEmail, StepEvent}

// stepsFor returns the steps that apply to card.
func stepsFor(card *models.GiftCard) []string {
	out := make([]string, 0, len(allSteps))
	for _, step := range allSteps {
		if step == StepRecipientEmail && strings.TrimSpace(card.DeliveryEmail) == "" {
			continue
		}
		out = append(out, step)
	}
	return out
}

func (f *Fulfiller) ensureTasks(ctx context.Context, card *models.GiftCard) error {
	steps := stepsFor(card)
	rows := make([]models.FulfillmentTask, 0, len(steps))
	for _, step := range steps {
		rows = append(rows, models.FulfillmentTask{
			GiftCardID: card.ID,
			Step:       step,
			Status:     models.FulfillmentPending,
		})
	}
	if errCreate := f.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gift_card_id"}, {Name: "step"}},
		DoNothing: true,
	}).Create(&rows).Error; errCreate != nil {
		return fmt.Errorf("checkout: create tasks: %w", errCreate)
	}
	return nil
}

// execute claims a task by moving it to running under a lease, then runs it.
// A task held by another runner's live lease is left alone.
func (f *Fulfiller) execute(ctx context.Context, card *models.GiftCard, task *models.FulfillmentTask) {
	entry := log.WithFields(log.Fields{"gift_card_id": card.ID, "step": task.Step})

	claimedAt := f.now()
	lockedUntil := claimedAt.Add(f.lease)
	claim := f.db.WithContext(ctx).
		Model(&models.FulfillmentTask{}).
		Where("id = ? AND attempts = ? AND (status = ? OR (status = ? AND locked_until < ?))",
			task.ID, task.Attempts, models.FulfillmentPending, models.FulfillmentRunning, claimedAt).
		Updates(map[string]any{
			"status":       models.FulfillmentRunning,
			"attempts":     task.Attempts + 1,
			"locked_until": lockedUntil,
			"updated_at":   claimedAt,
		})
	if claim.Error != nil {
		entry.WithError(claim.Error).Warn("fulfillment: claim task failed")
		return
	}
	if claim.RowsAffected == 0 {
		return
	}
	task.Attempts++
	task.Status = models.FulfillmentRunning
	task.LockedUntil = &lockedUntil

	details, errRun := f.runStep(ctx, card, task.Step)
	f.metrics.FulfillmentStep(task.Step, errRun == nil)

	updates := map[string]any{"updated_at": f.now(), "locked_until": nil}
	task.LockedUntil = nil
	if errRun == nil {
		now := f.now()
		updates["status"] = models.FulfillmentDone
		updates["last_error"] = ""
		updates["completed_at"] = now
		if details != nil {
			if raw, errMarshal := json.Marshal(details); errMarshal == nil {
				updates["details"] = datatypes.JSON(raw)
				task.Details = raw
			}
		}
		task.Status = models.FulfillmentDone
		task.LastError = ""
		task.CompletedAt = &now
	} else {
		updates["last_error"] = errRun.Error()
		task.LastError = errRun.Error()
		task.Status = models.FulfillmentPending
		if task.Attempts >= f.maxAttempts {
			task.Status = models.FulfillmentFailed
		}
		updates["status"] = task.Status
		entry.WithError(errRun).WithField("attempts", task.Attempts).Warn("fulfillment: step failed")
	}
	// Only the holder of the current claim may record an outcome.
	outcome := f.db.WithContext(ctx).
		Model(&models.FulfillmentTask{}).
		Where("id = ? AND status = ? AND attempts = ?", task.ID, models.FulfillmentRunning, task.Attempts).
		Updates(updates)
	if outcome.Error != nil {
		entry.WithError(outcome.Error).Error("fulfillment: record task outcome failed")
		return
	}
	if outcome.RowsAffected == 0 {
		entry.Warn("fulfillment: lease lost before the outcome was recorded")
	}
}

func (f *Fulfiller) runStep(ctx context.Context, card *models.GiftCard, step string) (map[string]any, error) {
	switch step {
	case StepDocument:
		data, fileName, errRender := f.render(ctx, card)
		if errRender != nil {
			return nil, errRender
		}
		if errPut := f.documents.Put(ctx, card.ID, fileName, data); errPut != nil {
			return nil, errPut
		}
		return map[string]any{"fileName": fileName, "sizeBytes": len(data)}, nil
	case StepRecipientEmail:
		attachment, errDoc := f.attachment(ctx, card)
		if errDoc != nil {
			return nil, errDoc
		}
		msg := notify.RecipientMessage(card.DeliveryEmail, f.details(card), attachment)
		if errSend := f.notifier.Send(ctx, msg); errSend != nil {
			return nil, errSend
		}
		return map[string]any{"to": card.DeliveryEmail}, nil
	case StepSenderEmail:
		msg := notify.SenderMessage(card.SenderEmail, f.details(card), card.DeliveryEmail)
		if errSend := f.notifier.Send(ctx, msg); errSend != nil {
			return nil, errSend
		}
		return map[string]any{"to": card.SenderEmail}, nil
	case StepEvent:
		if errPublish := f.publisher.PublishPurchased(ctx, events.FromGiftCard(card)); errPublish != nil {
			return nil, errPublish
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown fulfillment step %q", step)
	}
}

// Document returns the stored document of card, rendering and storing it first when missing.
func (f *Fulfiller) Document(ctx context.Context, card *models.GiftCard) (*models.GiftCardDocument, error) {
	doc, errGet := f.documents.Get(ctx, card.ID)
	if errGet != nil {
		return nil, errGet
	}
	if doc != nil {
		return doc, nil
	}
	data, fileName, errRender := f.render(ctx, card)
	if errRender != nil {
		return nil, errRender
	}
	if errPut := f.documents.Put(ctx, card.ID, fileName, data); errPut != nil {
		return nil, errPut
	}
	return &models.GiftCardDocument{
		GiftCardID:  card.ID,
		FileName:    fileName,
		ContentType: document.ContentType,
		Data:        data,
		SizeBytes:   len(data),
	}, nil
}

func (f *Fulfiller) attachment(ctx context.Context, card *models.GiftCard) (*notify.Attachment, error) {
	doc, err := f.Document(ctx, card)
	if err != nil {
		return nil, err
	}
	return &notify.Attachment{Name: doc.FileName, ContentType: doc.ContentType, Data: doc.Data}, nil
}

func (f *Fulfiller) render(ctx context.Context, card *models.GiftCard) ([]byte, string, error) {
	data, err := f.renderer.RenderCard(ctx, f.documentCard(ctx, card))
	if err != nil {
		return nil, "", err
	}
	return data, document.FileName(card.CardNumber), nil
}

// documentCard projects a ledger record onto the printable card; the staff note is left out.
func (f *Fulfiller) documentCard(ctx context.Context, card *models.GiftCard) document.Card {
	out := document.Card{
		SiteName:      settings.SiteName(),
		CardNumber:    card.CardNumber,
		RecipientName: card.RecipientName,
		SenderName:    card.SenderName,
		Message:       card.Message,
		Occasion:      card.Occasion,
		DesignID:      card.DesignID,
		Amount:        card.Amount,
		Currency:      card.Currency,
		PurchaseDate:  card.PurchaseDate,
	}
	if card.SelectedPackageName != nil {
		out.PackageName = *card.SelectedPackageName
	}
	if f.catalog != nil {
		if designs, err := f.catalog.Designs(ctx); err == nil {
			for _, d := range designs {
				if d.ID == card.DesignID {
					out.DesignName = d.Name
					break
				}
			}
		}
	}
	return out
}

func (f *Fulfiller) details(card *models.GiftCard) notify.CardDetails {
	d := notify.CardDetails{
		SiteName:      settings.SiteName(),
		CardNumber:    card.CardNumber,
		RecipientName: card.RecipientName,
		SenderName:    card.SenderName,
		Message:       card.Message,
		Occasion:      card.Occasion,
		Amount:        card.Amount,
		Currency:      card.Currency,
		PurchaseDate:  card.PurchaseDate,
	}
	if card.SelectedPackageName != nil {
		d.PackageName = *card.SelectedPackageName
	}
	if link, err := f.links.DocumentURL(card.ID); err == nil {
		d.DocumentURL = link
	}
	return d
}

func (f *Fulfiller) result(card *models.GiftCard, tasks []models.FulfillmentTask) (*Result, error) {
	link, errLink := f.links.DocumentURL(card.ID)
	if errLink != nil {
		return nil, errLink
	}
	res := &Result{DocumentURL: link}
	for _, task := range tasks {
		if task.Step == StepRecipientEmail && task.Status == models.FulfillmentDone {
			res.DeliveryEmailSent = true
		}
		if task.Status != models.FulfillmentDone {
			res.Pending = append(res.Pending, task.Step)
		}
	}
	return res, nil
}
