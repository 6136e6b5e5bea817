package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/luxspa/giftspa/internal/catalog"
	dbpkg "github.com/luxspa/giftspa/internal/db"
	"github.com/luxspa/giftspa/internal/document"
	"github.com/luxspa/giftspa/internal/giftcard"
	"github.com/luxspa/giftspa/internal/ledger"
	"github.com/luxspa/giftspa/internal/models"
	"github.com/luxspa/giftspa/internal/notify"
	"github.com/luxspa/giftspa/internal/payment"
	"github.com/luxspa/giftspa/internal/session"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	fail error
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.To)
	}
	return out
}

type countingGateway struct {
	*payment.MockGateway
	created int
}

func (g *countingGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string) (payment.Intent, error) {
	g.created++
	return g.MockGateway.CreateIntent(ctx, amountMinor, currency)
}

type failingLedger struct {
	ledger.Repository
}

func (failingLedger) Save(context.Context, *models.GiftCard) error {
	return errors.New("disk full")
}

type harness struct {
	db        *gorm.DB
	sessions  *session.MemoryStore
	gateway   *countingGateway
	notifier  *recordingNotifier
	ledger    *ledger.Store
	fulfiller *Fulfiller
	service   *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn, errOpen := dbpkg.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := dbpkg.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	h := &harness{
		db:       conn,
		sessions: session.NewMemoryStore(0),
		gateway:  &countingGateway{MockGateway: payment.NewMockGateway([]string{"pm_card_declined"})},
		notifier: &recordingNotifier{},
		ledger:   ledger.NewStore(conn, "lookup-secret"),
	}
	cat := catalog.Static{DesignList: catalog.DefaultDesigns(), PackageList: catalog.DefaultPackages()}
	h.fulfiller = NewFulfiller(FulfillerDeps{
		DB:        conn,
		Ledger:    h.ledger,
		Catalog:   cat,
		Renderer:  document.NewPDFRenderer(),
		Documents: document.NewStore(conn),
		Notifier:  h.notifier,
		Links:     Links{BaseURL: "https://spa.example", Secret: "artifact-secret"},
	})
	h.service = NewService(Deps{
		Sessions:  h.sessions,
		Catalog:   cat,
		Gateway:   h.gateway,
		Fulfiller: h.fulfiller,
		Policy:    func() giftcard.Policy { return giftcard.Policy{} },
		Currency:  func() string { return "usd" },
	})
	return h
}

func (h *harness) saveDraft(t *testing.T, key string, d giftcard.Draft) {
	t.Helper()
	if err := session.Save(context.Background(), h.sessions, session.DraftKey(key), d); err != nil {
		t.Fatalf("save draft: %v", err)
	}
}

func (h *harness) ledgerCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := h.db.Model(&models.GiftCard{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func scenarioDraft() giftcard.Draft {
	return giftcard.Draft{
		RecipientName: "Jane Doe",
		SenderName:    "John Smith",
		AmountType:    giftcard.AmountCustom,
		Amount:        decimal.NewFromInt(100),
		Occasion:      "Birthday",
		DesignID:      "template1",
		DeliveryEmail: "jane@x.com",
		SenderEmail:   "john@x.com",
		NoteToStaff:   "likes lavender",
	}
}

func TestCheckoutCustomAmountScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.saveDraft(t, "sess-1", scenarioDraft())

	conf, err := h.service.Checkout(ctx, Request{SessionKey: "sess-1", TermsAccepted: true, PaymentMethodID: "pm_card_4242"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	card := conf.GiftCard
	if card.Status != models.GiftCardStatusActive || !card.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected card %+v", card)
	}
	if !regexp.MustCompile(`^GC-JA100BI-[A-Z0-9]{4}$`).MatchString(card.CardNumber) {
		t.Fatalf("unexpected card number %q", card.CardNumber)
	}
	if card.PaymentMethodLast4 != "4242" {
		t.Fatalf("unexpected last4 %q", card.PaymentMethodLast4)
	}
	if got := h.notifier.recipients(); len(got) != 2 || got[0] != "jane@x.com" || got[1] != "john@x.com" {
		t.Fatalf("expected recipient then sender emails, got %v", got)
	}
	if !conf.DeliveryEmailSent || len(conf.PendingSteps) != 0 {
		t.Fatalf("expected complete fulfillment, got sent=%v pending=%v", conf.DeliveryEmailSent, conf.PendingSteps)
	}
	if !strings.HasPrefix(conf.DocumentURL, "https://spa.example/v0/front/gift-cards/"+card.ID+"/document?token=") {
		t.Fatalf("unexpected document url %q", conf.DocumentURL)
	}
	wantStates := []State{StateDraft, StateAwaitingPayment, StatePaymentConfirmed, StateFulfilled}
	if len(conf.States) != len(wantStates) {
		t.Fatalf("unexpected states %v", conf.States)
	}
	for i := range wantStates {
		if conf.States[i] != wantStates[i] {
			t.Fatalf("unexpected states %v", conf.States)
		}
	}

	if _, ok, _ := h.sessions.Get(ctx, session.DraftKey("sess-1")); ok {
		t.Fatalf("expected draft cleared from session")
	}
	stored, errGet := h.ledger.Get(ctx, card.ID)
	if errGet != nil || stored == nil || stored.NoteToStaff != "likes lavender" {
		t.Fatalf("expected ledger record with staff note, got %+v, %v", stored, errGet)
	}
	found, _ := h.ledger.FindByEmailAndLast4(ctx, "JANE@X.COM", "4242")
	if found == nil || found.ID != card.ID {
		t.Fatalf("expected retrieval lookup to find the card")
	}
	for _, m := range h.notifier.sent {
		if strings.Contains(m.Body, "likes lavender") {
			t.Fatalf("staff note leaked into email to %s", m.To)
		}
	}
}

func TestCheckoutPackageScenario(t *testing.T) {
	h := newHarness(t)
	d := scenarioDraft()
	d.AmountType = giftcard.AmountPackage
	d.Amount = decimal.Zero
	d.SelectedPackageID = "pkg_relax"
	h.saveDraft(t, "sess-2", d)

	conf, err := h.service.Checkout(context.Background(), Request{SessionKey: "sess-2", TermsAccepted: true, PaymentMethodID: "pm_card_4242"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	card := conf.GiftCard
	if !card.Amount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected amount 150, got %s", card.Amount)
	}
	if card.SelectedPackageName == nil || *card.SelectedPackageName != "Relaxation Ritual" {
		t.Fatalf("expected Relaxation Ritual, got %v", card.SelectedPackageName)
	}
	if card.SelectedPackageID == nil || *card.SelectedPackageID != "pkg_relax" {
		t.Fatalf("expected pkg_relax, got %v", card.SelectedPackageID)
	}
}

func TestCheckoutRejectsInvalidDraftBeforePayment(t *testing.T) {
	h := newHarness(t)
	d := scenarioDraft()
	d.Amount = decimal.NewFromInt(110)
	h.saveDraft(t, "sess-3", d)

	_, err := h.service.Checkout(context.Background(), Request{SessionKey: "sess-3", TermsAccepted: true, PaymentMethodID: "pm_card_4242"})
	var validation *ValidationError
	if !errors.As(err, &validation) || validation.Errors["amount"] == "" {
		t.Fatalf("expected amount validation error, got %v", err)
	}
	if !errors.Is(err, ErrDraftUnavailable) {
		t.Fatalf("expected validation error to match ErrDraftUnavailable")
	}
	if h.gateway.created != 0 {
		t.Fatalf("expected no payment intent, got %d", h.gateway.created)
	}
}

func TestCheckoutPaymentFailedScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.saveDraft(t, "sess-4", scenarioDraft())

	_, err := h.service.Checkout(ctx, Request{SessionKey: "sess-4", TermsAccepted: true, PaymentMethodID: "pm_card_declined"})
	var payErr *PaymentError
	if !errors.As(err, &payErr) || payErr.Status != payment.StatusFailed {
		t.Fatalf("expected failed PaymentError, got %v", err)
	}
	if n := h.ledgerCount(t); n != 0 {
		t.Fatalf("expected empty ledger, got %d", n)
	}
	if len(h.notifier.recipients()) != 0 {
		t.Fatalf("expected no emails, got %v", h.notifier.recipients())
	}
	if _, ok, _ := h.sessions.Get(ctx, session.DraftKey("sess-4")); !ok {
		t.Fatalf("expected draft kept for retry")
	}

	conf, errRetry := h.service.Checkout(ctx, Request{SessionKey: "sess-4", TermsAccepted: true, PaymentMethodID: "pm_card_4242"})
	if errRetry != nil || conf.GiftCard == nil {
		t.Fatalf("expected retry to succeed, got %v", errRetry)
	}
}

func TestCheckoutRequiresDraftAndTerms(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.service.Checkout(ctx, Request{SessionKey: "nope", TermsAccepted: true}); !errors.Is(err, ErrDraftUnavailable) {
		t.Fatalf("expected ErrDraftUnavailable, got %v", err)
	}
	h.saveDraft(t, "sess-5", scenarioDraft())
	if _, err := h.service.Checkout(ctx, Request{SessionKey: "sess-5", PaymentMethodID: "pm_card_4242"}); !errors.Is(err, ErrTermsNotAccepted) {
		t.Fatalf("expected ErrTermsNotAccepted, got %v", err)
	}
	if h.gateway.created != 0 {
		t.Fatalf("expected no payment intent without terms")
	}
}

func TestCheckoutSelfDownload(t *testing.T) {
	h := newHarness(t)
	d := scenarioDraft()
	d.DeliveryEmail = ""
	h.saveDraft(t, "sess-6", d)

	conf, err := h.service.Checkout(context.Background(), Request{SessionKey: "sess-6", TermsAccepted: true, PaymentMethodID: "abc"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if conf.DeliveryEmailSent {
		t.Fatalf("expected no delivery email")
	}
	if got := h.notifier.recipients(); len(got) != 1 || got[0] != "john@x.com" {
		t.Fatalf("expected only the sender confirmation, got %v", got)
	}
	if conf.GiftCard.PaymentMethodLast4 != "XXXX" {
		t.Fatalf("expected XXXX for short token, got %q", conf.GiftCard.PaymentMethodLast4)
	}
}

func TestLedgerFailureFailsCheckout(t *testing.T) {
	h := newHarness(t)
	h.fulfiller.ledger = failingLedger{}
	h.saveDraft(t, "sess-7", scenarioDraft())

	_, err := h.service.Checkout(context.Background(), Request{SessionKey: "sess-7", TermsAccepted: true, PaymentMethodID: "pm_card_4242"})
	var fe *FulfillmentError
	if !errors.As(err, &fe) || fe.Step != StepLedger {
		t.Fatalf("expected ledger FulfillmentError, got %v", err)
	}
	if len(h.notifier.recipients()) != 0 {
		t.Fatalf("expected no emails after ledger failure")
	}
}

func TestNotificationFailureIsRetriedIdempotently(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.notifier.fail = errors.New("smtp down")
	h.saveDraft(t, "sess-8", scenarioDraft())

	conf, err := h.service.Checkout(ctx, Request{SessionKey: "sess-8", TermsAccepted: true, PaymentMethodID: "pm_card_4242"})
	if err != nil {
		t.Fatalf("expected purchase to succeed despite email failure, got %v", err)
	}
	if conf.DeliveryEmailSent {
		t.Fatalf("expected delivery email not sent")
	}
	if strings.Join(conf.PendingSteps, ",") != "recipient_email,sender_email" {
		t.Fatalf("unexpected pending steps %v", conf.PendingSteps)
	}

	h.notifier.fail = nil
	remaining, errRetry := h.fulfiller.RetryPending(ctx)
	if errRetry != nil || remaining != 0 {
		t.Fatalf("expected all tasks done, remaining=%d err=%v", remaining, errRetry)
	}
	if len(h.notifier.recipients()) != 2 {
		t.Fatalf("expected two emails after retry, got %v", h.notifier.recipients())
	}

	if _, errRun := h.fulfiller.RunCard(ctx, conf.GiftCard); errRun != nil {
		t.Fatalf("run card: %v", errRun)
	}
	if len(h.notifier.recipients()) != 2 {
		t.Fatalf("expected completed steps not to run again, got %v", h.notifier.recipients())
	}

	tasks, _ := h.fulfiller.Tasks(ctx, conf.GiftCard.ID)
	for _, task := range tasks {
		if task.Status != models.FulfillmentDone {
			t.Fatalf("expected task %s done, got %s", task.Step, task.Status)
		}
	}
}

func TestTasksFailAfterMaxAttemptsAndCanBeRearmed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fulfiller.maxAttempts = 2
	h.notifier.fail = errors.New("smtp down")
	h.saveDraft(t, "sess-9", scenarioDraft())

	conf, err := h.service.Checkout(ctx, Request{SessionKey: "sess-9", TermsAccepted: true, PaymentMethodID: "pm_card_4242"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, errRetry := h.fulfiller.RetryPending(ctx); errRetry != nil {
		t.Fatalf("retry: %v", errRetry)
	}
	tasks, _ := h.fulfiller.Tasks(ctx, conf.GiftCard.ID)
	failed := 0
	for _, task := range tasks {
		if task.Status == models.FulfillmentFailed {
			failed++
			if task.Attempts != 2 || task.LastError == "" {
				t.Fatalf("unexpected failed task %+v", task)
			}
		}
	}
	if failed != 2 {
		t.Fatalf("expected both email tasks failed, got %d", failed)
	}

	h.notifier.fail = nil
	res, errRearm := h.fulfiller.Retry(ctx, conf.GiftCard.ID)
	if errRearm != nil {
		t.Fatalf("manual retry: %v", errRearm)
	}
	if !res.DeliveryEmailSent || len(res.Pending) != 0 {
		t.Fatalf("expected manual retry to finish, got %+v", res)
	}
	if _, errMissing := h.fulfiller.Retry(ctx, "missing"); !errors.Is(errMissing, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", errMissing)
	}
}

func TestDocumentIsStoredAndReused(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.saveDraft(t, "sess-10", scenarioDraft())
	conf, err := h.service.Checkout(ctx, Request{SessionKey: "sess-10", TermsAccepted: true, PaymentMethodID: "pm_card_4242"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	doc, errDoc := h.fulfiller.Document(ctx, conf.GiftCard)
	if errDoc != nil || doc == nil {
		t.Fatalf("document: %+v, %v", doc, errDoc)
	}
	if doc.FileName != conf.GiftCard.CardNumber+".pdf" || !strings.HasPrefix(string(doc.Data), "%PDF-") {
		t.Fatalf("unexpected document %s (%d bytes)", doc.FileName, len(doc.Data))
	}
	if len(h.notifier.sent) == 0 || len(h.notifier.sent[0].Attachments) != 1 {
		t.Fatalf("expected recipient email with attachment")
	}
}

func TestFlowTransitions(t *testing.T) {
	f := NewFlow()
	if err := f.Transition(StatePaymentConfirmed); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected illegal transition from draft, got %v", err)
	}
	steps := []State{StateAwaitingPayment, StatePaymentFailed, StateAwaitingPayment, StatePaymentConfirmed, StateFulfilled}
	for _, s := range steps {
		if err := f.Transition(s); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
	}
	if !f.Terminal() {
		t.Fatalf("expected terminal state")
	}
	if err := f.Transition(StateAwaitingPayment); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected fulfilled to be terminal, got %v", err)
	}
	if len(f.History()) != len(steps)+1 {
		t.Fatalf("unexpected history %v", f.History())
	}
}

func TestRetryWorkerCompletesPendingSteps(t *testing.T) {
	h := newHarness(t)
	h.notifier.fail = errors.New("smtp down")
	h.saveDraft(t, "sess-worker", scenarioDraft())
	if _, err := h.service.Checkout(context.Background(), Request{SessionKey: "sess-worker", TermsAccepted: true, PaymentMethodID: "pm_card_4242"}); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	h.notifier.mu.Lock()
	h.notifier.fail = nil
	h.notifier.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewRetryWorker(h.fulfiller)
	w.interval = func() time.Duration { return 10 * time.Millisecond }
	w.Start(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for len(h.notifier.recipients()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("worker did not deliver pending emails, sent %v", h.notifier.recipients())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// gatedNotifier holds the first message to one address until release is closed.
type gatedNotifier struct {
	*recordingNotifier
	to      string
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (n *gatedNotifier) Send(ctx context.Context, msg notify.Message) error {
	if msg.To == n.to {
		first := false
		n.once.Do(func() { first = true })
		if first {
			close(n.entered)
			<-n.release
		}
	}
	return n.recordingNotifier.Send(ctx, msg)
}

func TestRetryPendingSkipsTaskHeldByCheckout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	gate := &gatedNotifier{
		recordingNotifier: h.notifier,
		to:                "jane@x.com",
		entered:           make(chan struct{}),
		release:           make(chan struct{}),
	}
	h.fulfiller.notifier = gate
	h.saveDraft(t, "sess-race", scenarioDraft())

	type outcome struct {
		conf *Confirmation
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		conf, err := h.service.Checkout(ctx, Request{SessionKey: "sess-race", TermsAccepted: true, PaymentMethodID: "pm_card_4242"})
		done <- outcome{conf: conf, err: err}
	}()

	select {
	case <-gate.entered:
	case <-time.After(5 * time.Second):
		t.Fatalf("checkout never reached the recipient email")
	}
	remaining, errRetry := h.fulfiller.RetryPending(ctx)
	if errRetry != nil {
		t.Fatalf("retry: %v", errRetry)
	}
	if remaining != 1 {
		t.Fatalf("expected only the held recipient email outstanding, got %d", remaining)
	}
	close(gate.release)

	var got outcome
	select {
	case got = <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("checkout did not finish")
	}
	if got.err != nil {
		t.Fatalf("checkout: %v", got.err)
	}

	jane := 0
	for _, to := range h.notifier.recipients() {
		if to == "jane@x.com" {
			jane++
		}
	}
	if jane != 1 {
		t.Fatalf("expected one recipient email, got %v", h.notifier.recipients())
	}
	if len(h.notifier.recipients()) != 2 {
		t.Fatalf("expected recipient and sender emails once each, got %v", h.notifier.recipients())
	}
	if !got.conf.DeliveryEmailSent || len(got.conf.PendingSteps) != 0 {
		t.Fatalf("expected confirmation to reflect finished steps, got sent=%v pending=%v", got.conf.DeliveryEmailSent, got.conf.PendingSteps)
	}
	tasks, _ := h.fulfiller.Tasks(ctx, got.conf.GiftCard.ID)
	for _, task := range tasks {
		if task.Status != models.FulfillmentDone || task.Attempts != 1 || task.LockedUntil != nil {
			t.Fatalf("expected task %s done once with lease released, got %+v", task.Step, task)
		}
	}
}

func TestExpiredLeaseIsClaimedAgain(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.notifier.fail = errors.New("smtp down")
	h.saveDraft(t, "sess-lease", scenarioDraft())
	conf, err := h.service.Checkout(ctx, Request{SessionKey: "sess-lease", TermsAccepted: true, PaymentMethodID: "pm_card_4242"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	h.notifier.mu.Lock()
	h.notifier.fail = nil
	h.notifier.mu.Unlock()

	now := time.Now().UTC()
	live := now.Add(time.Minute)
	if errHold := h.db.Model(&models.FulfillmentTask{}).
		Where("gift_card_id = ? AND step = ?", conf.GiftCard.ID, StepRecipientEmail).
		Updates(map[string]any{"status": models.FulfillmentRunning, "locked_until": live}).Error; errHold != nil {
		t.Fatalf("hold task: %v", errHold)
	}
	if _, errRetry := h.fulfiller.RetryPending(ctx); errRetry != nil {
		t.Fatalf("retry: %v", errRetry)
	}
	if got := h.notifier.recipients(); len(got) != 1 || got[0] != "john@x.com" {
		t.Fatalf("expected leased recipient email to be skipped, got %v", got)
	}

	expired := now.Add(-time.Minute)
	if errExpire := h.db.Model(&models.FulfillmentTask{}).
		Where("gift_card_id = ? AND step = ?", conf.GiftCard.ID, StepRecipientEmail).
		Update("locked_until", expired).Error; errExpire != nil {
		t.Fatalf("expire lease: %v", errExpire)
	}
	remaining, errRetry := h.fulfiller.RetryPending(ctx)
	if errRetry != nil || remaining != 0 {
		t.Fatalf("expected expired lease to be reclaimed, remaining=%d err=%v", remaining, errRetry)
	}
	if got := h.notifier.recipients(); len(got) != 2 || got[1] != "jane@x.com" {
		t.Fatalf("expected recipient email after lease expiry, got %v", got)
	}
}

func TestFulfillDrawsNewSuffixWhenCardNumberTaken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	newCard := func(id string) *models.GiftCard {
		return &models.GiftCard{
			ID:                 id,
			CardNumber:         "GC-JA100BI-AB12",
			RecipientName:      "Jane Doe",
			SenderName:         "John Smith",
			SenderEmail:        "john@x.com",
			DeliveryEmail:      "jane@x.com",
			Occasion:           "Birthday",
			DesignID:           "template1",
			AmountType:         string(giftcard.AmountCustom),
			Amount:             decimal.NewFromInt(100),
			Currency:           "usd",
			Status:             models.GiftCardStatusActive,
			PaymentMethodLast4: "4242",
			PurchaseDate:       time.Now().UTC(),
		}
	}

	if _, err := h.fulfiller.Fulfill(ctx, newCard("card-a")); err != nil {
		t.Fatalf("first fulfill: %v", err)
	}
	second := newCard("card-b")
	if _, err := h.fulfiller.Fulfill(ctx, second); err != nil {
		t.Fatalf("expected taken card number to be re-drawn, got %v", err)
	}
	if second.CardNumber == "GC-JA100BI-AB12" || !regexp.MustCompile(`^GC-JA100BI-[A-Z0-9]{4}$`).MatchString(second.CardNumber) {
		t.Fatalf("unexpected re-drawn card number %q", second.CardNumber)
	}
	stored, errGet := h.ledger.Get(ctx, "card-b")
	if errGet != nil || stored == nil || stored.CardNumber != second.CardNumber {
		t.Fatalf("expected ledger to hold the re-drawn number, got %+v, %v", stored, errGet)
	}
	if h.ledgerCount(t) != 2 {
		t.Fatalf("expected two ledger records, got %d", h.ledgerCount(t))
	}
}

type brokenSessionStore struct{}

func (brokenSessionStore) Get(context.Context, string) (json.RawMessage, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (brokenSessionStore) Set(context.Context, string, json.RawMessage) error { return nil }

func (brokenSessionStore) Remove(context.Context, string) error { return nil }

func TestLoadDraftSurfacesSessionStoreFailure(t *testing.T) {
	h := newHarness(t)
	svc := NewService(Deps{
		Sessions:  brokenSessionStore{},
		Catalog:   catalog.Static{DesignList: catalog.DefaultDesigns(), PackageList: catalog.DefaultPackages()},
		Gateway:   h.gateway,
		Fulfiller: h.fulfiller,
	})
	_, _, err := svc.LoadDraft(context.Background(), "sess-broken")
	if err == nil {
		t.Fatalf("expected session store error")
	}
	if errors.Is(err, ErrDraftUnavailable) {
		t.Fatalf("expected store failure not to read as a missing draft, got %v", err)
	}
	if _, errCheckout := svc.Checkout(context.Background(), Request{SessionKey: "sess-broken", TermsAccepted: true, PaymentMethodID: "pm_card_4242"}); errCheckout == nil || errors.Is(errCheckout, ErrDraftUnavailable) {
		t.Fatalf("expected checkout to surface the store failure, got %v", errCheckout)
	}
	if h.gateway.created != 0 {
		t.Fatalf("expected no payment attempt")
	}
}
