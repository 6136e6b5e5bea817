package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/luxspa/giftspa/internal/catalog"
	"github.com/luxspa/giftspa/internal/checkout"
	dbpkg "github.com/luxspa/giftspa/internal/db"
	"github.com/luxspa/giftspa/internal/document"
	"github.com/luxspa/giftspa/internal/http/api/admin/handlers"
	"github.com/luxspa/giftspa/internal/ledger"
	"github.com/luxspa/giftspa/internal/models"
	"github.com/luxspa/giftspa/internal/notify"
	internalsettings "github.com/luxspa/giftspa/internal/settings"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type switchableNotifier struct {
	mu   sync.Mutex
	fail bool
	sent int
}

func (n *switchableNotifier) Send(context.Context, notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unavailable")
	}
	n.sent++
	return nil
}

type adminEnv struct {
	router    *gin.Engine
	db        *gorm.DB
	ledger    *ledger.Store
	fulfiller *checkout.Fulfiller
	notifier  *switchableNotifier
}

func newAdminEnv(t *testing.T, adminKey string) *adminEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := dbpkg.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := dbpkg.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	if errSeed := catalog.SeedDefaults(context.Background(), conn); errSeed != nil {
		t.Fatalf("seed: %v", errSeed)
	}

	repo := ledger.NewStore(conn, "lookup-secret")
	notifier := &switchableNotifier{}
	fulfiller := checkout.NewFulfiller(checkout.FulfillerDeps{
		DB:        conn,
		Ledger:    repo,
		Catalog:   catalog.NewStore(conn),
		Renderer:  document.NewPDFRenderer(),
		Documents: document.NewStore(conn),
		Notifier:  notifier,
		Links:     checkout.Links{BaseURL: "https://spa.example", Secret: "artifact-secret"},
	})

	router := gin.New()
	RegisterAdminRoutes(router, Deps{
		DB:        conn,
		Ledger:    repo,
		Fulfiller: fulfiller,
		AdminKey:  adminKey,
		HealthChecks: map[string]handlers.HealthCheck{
			"sessions": func(context.Context) error { return nil },
		},
	})
	return &adminEnv{router: router, db: conn, ledger: repo, fulfiller: fulfiller, notifier: notifier}
}

func (e *adminEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var errMarshal error
		payload, errMarshal = json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal: %v", errMarshal)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *adminEnv) purchase(t *testing.T, id, recipient, deliveryEmail string, purchased time.Time) *models.GiftCard {
	t.Helper()
	card := &models.GiftCard{
		ID:                 id,
		CardNumber:         "GC-" + strings.ToUpper(id),
		RecipientName:      recipient,
		SenderName:         "John Smith",
		SenderEmail:        "john@x.com",
		DeliveryEmail:      deliveryEmail,
		NoteToStaff:        "prefers mornings",
		Occasion:           "Birthday",
		DesignID:           "template1",
		AmountType:         "custom",
		Amount:             decimal.NewFromInt(200),
		Currency:           "usd",
		Status:             models.GiftCardStatusActive,
		PaymentMethodLast4: "4242",
		PurchaseDate:       purchased,
	}
	if _, errFulfill := e.fulfiller.Fulfill(context.Background(), card); errFulfill != nil {
		t.Fatalf("fulfill: %v", errFulfill)
	}
	return card
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if errDecode := json.Unmarshal(rr.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), errDecode)
	}
	return out
}

func TestHealthz(t *testing.T) {
	env := newAdminEnv(t, "")
	rr := env.do(t, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody[struct {
		OK     bool              `json:"ok"`
		Checks map[string]string `json:"checks"`
	}](t, rr)
	if !body.OK || body.Checks["database"] != "ok" || body.Checks["sessions"] != "ok" {
		t.Fatalf("unexpected health %+v", body)
	}
}

func TestAdminRoutesRequireKey(t *testing.T) {
	env := newAdminEnv(t, "s3cret")
	if rr := env.do(t, http.MethodGet, "/v0/admin/gift-cards", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/v0/admin/gift-cards", nil, "X-Admin-Key", "s3cret"); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/healthz", nil); rr.Code != http.StatusOK {
		t.Fatalf("healthz must stay open, got %d", rr.Code)
	}
}

func TestDesignTemplateCRUD(t *testing.T) {
	env := newAdminEnv(t, "")

	rr := env.do(t, http.MethodPost, "/v0/admin/design-templates", map[string]any{"name": "ab", "imageUrl": "not a url"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid template, got %d", rr.Code)
	}
	invalid := decodeBody[struct {
		Errors map[string]string `json:"errors"`
	}](t, rr)
	if invalid.Errors["name"] == "" || invalid.Errors["imageUrl"] == "" {
		t.Fatalf("expected name and imageUrl errors, got %v", invalid.Errors)
	}

	rr = env.do(t, http.MethodPost, "/v0/admin/design-templates", map[string]any{
		"name":             "Lavender Fields",
		"imageUrl":         "https://picsum.photos/seed/lavender/600/370",
		"aiHint":           "lavender field",
		"featuredOccasion": "Holiday",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decodeBody[models.DesignTemplate](t, rr)
	if !strings.HasPrefix(created.ID, "template_") {
		t.Fatalf("expected generated template id, got %q", created.ID)
	}

	rr = env.do(t, http.MethodPut, "/v0/admin/design-templates/"+created.ID, map[string]any{"name": "Lavender Dreams"})
	if rr.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", rr.Code)
	}
	if updated := decodeBody[models.DesignTemplate](t, rr); updated.Name != "Lavender Dreams" || updated.AIHint != "lavender field" {
		t.Fatalf("expected partial update, got %+v", updated)
	}

	rr = env.do(t, http.MethodGet, "/v0/admin/design-templates", nil)
	list := decodeBody[struct {
		Templates []models.DesignTemplate `json:"design_templates"`
	}](t, rr)
	if len(list.Templates) != 5 {
		t.Fatalf("expected 5 templates, got %d", len(list.Templates))
	}

	if rr = env.do(t, http.MethodDelete, "/v0/admin/design-templates/"+created.ID, nil); rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rr.Code)
	}
	if rr = env.do(t, http.MethodGet, "/v0/admin/design-templates/"+created.ID, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestSpaPackageCRUD(t *testing.T) {
	env := newAdminEnv(t, "")

	rr := env.do(t, http.MethodPost, "/v0/admin/spa-packages", map[string]any{"id": "pkg_relax", "name": "Duplicate", "price": 100})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate id, got %d", rr.Code)
	}
	rr = env.do(t, http.MethodPost, "/v0/admin/spa-packages", map[string]any{"name": "Hot Stone", "price": -5})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative price, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/v0/admin/spa-packages", map[string]any{"id": "pkg_hot_stone", "name": "Hot Stone", "description": "90 minutes", "price": "180.50"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decodeBody[models.SpaPackage](t, rr)
	if !created.Price.Equal(decimal.RequireFromString("180.5")) {
		t.Fatalf("unexpected price %s", created.Price)
	}

	rr = env.do(t, http.MethodPut, "/v0/admin/spa-packages/pkg_hot_stone", map[string]any{"price": 190})
	if updated := decodeBody[models.SpaPackage](t, rr); !updated.Price.Equal(decimal.NewFromInt(190)) || updated.Name != "Hot Stone" {
		t.Fatalf("unexpected update %+v", updated)
	}

	if rr = env.do(t, http.MethodDelete, "/v0/admin/spa-packages/pkg_hot_stone", nil); rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rr.Code)
	}
	if rr = env.do(t, http.MethodDelete, "/v0/admin/spa-packages/pkg_hot_stone", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rr.Code)
	}
}

func TestGiftCardListSearchAndExport(t *testing.T) {
	env := newAdminEnv(t, "")
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	env.purchase(t, "card-a", "Jane Doe", "jane@x.com", base)
	env.purchase(t, "card-b", "Alex Roe", "", base.Add(time.Hour))

	rr := env.do(t, http.MethodGet, "/v0/admin/gift-cards", nil)
	list := decodeBody[struct {
		GiftCards []models.GiftCard `json:"gift_cards"`
	}](t, rr)
	if len(list.GiftCards) != 2 || list.GiftCards[0].ID != "card-b" {
		t.Fatalf("expected newest first, got %+v", list.GiftCards)
	}
	if list.GiftCards[0].NoteToStaff != "prefers mornings" {
		t.Fatalf("admin view must include the staff note")
	}

	rr = env.do(t, http.MethodGet, "/v0/admin/gift-cards?q=jane", nil)
	list = decodeBody[struct {
		GiftCards []models.GiftCard `json:"gift_cards"`
	}](t, rr)
	if len(list.GiftCards) != 1 || list.GiftCards[0].ID != "card-a" {
		t.Fatalf("unexpected search result %+v", list.GiftCards)
	}

	rr = env.do(t, http.MethodGet, "/v0/admin/gift-cards?status=redeemed", nil)
	list = decodeBody[struct {
		GiftCards []models.GiftCard `json:"gift_cards"`
	}](t, rr)
	if len(list.GiftCards) != 0 {
		t.Fatalf("expected no redeemed cards, got %d", len(list.GiftCards))
	}

	rr = env.do(t, http.MethodGet, "/v0/admin/gift-cards/export?status=active", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("Content-Disposition"), "purchased_gift_cards.json") {
		t.Fatalf("unexpected export response %d %q", rr.Code, rr.Header().Get("Content-Disposition"))
	}
	exported := decodeBody[[]map[string]any](t, rr)
	if len(exported) != 2 {
		t.Fatalf("expected 2 exported cards, got %d", len(exported))
	}
	if _, leaked := exported[0]["lookupDigest"]; leaked {
		t.Fatalf("export must not include the lookup digest")
	}

	if rr = env.do(t, http.MethodGet, "/v0/admin/gift-cards/missing", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if rr = env.do(t, http.MethodGet, "/v0/admin/gift-cards?limit=-1", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rr.Code)
	}
}

func TestGiftCardTasksAndRetry(t *testing.T) {
	env := newAdminEnv(t, "")
	env.notifier.fail = true
	env.purchase(t, "card-a", "Jane Doe", "jane@x.com", time.Now().UTC())

	rr := env.do(t, http.MethodGet, "/v0/admin/gift-cards/card-a/tasks", nil)
	tasks := decodeBody[struct {
		Tasks []struct {
			Step   string `json:"step"`
			Status string `json:"status"`
		} `json:"tasks"`
	}](t, rr)
	pending := 0
	for _, task := range tasks.Tasks {
		if task.Status != models.FulfillmentDone {
			pending++
		}
	}
	if pending != 2 {
		t.Fatalf("expected both email steps pending, got %+v", tasks.Tasks)
	}

	env.notifier.fail = false
	rr = env.do(t, http.MethodPost, "/v0/admin/gift-cards/card-a/retry", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("retry: expected 200, got %d", rr.Code)
	}
	result := decodeBody[struct {
		PendingSteps      []string `json:"pending_steps"`
		DeliveryEmailSent bool     `json:"delivery_email_sent"`
	}](t, rr)
	if len(result.PendingSteps) != 0 || !result.DeliveryEmailSent {
		t.Fatalf("expected retry to complete fulfillment, got %+v", result)
	}
	if env.notifier.sent != 2 {
		t.Fatalf("expected two emails after retry, got %d", env.notifier.sent)
	}

	if rr = env.do(t, http.MethodPost, "/v0/admin/gift-cards/missing/retry", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestSettingsAndDashboard(t *testing.T) {
	env := newAdminEnv(t, "")
	t.Cleanup(func() { internalsettings.Store(time.Time{}, map[string]json.RawMessage{}) })

	rr := env.do(t, http.MethodPut, "/v0/admin/settings/CURRENCY", map[string]any{"value": "euros"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid currency, got %d", rr.Code)
	}
	rr = env.do(t, http.MethodPut, "/v0/admin/settings/UNKNOWN", map[string]any{"value": 1})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown key, got %d", rr.Code)
	}
	rr = env.do(t, http.MethodPut, "/v0/admin/settings/site_name", map[string]any{"value": "Serenity Spa"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if internalsettings.SiteName() != "Serenity Spa" {
		t.Fatalf("expected snapshot refresh, got %q", internalsettings.SiteName())
	}

	env.purchase(t, "card-a", "Jane Doe", "jane@x.com", time.Now().UTC())
	env.purchase(t, "card-b", "Alex Roe", "", time.Now().UTC())
	rr = env.do(t, http.MethodGet, "/v0/admin/dashboard/summary", nil)
	summary := decodeBody[struct {
		Total       int64            `json:"total"`
		ByStatus    map[string]int64 `json:"by_status"`
		TotalAmount decimal.Decimal  `json:"total_amount"`
	}](t, rr)
	if summary.Total != 2 || summary.ByStatus["active"] != 2 || !summary.TotalAmount.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
