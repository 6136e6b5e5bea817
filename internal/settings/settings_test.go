package settings

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	dbpkg "github.com/luxspa/giftspa/internal/db"
)

func TestAccessorsFallBackWhenUnset(t *testing.T) {
	Store(time.Time{}, nil)
	t.Cleanup(func() { Store(time.Time{}, nil) })

	if got := SiteName(); got != DefaultSiteName {
		t.Fatalf("expected default site name, got %q", got)
	}
	if got := Currency(); got != DefaultCurrency {
		t.Fatalf("expected default currency, got %q", got)
	}
	if DeliveryEmailRequired() {
		t.Fatalf("expected delivery email optional by default")
	}
	if got := FulfillmentRetryInterval(); got != time.Minute {
		t.Fatalf("expected 60s retry interval, got %s", got)
	}
}

func TestAccessorsParseLooseValues(t *testing.T) {
	Store(time.Now(), map[string]json.RawMessage{
		CurrencyKey:                        json.RawMessage(`{"value":"EUR"}`),
		DeliveryEmailRequiredKey:           json.RawMessage(`"true"`),
		FulfillmentRetryIntervalSecondsKey: json.RawMessage(`"15"`),
	})
	t.Cleanup(func() { Store(time.Time{}, nil) })

	if got := Currency(); got != "eur" {
		t.Fatalf("expected eur, got %q", got)
	}
	if !DeliveryEmailRequired() {
		t.Fatalf("expected delivery email required")
	}
	if got := FulfillmentRetryInterval(); got != 15*time.Second {
		t.Fatalf("expected 15s, got %s", got)
	}
}

func TestNonPositiveRetryIntervalUsesDefault(t *testing.T) {
	Store(time.Now(), map[string]json.RawMessage{
		FulfillmentRetryIntervalSecondsKey: json.RawMessage(`0`),
	})
	t.Cleanup(func() { Store(time.Time{}, nil) })

	if got := FulfillmentRetryInterval(); got != time.Minute {
		t.Fatalf("expected default interval, got %s", got)
	}
}

func TestPutPersistsAndRefreshes(t *testing.T) {
	conn, errOpen := dbpkg.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := dbpkg.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	t.Cleanup(func() { Store(time.Time{}, nil) })

	ctx := context.Background()
	if errPut := Put(ctx, conn, SiteNameKey, json.RawMessage(`"Harbor Spa"`)); errPut != nil {
		t.Fatalf("put: %v", errPut)
	}
	if errPut := Put(ctx, conn, SiteNameKey, json.RawMessage(`"Harbor Spa & Baths"`)); errPut != nil {
		t.Fatalf("second put: %v", errPut)
	}
	if got := SiteName(); got != "Harbor Spa & Baths" {
		t.Fatalf("expected updated site name, got %q", got)
	}

	Store(time.Time{}, nil)
	if errRefresh := Refresh(ctx, conn); errRefresh != nil {
		t.Fatalf("refresh: %v", errRefresh)
	}
	if got := SiteName(); got != "Harbor Spa & Baths" {
		t.Fatalf("expected persisted site name after refresh, got %q", got)
	}
	if len(All()) != 1 {
		t.Fatalf("expected one stored setting, got %d", len(All()))
	}
}

func TestPutRejectsInvalidJSON(t *testing.T) {
	conn, errOpen := dbpkg.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := dbpkg.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	if errPut := Put(context.Background(), conn, CurrencyKey, json.RawMessage(`usd`)); errPut == nil {
		t.Fatalf("expected invalid json error")
	}
}
