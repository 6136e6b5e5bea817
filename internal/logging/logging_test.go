package logging

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/luxspa/giftspa/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestGinLoggerMasksTokenQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hook := test.NewGlobal()
	defer hook.Reset()
	previous := log.GetLevel()
	log.SetLevel(log.DebugLevel)
	defer log.SetLevel(previous)

	r := gin.New()
	r.Use(GinLogger())
	r.GET("/v0/front/gift-cards/:id/document", func(c *gin.Context) {
		c.Status(http.StatusUnauthorized)
	})

	req := httptest.NewRequest(http.MethodGet, "/v0/front/gift-cards/card-1/document?token=abcdefghijklmnop", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected a log entry")
	}
	if entry.Level != log.WarnLevel {
		t.Fatalf("expected warn level for 401, got %s", entry.Level)
	}
	query, _ := entry.Data["query"].(string)
	if strings.Contains(query, "abcdefghijklmnop") || query != "token=abcd...mnop" {
		t.Fatalf("expected masked token, got %q", query)
	}
}

func TestSetupFallsBackToInfo(t *testing.T) {
	previous := log.GetLevel()
	defer log.SetLevel(previous)

	closer := Setup(configWithLevel("verbose"))
	defer func() { _ = closer.Close() }()
	if log.GetLevel() != log.InfoLevel {
		t.Fatalf("expected info level, got %s", log.GetLevel())
	}
}

func configWithLevel(level string) config.LogConfig {
	return config.LogConfig{Level: level}
}
