package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthCheck probes one optional dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db     *gorm.DB
	checks map[string]HealthCheck
}

// NewHealthHandler constructs a HealthHandler. checks adds probes beyond the database, e.g. redis.
func NewHealthHandler(db *gorm.DB, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{db: db, checks: checks}
}

// Healthz checks database connectivity plus the extra probes and returns status.
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx := c.Request.Context()
	status := gin.H{}
	ok := true

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		ok = false
		status["database"] = "down"
	} else {
		status["database"] = "ok"
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if errCheck := h.checks[name](ctx); errCheck != nil {
			ok = false
			status[name] = "down"
			continue
		}
		status[name] = "ok"
	}

	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"ok": ok, "checks": status})
}
