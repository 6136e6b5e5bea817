package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/luxspa/giftspa/internal/checkout"
	relayhttp "github.com/luxspa/giftspa/internal/http"
	"github.com/luxspa/giftspa/internal/http/api/admin/handlers"
	"github.com/luxspa/giftspa/internal/ledger"
	"gorm.io/gorm"
)

// Deps holds the collaborators of the admin routes.
type Deps struct {
	DB        *gorm.DB
	Ledger    *ledger.Store
	Fulfiller *checkout.Fulfiller
	// AdminKey guards every admin route when set.
	AdminKey string
	// HealthChecks are probed by /healthz next to the database.
	HealthChecks map[string]handlers.HealthCheck
}

// RegisterAdminRoutes registers /healthz and the /v0/admin routes.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil || deps.Ledger == nil || deps.Fulfiller == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.HealthChecks)
	r.GET("/healthz", healthHandler.Healthz)

	admin := r.Group("/v0/admin")
	admin.Use(relayhttp.AdminKeyMiddleware(deps.AdminKey))

	designHandler := handlers.NewDesignTemplateHandler(deps.DB)
	admin.GET("/design-templates", designHandler.List)
	admin.POST("/design-templates", designHandler.Create)
	admin.GET("/design-templates/:id", designHandler.Get)
	admin.PUT("/design-templates/:id", designHandler.Update)
	admin.DELETE("/design-templates/:id", designHandler.Delete)

	packageHandler := handlers.NewSpaPackageHandler(deps.DB)
	admin.GET("/spa-packages", packageHandler.List)
	admin.POST("/spa-packages", packageHandler.Create)
	admin.GET("/spa-packages/:id", packageHandler.Get)
	admin.PUT("/spa-packages/:id", packageHandler.Update)
	admin.DELETE("/spa-packages/:id", packageHandler.Delete)

	giftCardHandler := handlers.NewGiftCardHandler(deps.Ledger, deps.Fulfiller)
	admin.GET("/gift-cards", giftCardHandler.List)
	admin.GET("/gift-cards/export", giftCardHandler.Export)
	admin.GET("/gift-cards/:id", giftCardHandler.Get)
	admin.GET("/gift-cards/:id/tasks", giftCardHandler.Tasks)
	admin.POST("/gift-cards/:id/retry", giftCardHandler.Retry)

	settingsHandler := handlers.NewSettingsHandler(deps.DB)
	admin.GET("/settings", settingsHandler.List)
	admin.PUT("/settings/:key", settingsHandler.Put)

	dashboardHandler := handlers.NewDashboardHandler(deps.DB, deps.Ledger)
	admin.GET("/dashboard/summary", dashboardHandler.Summary)
}
