package front

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/luxspa/giftspa/internal/catalog"
	"github.com/luxspa/giftspa/internal/checkout"
	"github.com/luxspa/giftspa/internal/giftcard"
	relayhttp "github.com/luxspa/giftspa/internal/http"
	"github.com/luxspa/giftspa/internal/http/api/front/handlers"
	"github.com/luxspa/giftspa/internal/ledger"
	"github.com/luxspa/giftspa/internal/metrics"
	"github.com/luxspa/giftspa/internal/session"
	internalsettings "github.com/luxspa/giftspa/internal/settings"
)

// Deps holds the collaborators of the storefront routes.
type Deps struct {
	Sessions  session.Store
	Catalog   catalog.Catalog
	Checkout  *checkout.Service
	Fulfiller *checkout.Fulfiller
	Ledger    ledger.Repository
	Links     checkout.Links
	Metrics   *metrics.Metrics

	// Limiter and RetrievalLimit throttle gift card lookups per client IP per minute.
	Limiter        relayhttp.Limiter
	RetrievalLimit int

	// Policy defaults to the DB-backed delivery email setting.
	Policy func() giftcard.Policy
}

// RegisterFrontRoutes registers the public storefront routes.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.Sessions == nil || deps.Catalog == nil || deps.Checkout == nil {
		return
	}
	policy := deps.Policy
	if policy == nil {
		policy = func() giftcard.Policy {
			return giftcard.Policy{RequireDeliveryEmail: internalsettings.DeliveryEmailRequired()}
		}
	}

	front := r.Group("/v0/front")
	front.GET("/config", handlers.GetPublicConfig)

	catalogHandler := handlers.NewCatalogHandler(deps.Catalog)
	front.GET("/designs", catalogHandler.Designs)
	front.GET("/packages", catalogHandler.Packages)

	draftHandler := handlers.NewDraftHandler(deps.Sessions, deps.Catalog, policy)
	front.POST("/drafts", draftHandler.Create)
	front.GET("/drafts/:key", draftHandler.Get)
	front.PATCH("/drafts/:key", draftHandler.Update)
	front.POST("/drafts/:key/package", draftHandler.SelectPackage)
	front.DELETE("/drafts/:key", draftHandler.Delete)

	checkoutHandler := handlers.NewCheckoutHandler(deps.Checkout)
	front.GET("/checkout/:key", checkoutHandler.Summary)
	front.POST("/checkout/:key", checkoutHandler.Submit)

	giftCardHandler := handlers.NewGiftCardFrontHandler(deps.Ledger, deps.Fulfiller, deps.Links, deps.Metrics)
	front.POST("/gift-cards/retrieve",
		relayhttp.RateLimitMiddleware(deps.Limiter, "retrieve", deps.RetrievalLimit, time.Minute),
		giftCardHandler.Retrieve,
	)
	front.GET("/gift-cards/:id/document", giftCardHandler.Document)
}
