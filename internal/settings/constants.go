package settings

// DB-backed setting keys and their defaults.
const (
	// SiteNameKey is the storefront name printed on cards and emails.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback storefront name.
	DefaultSiteName = "The Luxurious Spa"
	// CurrencyKey is the ISO currency used for payment intents.
	CurrencyKey = "CURRENCY"
	// DefaultCurrency is the fallback currency.
	DefaultCurrency = "usd"
	// DeliveryEmailRequiredKey makes the recipient email mandatory for every purchase.
	DeliveryEmailRequiredKey = "DELIVERY_EMAIL_REQUIRED"
	// DefaultDeliveryEmailRequired keeps self-download purchases possible.
	DefaultDeliveryEmailRequired = false
	// FulfillmentRetryIntervalSecondsKey controls how often pending fulfillment steps are retried.
	FulfillmentRetryIntervalSecondsKey = "FULFILLMENT_RETRY_INTERVAL_SECONDS"
	// DefaultFulfillmentRetryIntervalSeconds is the fallback retry interval.
	DefaultFulfillmentRetryIntervalSeconds = 60
)
