package constants

// Static route constants
const (
	APIRoute     = "/api/v1"
	FeedRoute    = "/api/v1/feed"
	QuotaRoute   = "/api/v1/quota"
	BillingRoute = "/billing"
	LoginRoute   = "/login"
)
