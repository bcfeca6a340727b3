package handler

const (
	// RouterRootPath is the root path of a route group.
	RouterRootPath = "/"

	// APIPath prefixes the JSON API.
	APIPath = "/api/v1"

	// CheckAlivePath is polled by load balancers.
	CheckAlivePath = "/checkalive"

	// MetricsPath exposes the prometheus metrics.
	MetricsPath = "/metrics"

	// ErrNilACFatalLogMsg is used if app, cfg or authenticator is nil.
	ErrNilACFatalLogMsg = "app, cfg or authenticator is nil"
)
