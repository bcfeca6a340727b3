package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels of the authentication metrics.
const (
	OutcomeSuccess        = "success"
	OutcomePassThrough    = "pass_through"
	OutcomeRejected       = "rejected"
	OutcomeGroupsMissing  = "groups_missing"
	OutcomeNotPermitted   = "not_permitted"
	OutcomeUnavailable    = "unavailable"
	OutcomeInvalidRequest = "invalid_request"
	OutcomeError          = "error"
)

var (
	authTotal    *prometheus.CounterVec   //nolint:gochecknoglobals
	authDuration *prometheus.HistogramVec //nolint:gochecknoglobals
	metricsOnce  sync.Once                //nolint:gochecknoglobals
)

func registerMetrics() {
	metricsOnce.Do(func() {
		authTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ldapsso_authentications_total",
				Help: "Number of authentication attempts, differentiated by outcome.",
			},
			[]string{"outcome"},
		)
		authDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ldapsso_authentication_duration_seconds",
				Help:    "Duration of authentication attempts including synchronization.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		)
	})
}

func observe(outcome string, d time.Duration) {
	authTotal.WithLabelValues(outcome).Inc()
	authDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// OutcomeLabel classifies the result of Authenticate.
func OutcomeLabel(o *Outcome, err error) string {
	switch {
	case err == nil && o != nil && o.PassThrough:
		return OutcomePassThrough
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrEmptyUsername):
		return OutcomeInvalidRequest
	case errors.Is(err, ErrCredentialsRejected):
		return OutcomeRejected
	case errors.Is(err, ErrRequiredGroupsMissing):
		return OutcomeGroupsMissing
	case errors.Is(err, ErrUserNotPermitted), errors.Is(err, ErrMembershipRejected):
		return OutcomeNotPermitted
	case errors.Is(err, ErrDirectoryUnavailable), errors.Is(err, ErrUserNotFound):
		return OutcomeUnavailable
	default:
		return OutcomeError
	}
}
