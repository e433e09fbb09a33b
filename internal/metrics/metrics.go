package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

type Config struct {
	PushURL      string
	Interval     time.Duration
	CommonLabels string
}

var (
	InitiatedTotal      = metrics.NewCounter(`payment_initiate_total{result="redirect"}`)
	InitiateFailedTotal = metrics.NewCounter(`payment_initiate_total{result="failed"}`)
	PriceMismatchTotal  = metrics.NewCounter(`payment_price_mismatch_total`)

	CallbackSuccessTotal    = metrics.NewCounter(`payment_callback_total{outcome="success"}`)
	CallbackDeclinedTotal   = metrics.NewCounter(`payment_callback_total{outcome="declined"}`)
	CallbackAmbiguousTotal  = metrics.NewCounter(`payment_callback_total{outcome="ambiguous"}`)
	CallbackUnverifiedTotal = metrics.NewCounter(`payment_callback_total{outcome="unverified"}`)
	CallbackUnknownTotal    = metrics.NewCounter(`payment_callback_total{outcome="unknown_order"}`)
	CallbackReplayTotal     = metrics.NewCounter(`payment_callback_replay_total`)

	RateLimitedTotal = metrics.NewCounter(`http_rate_limited_total`)

	InitiateDuration = metrics.NewHistogram(`payment_initiate_duration_seconds`)
)

// Setup starts pushing to PushURL when it is set.
func Setup(cfg Config, logger *slog.Logger) {
	if cfg.PushURL == "" {
		return
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if err := metrics.InitPush(cfg.PushURL, interval, cfg.CommonLabels, true); err != nil {
		logger.Error("metrics push init failed", "error", err)
	}
}

// Handler exposes the default set in Prometheus text format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
}
