package metrics

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// AppMetrics holds the portal's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal      metric.Int64Counter
	HTTPRequestDuration    metric.Float64Histogram
	AuthRequestsTotal      metric.Int64Counter
	AuthRequestDuration    metric.Float64Histogram
	StaleAuthResultsTotal  metric.Int64Counter
	GuardVerdictsTotal     metric.Int64Counter
	AuthzFailuresTotal     metric.Int64Counter
	ActiveViewers          metric.Int64UpDownCounter
	ProxyRequestsTotal     metric.Int64Counter
	TemplateRenderDuration metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments once from the global MeterProvider.
// Call it after the provider is installed so the Prometheus exporter sees them.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("estate-portal")
		m := &AppMetrics{}
		var err error

		m.HTTPRequestsTotal, err = meter.Int64Counter(
			"http_requests_total",
			metric.WithDescription("Total number of HTTP requests completed"),
			metric.WithUnit("{request}"),
		)
		fatalOnErr("http_requests_total", err)

		m.HTTPRequestDuration, err = meter.Float64Histogram(
			"http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
		)
		fatalOnErr("http_request_duration_seconds", err)

		m.AuthRequestsTotal, err = meter.Int64Counter(
			"auth_requests_total",
			metric.WithDescription("Login, logout and status check calls by operation and outcome"),
			metric.WithUnit("{request}"),
		)
		fatalOnErr("auth_requests_total", err)

		m.AuthRequestDuration, err = meter.Float64Histogram(
			"auth_request_duration_seconds",
			metric.WithDescription("Duration of backend auth calls in seconds"),
			metric.WithUnit("s"),
		)
		fatalOnErr("auth_request_duration_seconds", err)

		m.StaleAuthResultsTotal, err = meter.Int64Counter(
			"auth_stale_results_total",
			metric.WithDescription("Auth results discarded because a newer login or logout was issued"),
			metric.WithUnit("{result}"),
		)
		fatalOnErr("auth_stale_results_total", err)

		m.GuardVerdictsTotal, err = meter.Int64Counter(
			"guard_verdicts_total",
			metric.WithDescription("Route guard verdicts by state and requirement"),
			metric.WithUnit("{verdict}"),
		)
		fatalOnErr("guard_verdicts_total", err)

		m.AuthzFailuresTotal, err = meter.Int64Counter(
			"backend_authorization_failures_total",
			metric.WithDescription("401/403 responses from non-auth backend calls"),
			metric.WithUnit("{response}"),
		)
		fatalOnErr("backend_authorization_failures_total", err)

		m.ActiveViewers, err = meter.Int64UpDownCounter(
			"active_viewers_current",
			metric.WithDescription("Viewers currently held by the registry"),
			metric.WithUnit("{viewer}"),
		)
		fatalOnErr("active_viewers_current", err)

		m.ProxyRequestsTotal, err = meter.Int64Counter(
			"api_proxy_requests_total",
			metric.WithDescription("Requests forwarded to the backend API"),
			metric.WithUnit("{request}"),
		)
		fatalOnErr("api_proxy_requests_total", err)

		m.TemplateRenderDuration, err = meter.Float64Histogram(
			"template_render_duration_seconds",
			metric.WithDescription("Duration of template rendering in seconds"),
			metric.WithUnit("s"),
		)
		fatalOnErr("template_render_duration_seconds", err)

		zap.L().Info("Application metrics instruments initialized")
		appMetrics = m
	})
}

// Get returns the instruments, creating them against the current global
// provider on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}

func fatalOnErr(name string, err error) {
	if err != nil {
		zap.L().Fatal("Metrics: failed to create instrument", zap.String("instrument", name), zap.Error(err))
	}
}
