package config

// Observability configures OpenTelemetry export. Telemetry stays disabled
// when both URLs are empty.
type Observability struct {
	ServiceName string `mapstructure:"service_name" validate:"required_with=TracingURL MetricsURL"`
	TracingURL  string `mapstructure:"tracing_url" validate:"omitempty,url"`
	MetricsURL  string `mapstructure:"metrics_url" validate:"omitempty,url"`
}

func (o Observability) Enabled() bool {
	return o.TracingURL != "" || o.MetricsURL != ""
}
