package metrics

import "time"

// MatchResult captures the outcome of one dispatch request for observability.
type MatchResult struct {
	AppointmentID string
	Candidates    int
	Filtered      int
	Returned      int
	Latency       time.Duration
	Time          time.Time
}

// TransitionEvent captures an attempted appointment transition.
type TransitionEvent struct {
	AppointmentID string
	Action        string
	From          string
	To            string
	Succeeded     bool
	Time          time.Time
}

// Sink records dispatch engine events for observability purposes.
type Sink interface {
	RecordMatchResult(res MatchResult) error
	RecordTransition(ev TransitionEvent) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordMatchResult(MatchResult) error    { return nil }
func (NopSink) RecordTransition(TransitionEvent) error { return nil }

// Config selects which metric backends are enabled.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = ":9090"
	}
}
