package metrics

import coremetrics "github.com/link-bedside-nurses/dispatch/core/metrics"

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordMatchResult forwards the record to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordMatchResult(res coremetrics.MatchResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordMatchResult(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordTransition forwards the record to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordTransition(ev); err != nil {
			return err
		}
	}
	return nil
}
