package model

import "time"

// ProviderStatus is the outcome of the most recent provider health probe.
type ProviderStatus struct {
	Provider            string        `json:"provider"`
	Symbol              string        `json:"symbol"`
	Up                  bool          `json:"up"`
	CheckedAt           time.Time     `json:"checked_at"`
	Latency             time.Duration `json:"latency_ns"`
	Bars                int           `json:"bars"`
	Error               string        `json:"error,omitempty"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
}

// Checked reports whether a probe has run at least once.
func (s ProviderStatus) Checked() bool { return !s.CheckedAt.IsZero() }
