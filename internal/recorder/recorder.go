package recorder

import "time"

// QueryEvent describes one served API query. It never carries price data.
type QueryEvent struct {
	RequestID string
	Route     string // e.g. "sma", "history"
	Symbol    string
	Params    string // canonical query string
	Status    int
	Bars      int // number of date keys in the response
	Latency   time.Duration
	Error     string
}

// ProbeEvent records the outcome of a provider health probe.
type ProbeEvent struct {
	Provider string
	Symbol   string
	Up       bool
	Bars     int
	Latency  time.Duration
	Error    string
}

// Recorder persists query and probe history for offline analysis.
type Recorder interface {
	RecordQuery(evt *QueryEvent) error
	RecordProbe(evt *ProbeEvent) error
	Close() error
}
