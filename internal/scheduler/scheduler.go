package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"QuantDash/internal/collector"
	"QuantDash/internal/model"
	"QuantDash/internal/notifier"
	"QuantDash/internal/recorder"
)

const (
	probeWindow  = 7 * 24 * time.Hour
	probeTimeout = 20 * time.Second
)

// StatusObserver receives every probe result, e.g. to export a gauge.
type StatusObserver interface {
	SetProviderUp(provider string, up bool)
}

// Scheduler runs the periodic provider health probe.
type Scheduler struct {
	Cron     *cron.Cron
	Fetcher  collector.Fetcher
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Observer StatusObserver
	Symbol   string
	Ctx      context.Context

	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	status model.ProviderStatus
}

// NewScheduler creates a new Scheduler probing fetcher with symbol.
func NewScheduler(ctx context.Context, f collector.Fetcher, symbol string, n notifier.Notifier, rec recorder.Recorder, logger *zap.Logger) *Scheduler {
	if n == nil {
		n = notifier.Noop{}
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Fetcher:  f,
		Notifier: n,
		Recorder: rec,
		Symbol:   symbol,
		Ctx:      ctx,
		logger:   logger.Named("scheduler"),
		now:      time.Now,
		status:   model.ProviderStatus{Provider: f.Name(), Symbol: symbol},
	}
}

// Register adds the health probe to the cron table.
func (s *Scheduler) Register(healthCron string) error {
	if _, err := s.Cron.AddFunc(healthCron, func() { s.Probe() }); err != nil {
		return fmt.Errorf("register health probe: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running probe to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Status returns the latest probe snapshot.
func (s *Scheduler) Status() model.ProviderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Probe fetches a short history window for the probe symbol and updates the
// status snapshot. Transitions between up and down are notified; the first
// probe is notified only when it fails.
func (s *Scheduler) Probe() model.ProviderStatus {
	ctx, cancel := context.WithTimeout(s.Ctx, probeTimeout)
	defer cancel()

	end := model.TruncateDay(s.now().UTC()).AddDate(0, 0, 1)
	start := end.Add(-probeWindow)
	began := time.Now()
	bars, err := s.Fetcher.FetchHistory(ctx, s.Symbol, start, end)
	latency := time.Since(began)

	cur := model.ProviderStatus{
		Provider:  s.Fetcher.Name(),
		Symbol:    s.Symbol,
		CheckedAt: s.now(),
		Latency:   latency,
		Bars:      len(bars),
	}
	switch {
	case err != nil:
		cur.Error = err.Error()
	case len(bars) == 0:
		cur.Error = fmt.Sprintf("no bars returned for %s", s.Symbol)
	default:
		cur.Up = true
	}

	s.mu.Lock()
	prev := s.status
	if !cur.Up {
		cur.ConsecutiveFailures = prev.ConsecutiveFailures + 1
	}
	s.status = cur
	s.mu.Unlock()

	if cur.Up {
		s.logger.Debug("provider probe ok", zap.String("provider", cur.Provider), zap.Duration("latency", latency), zap.Int("bars", cur.Bars))
	} else {
		s.logger.Warn("provider probe failed", zap.String("provider", cur.Provider), zap.String("error", cur.Error))
	}

	if s.Observer != nil {
		s.Observer.SetProviderUp(cur.Provider, cur.Up)
	}
	if err := s.Recorder.RecordProbe(&recorder.ProbeEvent{
		Provider: cur.Provider,
		Symbol:   cur.Symbol,
		Up:       cur.Up,
		Bars:     cur.Bars,
		Latency:  cur.Latency,
		Error:    cur.Error,
	}); err != nil {
		s.logger.Error("record probe", zap.Error(err))
	}

	if transitioned(prev, cur) {
		s.trySend(notifier.FormatProbeAlert(cur))
	}
	return cur
}

func transitioned(prev, cur model.ProviderStatus) bool {
	if !prev.Checked() {
		return !cur.Up
	}
	return prev.Up != cur.Up
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/status":
		return notifier.FormatStatus(s.Status())
	case "/probe":
		return notifier.FormatStatus(s.Probe())
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.logger.Error("send notification", zap.Error(err))
	}
}
