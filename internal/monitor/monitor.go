package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/speedwagon-io/wastemon/internal/config"
	"github.com/speedwagon-io/wastemon/internal/level"
	"github.com/speedwagon-io/wastemon/internal/lib/logger/sl"
	"github.com/speedwagon-io/wastemon/internal/model"
	"github.com/speedwagon-io/wastemon/internal/telemetry"
)

type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	// Immediate polls once at Start instead of waiting for the first tick.
	Immediate bool
}

func OptionsFromConfig(cfg config.PollingConfig) Options {
	return Options{
		Interval:  cfg.Interval,
		Timeout:   cfg.Timeout,
		Immediate: cfg.Immediate,
	}
}

// Status describes poll activity for health reporting.
type Status struct {
	Polls       int64
	Failures    int64
	LastAttempt time.Time
	LastSuccess time.Time
	LastError   error
	Interval    time.Duration
}

// Monitor polls the telemetry feed on a fixed interval and holds the latest
// snapshot. Polls run one at a time on a single goroutine.
type Monitor struct {
	log     *slog.Logger
	fetcher telemetry.Fetcher
	bins    []config.BinConfig
	opts    Options

	mu       sync.RWMutex
	snapshot model.Snapshot
	status   Status
	stopped  bool

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

func New(log *slog.Logger, fetcher telemetry.Fetcher, bins []config.BinConfig, opts Options) *Monitor {
	return &Monitor{
		log:      log,
		fetcher:  fetcher,
		bins:     bins,
		opts:     opts,
		snapshot: model.EmptySnapshot(),
		status:   Status{Interval: opts.Interval},
		done:     make(chan struct{}),
	}
}

// Start arms the poll ticker. Calling it again, or after Stop, has no effect.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			return
		}
		ctx, cancel := context.WithCancel(ctx)
		m.cancel = cancel
		m.mu.Unlock()

		m.log.Info("starting monitor",
			slog.String("fetcher", m.fetcher.Name()),
			slog.Duration("interval", m.opts.Interval),
			slog.Int("bins", len(m.bins)),
		)

		go m.run(ctx)
	})
}

// Stop disarms the ticker, aborts an in-flight poll, waits for the loop to
// exit and closes the fetcher, also when Start was never called. Results
// that arrive after Stop are discarded.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopped = true
		cancel := m.cancel
		m.mu.Unlock()

		if cancel != nil {
			cancel()
			<-m.done
		}

		if err := m.fetcher.Close(); err != nil {
			m.log.Error("failed to close fetcher", sl.Err(err))
		}
		m.log.Info("monitor stopped")
	})
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	if m.opts.Immediate {
		m.poll(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("context cancelled, stopping poll loop")
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	pollCtx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	started := time.Now().UTC()
	feed, err := m.fetcher.FetchLast(pollCtx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped || ctx.Err() != nil {
		m.log.Debug("discarding poll result after stop")
		return
	}

	m.status.Polls++
	m.status.LastAttempt = started

	if err != nil {
		m.status.Failures++
		m.status.LastError = err
		m.log.Error("failed to fetch telemetry",
			slog.String("fetcher", m.fetcher.Name()),
			sl.Err(err),
		)
		return
	}

	next := feed.Snapshot(m.bins)
	m.logTransitions(m.snapshot, next)

	m.snapshot = next
	m.status.LastSuccess = started
	m.status.LastError = nil

	m.log.Debug("telemetry updated",
		slog.String("snapshot_id", next.ID),
		slog.Int64("entry_id", next.EntryID),
	)
}

func (m *Monitor) logTransitions(prev, next model.Snapshot) {
	for _, b := range m.bins {
		from := level.Classify(prev.Reading(b.Slot))
		to := level.Classify(next.Reading(b.Slot))
		if from == to {
			continue
		}
		m.log.Info("bin level changed",
			slog.String("slot", b.Slot),
			slog.String("location", b.Name),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	}
}

func (m *Monitor) Snapshot() model.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot.Clone()
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// PollOnce fetches a single snapshot without touching monitor state.
func PollOnce(ctx context.Context, fetcher telemetry.Fetcher, bins []config.BinConfig, timeout time.Duration) (model.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	feed, err := fetcher.FetchLast(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	return feed.Snapshot(bins), nil
}
