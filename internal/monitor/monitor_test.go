package monitor

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedwagon-io/wastemon/internal/config"
	"github.com/speedwagon-io/wastemon/internal/level"
	"github.com/speedwagon-io/wastemon/internal/lib/logger/sl"
	"github.com/speedwagon-io/wastemon/internal/model"
	"github.com/speedwagon-io/wastemon/internal/telemetry"
)

var testBins = []config.BinConfig{
	{Slot: "uss1", Field: "field1", Name: "Chennai", URL: "https://maps.example/1"},
	{Slot: "uss2", Field: "field2", Name: "Coimbatore", URL: "https://maps.example/2"},
	{Slot: "uss3", Field: "field3", Name: "Madurai", URL: "https://maps.example/3"},
}

type result struct {
	feed *telemetry.Feed
	err  error
}

// fakeFetcher replays queued results; once exhausted it repeats the last one.
type fakeFetcher struct {
	mu      sync.Mutex
	results []result
	calls   atomic.Int64
	closed  atomic.Bool
	block   chan struct{}
}

func (f *fakeFetcher) FetchLast(ctx context.Context) (*telemetry.Feed, error) {
	f.calls.Add(1)

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			// Pretend the response raced the cancellation.
			return &telemetry.Feed{Fields: map[string]any{"field1": 999.0}}, nil
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) == 0 {
		return nil, errors.New("no result queued")
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r.feed, r.err
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) Close() error {
	f.closed.Store(true)
	return nil
}

func feedOf(f1, f2, f3 any) *telemetry.Feed {
	return &telemetry.Feed{Fields: map[string]any{"field1": f1, "field2": f2, "field3": f3}}
}

func quickOptions() Options {
	return Options{Interval: 10 * time.Millisecond, Timeout: time.Second}
}

func TestMonitorInitialSnapshotIsEmpty(t *testing.T) {
	m := New(sl.NewDiscardLogger(), &fakeFetcher{}, testBins, Options{Interval: time.Hour, Timeout: time.Second})
	m.Start(context.Background())
	defer m.Stop()

	snap := m.Snapshot()
	assert.True(t, snap.IsEmpty())
	for _, b := range testBins {
		assert.Equal(t, level.NotInitialized, level.Classify(snap.Reading(b.Slot)))
	}
}

func TestMonitorAppliesSuccessfulPoll(t *testing.T) {
	fetcher := &fakeFetcher{results: []result{{feed: feedOf(320.0, 200.0, 50.0)}}}
	m := New(sl.NewDiscardLogger(), fetcher, testBins, quickOptions())
	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return !m.Snapshot().IsEmpty()
	}, time.Second, 5*time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, level.Full, level.Classify(snap.Reading("uss1")))
	assert.Equal(t, level.Average, level.Classify(snap.Reading("uss2")))
	assert.Equal(t, level.Low, level.Classify(snap.Reading("uss3")))

	status := m.Status()
	assert.GreaterOrEqual(t, status.Polls, int64(1))
	assert.Zero(t, status.Failures)
	assert.False(t, status.LastSuccess.IsZero())
	assert.NoError(t, status.LastError)
}

func TestMonitorKeepsReadingsOnFailure(t *testing.T) {
	var buf bytes.Buffer
	log := sl.NewLogger(&buf, "debug", "json")

	fetcher := &fakeFetcher{results: []result{
		{feed: feedOf(320.0, 200.0, 50.0)},
		{err: errors.New("network unreachable")},
	}}
	m := New(log, fetcher, testBins, quickOptions())
	m.Start(context.Background())

	require.Eventually(t, func() bool {
		return m.Status().Failures >= 1
	}, time.Second, 5*time.Millisecond)
	m.Stop()

	snap := m.Snapshot()
	assert.Equal(t, model.NewReading(320), snap.Reading("uss1"))
	assert.Equal(t, model.NewReading(200), snap.Reading("uss2"))
	assert.Equal(t, model.NewReading(50), snap.Reading("uss3"))

	status := m.Status()
	assert.EqualError(t, status.LastError, "network unreachable")
	assert.Contains(t, buf.String(), `"msg":"failed to fetch telemetry"`)
	assert.Contains(t, buf.String(), `"error":"network unreachable"`)
}

func TestMonitorReplacesSnapshotWholesale(t *testing.T) {
	fetcher := &fakeFetcher{results: []result{
		{feed: feedOf(320.0, 200.0, 50.0)},
		{feed: &telemetry.Feed{Fields: map[string]any{"field2": "10"}}},
	}}
	m := New(sl.NewDiscardLogger(), fetcher, testBins, quickOptions())
	m.Start(context.Background())

	require.Eventually(t, func() bool {
		return m.Snapshot().Reading("uss2").Value == 10
	}, time.Second, 5*time.Millisecond)
	m.Stop()

	snap := m.Snapshot()
	assert.Equal(t, model.NoData(), snap.Reading("uss1"))
	assert.Equal(t, model.NoData(), snap.Reading("uss3"))
}

func TestMonitorStopHaltsPolling(t *testing.T) {
	fetcher := &fakeFetcher{results: []result{{feed: feedOf(1.0, 2.0, 3.0)}}}
	m := New(sl.NewDiscardLogger(), fetcher, testBins, quickOptions())
	m.Start(context.Background())

	require.Eventually(t, func() bool {
		return fetcher.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	m.Stop()
	calls := fetcher.calls.Load()

	time.Sleep(5 * quickOptions().Interval)
	assert.Equal(t, calls, fetcher.calls.Load())
	assert.True(t, fetcher.closed.Load())

	// Stop is idempotent and Start after Stop does not re-arm.
	m.Stop()
	m.Start(context.Background())
	time.Sleep(5 * quickOptions().Interval)
	assert.Equal(t, calls, fetcher.calls.Load())
}

func TestMonitorDiscardsResultAfterStop(t *testing.T) {
	fetcher := &fakeFetcher{block: make(chan struct{})}
	m := New(sl.NewDiscardLogger(), fetcher, testBins, quickOptions())
	m.Start(context.Background())

	require.Eventually(t, func() bool {
		return fetcher.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	m.Stop()

	assert.True(t, m.Snapshot().IsEmpty())
	assert.Zero(t, m.Status().Polls)
}

func TestMonitorImmediatePoll(t *testing.T) {
	fetcher := &fakeFetcher{results: []result{{feed: feedOf(1.0, 2.0, 3.0)}}}
	m := New(sl.NewDiscardLogger(), fetcher, testBins, Options{Interval: time.Hour, Timeout: time.Second, Immediate: true})
	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return !m.Snapshot().IsEmpty()
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), fetcher.calls.Load())
}

func TestMonitorStopWithoutStart(t *testing.T) {
	fetcher := &fakeFetcher{}
	m := New(sl.NewDiscardLogger(), fetcher, testBins, quickOptions())

	assert.NotPanics(t, m.Stop)
	assert.Zero(t, fetcher.calls.Load())
	assert.True(t, fetcher.closed.Load())
}

func TestMonitorLogsTransitions(t *testing.T) {
	var buf bytes.Buffer
	log := sl.NewLogger(&buf, "info", "json")

	fetcher := &fakeFetcher{results: []result{{feed: feedOf(320.0, nil, nil)}}}
	m := New(log, fetcher, testBins, quickOptions())
	m.Start(context.Background())

	require.Eventually(t, func() bool {
		return !m.Snapshot().IsEmpty()
	}, time.Second, 5*time.Millisecond)
	m.Stop()

	out := buf.String()
	assert.Contains(t, out, `"msg":"bin level changed"`)
	assert.Contains(t, out, `"slot":"uss1"`)
	assert.Contains(t, out, `"to":"Full"`)
	assert.NotContains(t, out, `"slot":"uss2"`)
}

func TestPollOnce(t *testing.T) {
	fetcher := &fakeFetcher{results: []result{{feed: feedOf("320", "200", "50")}}}

	snap, err := PollOnce(context.Background(), fetcher, testBins, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 320.0, snap.Reading("uss1").Value)

	failing := &fakeFetcher{results: []result{{err: errors.New("boom")}}}
	_, err = PollOnce(context.Background(), failing, testBins, time.Second)
	assert.EqualError(t, err, "boom")
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.PollingConfig{Interval: 5 * time.Second, Timeout: 4 * time.Second, Immediate: true})
	assert.Equal(t, Options{Interval: 5 * time.Second, Timeout: 4 * time.Second, Immediate: true}, opts)
}
