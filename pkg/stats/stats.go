// Package stats tracks per-phase latency of write-path operations and
// republishes it through the metrics registry, mirroring the phase
// breakdown (lock_and_read, commit_and_unlock, distributor_push, total) the
// coordinator reports.
package stats

import (
	"sync"
	"time"
)

// Recorder is the minimal metrics surface TimingStatistics publishes phase
// durations and operation outcomes through. *metrics.Manager satisfies it.
type Recorder interface {
	RecordPhase(operation, phase string, d time.Duration)
	RecordOperation(operation, outcome, reason string)
}

// phaseTotals accumulates a running count and sum for one phase name, so
// Snapshot can report an average without retaining every sample.
type phaseTotals struct {
	count int64
	sum   time.Duration
}

// TimingStatistics is a process-wide accumulator of per-phase operation
// latency. It is a singleton, matching the single always-on timing
// collector every executor phase reports into.
type TimingStatistics struct {
	mu         sync.Mutex
	phases     map[string]*phaseTotals
	repetition int64
	recorder   Recorder
}

var (
	instance     *TimingStatistics
	instanceOnce sync.Once
)

// Instance returns the process-wide TimingStatistics singleton.
func Instance() *TimingStatistics {
	instanceOnce.Do(func() {
		instance = &TimingStatistics{phases: make(map[string]*phaseTotals)}
	})
	return instance
}

// SetRecorder attaches the metrics manager phase durations are republished
// through. Safe to call before any AddResult.
func (t *TimingStatistics) SetRecorder(r Recorder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recorder = r
}

// AddResult records one sample of a named phase's duration (e.g.
// "lock_and_read", "commit_and_unlock", "distributor_push", "total").
func (t *TimingStatistics) AddResult(phase string, d time.Duration) {
	t.mu.Lock()
	totals, ok := t.phases[phase]
	if !ok {
		totals = &phaseTotals{}
		t.phases[phase] = totals
	}
	totals.count++
	totals.sum += d
	recorder := t.recorder
	t.mu.Unlock()

	if recorder != nil {
		recorder.RecordPhase("write", phase, d)
	}
}

// RecordOperation republishes one operation's terminal outcome through the
// attached recorder. A no-op until SetRecorder has been called.
func (t *TimingStatistics) RecordOperation(operation, outcome, reason string) {
	t.mu.Lock()
	recorder := t.recorder
	t.mu.Unlock()

	if recorder != nil {
		recorder.RecordOperation(operation, outcome, reason)
	}
}

// AddRepetition increments the count of fully completed operations.
func (t *TimingStatistics) AddRepetition() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.repetition++
}

// Snapshot is a point-in-time view of accumulated phase averages.
type Snapshot struct {
	Repetitions int64
	Averages    map[string]time.Duration
}

// Snapshot returns the current averages for every observed phase.
func (t *TimingStatistics) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	averages := make(map[string]time.Duration, len(t.phases))
	for phase, totals := range t.phases {
		if totals.count == 0 {
			continue
		}
		averages[phase] = totals.sum / time.Duration(totals.count)
	}
	return Snapshot{Repetitions: t.repetition, Averages: averages}
}

// Reset clears all accumulated samples. Used between benchmark runs.
func (t *TimingStatistics) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = make(map[string]*phaseTotals)
	t.repetition = 0
}
