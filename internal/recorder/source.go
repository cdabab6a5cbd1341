// ABOUTME: Location sample source interface and a channel-fed simulated source
// ABOUTME: Samples arrive via subscription plus an on-demand last-known fix

package recorder

import (
	"context"
	"sync"
	"time"
)

// Sample is one raw location fix from the platform location service.
type Sample struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64
	Timestamp time.Time
}

// LocationSource delivers location samples on demand and via
// subscription. Subscribe streams live fixes at a platform-determined
// cadence; LastKnown returns the most recent cached fix, or nil when the
// device has no fix yet.
type LocationSource interface {
	Subscribe(ctx context.Context) (<-chan Sample, error)
	LastKnown(ctx context.Context) (*Sample, error)
}

// SimulatedSource is a channel-fed LocationSource for tests and for
// replaying recorded sample files through a live session.
type SimulatedSource struct {
	mu   sync.Mutex
	subs []chan Sample
	last *Sample
}

// NewSimulatedSource creates an empty simulated source.
func NewSimulatedSource() *SimulatedSource {
	return &SimulatedSource{}
}

// Subscribe returns a buffered channel that receives every subsequent Feed.
func (s *SimulatedSource) Subscribe(_ context.Context) (<-chan Sample, error) {
	ch := make(chan Sample, 64)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch, nil
}

// LastKnown returns the most recently fed sample, or nil before any feed.
func (s *SimulatedSource) LastKnown(_ context.Context) (*Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, nil
	}
	cp := *s.last
	return &cp, nil
}

// Feed delivers a sample to all subscribers and caches it as the last
// known fix. Slow subscribers drop rather than block the feeder.
func (s *SimulatedSource) Feed(sample Sample) {
	s.mu.Lock()
	cp := sample
	s.last = &cp
	subs := make([]chan Sample, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- sample:
		default:
		}
	}
}

// SetLastKnown primes the cached fix without notifying subscribers,
// mimicking a stale fix left over from before the walk started.
func (s *SimulatedSource) SetLastKnown(sample Sample) {
	s.mu.Lock()
	cp := sample
	s.last = &cp
	s.mu.Unlock()
}
