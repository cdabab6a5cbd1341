// ABOUTME: Route recording session for an active training walk
// ABOUTME: Filters, buffers, and periodically flushes GPS samples with retry on failure

package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/leash/internal/models"
	"github.com/harper/leash/internal/storage"
)

// State is the recording state of a session.
// Transitions: Idle -> Recording -> Paused <-> Recording -> Ended.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateEnded
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// PointWriter persists batches of route points.
type PointWriter interface {
	InsertBatch(points []*models.RoutePoint) error
}

// WalkCloser performs the single closing update on a walk.
type WalkCloser interface {
	End(id string, patch storage.EndPatch) (*models.Walk, error)
}

// Options tune the recording pipeline.
type Options struct {
	// MinDistanceMeters is the downsampling gate: samples closer than
	// this to the last recorded point are dropped.
	MinDistanceMeters float64
	// FlushInterval is the periodic flush cadence.
	FlushInterval time.Duration
	// MaxLivePoints caps the in-memory route kept for live map display;
	// the oldest points are dropped past the cap.
	MaxLivePoints int
	// RecoveryPollInterval is how often to poll for a cached fix while
	// no live sample has been observed yet.
	RecoveryPollInterval time.Duration
}

// DefaultOptions returns the recording defaults.
func DefaultOptions() Options {
	return Options{
		MinDistanceMeters:    10,
		FlushInterval:        5 * time.Second,
		MaxLivePoints:        500,
		RecoveryPollInterval: 2 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinDistanceMeters <= 0 {
		o.MinDistanceMeters = d.MinDistanceMeters
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = d.FlushInterval
	}
	if o.MaxLivePoints <= 0 {
		o.MaxLivePoints = d.MaxLivePoints
	}
	if o.RecoveryPollInterval <= 0 {
		o.RecoveryPollInterval = d.RecoveryPollInterval
	}
	return o
}

// Stats is a point-in-time snapshot of session counters.
type Stats struct {
	State         State
	Accepted      int
	Dropped       int
	Flushed       int
	Pending       int
	FlushFailures int
}

// Session records the route of one walk. One session exists per active
// walk; the timer-driven flush and the event-driven sample callback share
// the pending buffer, so every buffer mutation is a take-and-clear under
// the session mutex.
type Session struct {
	walk   *models.Walk
	points PointWriter
	walks  WalkCloser
	source LocationSource
	opts   Options
	log    *log.Logger

	// flushMu serializes flushes. The periodic tick uses TryLock so a
	// flush already in flight makes the tick a no-op; Pause and End use
	// Lock so they wait for the in-flight flush instead of aborting it.
	flushMu sync.Mutex

	mu            sync.Mutex
	state         State
	lastRecorded  *models.RoutePoint
	live          []*models.RoutePoint
	pending       []*models.RoutePoint
	sawLive       bool
	accepted      int
	dropped       int
	flushed       int
	flushFailures int

	sessionCancel context.CancelFunc
	sessionWg     sync.WaitGroup
	timerCancel   context.CancelFunc
	timerWg       sync.WaitGroup
	sessionCtx    context.Context
	stopped       bool
}

// NewSession creates an idle session for the given in-progress walk.
func NewSession(walk *models.Walk, points PointWriter, walks WalkCloser, source LocationSource, opts Options, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		walk:   walk,
		points: points,
		walks:  walks,
		source: source,
		opts:   opts.withDefaults(),
		log:    logger.With("walk", walk.ID),
	}
}

// State returns the current recording state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start transitions Idle -> Recording: subscribes to the location source,
// starts the periodic flush and the cold-start recovery poll.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot start recording from state %s", state)
	}
	s.state = StateRecording
	s.mu.Unlock()

	s.sessionCtx, s.sessionCancel = context.WithCancel(ctx)

	ch, err := s.source.Subscribe(s.sessionCtx)
	if err != nil {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		s.sessionCancel()
		return fmt.Errorf("subscribe to location source: %w", err)
	}

	s.sessionWg.Add(1)
	go s.consumeLoop(ch)
	s.startTimers()

	s.log.Debug("recording started",
		"min_distance_m", s.opts.MinDistanceMeters,
		"flush_interval", s.opts.FlushInterval)
	return nil
}

// Pause transitions Recording -> Paused: cancels both timers, waits for
// any in-flight flush, and flushes whatever is pending. Samples are still
// observed for live display while paused, but not persisted. A flush
// failure here is transient and only logged; the batch stays pending.
func (s *Session) Pause() error {
	s.mu.Lock()
	if s.state != StateRecording {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot pause from state %s", state)
	}
	s.state = StatePaused
	s.mu.Unlock()

	s.stopTimers()
	if err := s.flushWait(); err != nil {
		s.log.Warn("flush on pause failed, will retry", "err", err)
	}
	return nil
}

// Resume transitions Paused -> Recording and restarts the timers.
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.state != StatePaused {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot resume from state %s", state)
	}
	s.state = StateRecording
	s.mu.Unlock()

	s.startTimers()
	return nil
}

// End stops the pipeline, performs one final synchronous flush, and only
// then persists the walk's ended_at, so a completed walk never has points
// trapped in memory. If the final flush fails the walk stays open and End
// may be retried once the store recovers.
func (s *Session) End(patch storage.EndPatch) (*models.Walk, error) {
	s.mu.Lock()
	if s.state != StateRecording && s.state != StatePaused {
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("cannot end from state %s", state)
	}
	s.mu.Unlock()

	s.stop()

	if err := s.flushWait(); err != nil {
		return nil, fmt.Errorf("final flush: %w", err)
	}

	w, err := s.walks.End(s.walk.ID, patch)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.state = StateEnded
	failures := s.flushFailures
	s.mu.Unlock()

	if failures > 0 {
		s.log.Info("recording ended after transient flush failures", "failures", failures)
	}
	return w, nil
}

// stop tears down all loops exactly once. In-flight flushes complete via
// flushMu; they are never aborted mid-write.
func (s *Session) stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.stopTimers()
	if s.sessionCancel != nil {
		s.sessionCancel()
	}
	s.sessionWg.Wait()
}

func (s *Session) startTimers() {
	ctx, cancel := context.WithCancel(s.sessionCtx)
	s.timerCancel = cancel

	s.timerWg.Add(2)
	go s.flushLoop(ctx)
	go s.recoveryLoop(ctx)
}

func (s *Session) stopTimers() {
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}
	s.timerWg.Wait()
}

func (s *Session) consumeLoop(ch <-chan Sample) {
	defer s.sessionWg.Done()
	for {
		select {
		case <-s.sessionCtx.Done():
			return
		case sample, ok := <-ch:
			if !ok {
				return
			}
			s.observe(sample, true)
		}
	}
}

func (s *Session) flushLoop(ctx context.Context) {
	defer s.timerWg.Done()
	ticker := time.NewTicker(s.opts.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.tryFlush(); err != nil {
				s.log.Warn("periodic flush failed, batch requeued", "err", err)
			}
		}
	}
}

// recoveryLoop polls for a cached last-known fix until the first live
// sample arrives, bridging cold-start GPS acquisition delay.
func (s *Session) recoveryLoop(ctx context.Context) {
	defer s.timerWg.Done()
	ticker := time.NewTicker(s.opts.RecoveryPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			saw := s.sawLive
			s.mu.Unlock()
			if saw {
				return
			}
			sample, err := s.source.LastKnown(ctx)
			if err != nil || sample == nil {
				continue
			}
			s.observe(*sample, false)
		}
	}
}

// Observe feeds one sample through the pipeline, exactly as the live
// subscription does. Exposed for replaying recorded sample files.
func (s *Session) Observe(sample Sample) {
	s.observe(sample, true)
}

func (s *Session) observe(sample Sample, live bool) {
	if err := models.ValidateCoordinates(sample.Latitude, sample.Longitude); err != nil {
		s.log.Debug("dropping invalid sample", "err", err)
		return
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if live {
		s.sawLive = true
	}

	switch s.state {
	case StateRecording:
	case StatePaused:
		// Paused still observes for live map display, but persists nothing.
		s.appendLive(models.NewRoutePoint(s.walk.ID, sample.Latitude, sample.Longitude, sample.Accuracy, sample.Timestamp))
		return
	default:
		return
	}

	if s.lastRecorded != nil {
		d := Haversine(s.lastRecorded.Latitude, s.lastRecorded.Longitude, sample.Latitude, sample.Longitude)
		if d < s.opts.MinDistanceMeters {
			s.dropped++
			return
		}
	}

	pt := models.NewRoutePoint(s.walk.ID, sample.Latitude, sample.Longitude, sample.Accuracy, sample.Timestamp)
	s.lastRecorded = pt
	s.appendLive(pt)
	s.pending = append(s.pending, pt)
	s.accepted++
}

// appendLive adds to the capped in-memory route; callers hold s.mu.
func (s *Session) appendLive(pt *models.RoutePoint) {
	s.live = append(s.live, pt)
	if len(s.live) > s.opts.MaxLivePoints {
		s.live = s.live[len(s.live)-s.opts.MaxLivePoints:]
	}
}

// tryFlush is the non-reentrant periodic flush: a flush already in
// flight makes this a no-op and the next tick picks up the backlog.
func (s *Session) tryFlush() error {
	if !s.flushMu.TryLock() {
		return nil
	}
	defer s.flushMu.Unlock()
	return s.flushBatch()
}

// flushWait waits for any in-flight flush to complete, then flushes.
func (s *Session) flushWait() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	return s.flushBatch()
}

// flushBatch takes and clears the pending buffer, writes the batch, and
// on failure prepends it back so the next attempt retries it. Point ids
// were minted at sample time, so retried batches re-insert idempotently.
func (s *Session) flushBatch() error {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return nil
	}
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	err := s.points.InsertBatch(batch)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.pending = append(batch, s.pending...)
		s.flushFailures++
		return err
	}
	s.flushed += len(batch)
	return nil
}

// Flush forces a synchronous flush of the pending buffer.
func (s *Session) Flush() error {
	return s.flushWait()
}

// LiveRoute returns a copy of the capped in-memory route for map display.
func (s *Session) LiveRoute() []*models.RoutePoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.RoutePoint, len(s.live))
	copy(out, s.live)
	return out
}

// Stats returns a snapshot of session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		State:         s.state,
		Accepted:      s.accepted,
		Dropped:       s.dropped,
		Flushed:       s.flushed,
		Pending:       len(s.pending),
		FlushFailures: s.flushFailures,
	}
}
