// ABOUTME: Tests for the route recording session
// ABOUTME: Covers downsampling, flush retry, state transitions, and the end-of-walk flush guarantee

package recorder

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harper/leash/internal/models"
	"github.com/harper/leash/internal/storage"
)

// fakeWriter records inserted point ids and can be told to fail.
type fakeWriter struct {
	mu       sync.Mutex
	failures int
	inserted map[string]int
	calls    int
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{inserted: make(map[string]int)}
}

func (f *fakeWriter) InsertBatch(points []*models.RoutePoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return fmt.Errorf("store unavailable")
	}
	for _, p := range points {
		f.inserted[p.ID]++
	}
	return nil
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

func (f *fakeWriter) maxInserts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	most := 0
	for _, n := range f.inserted {
		if n > most {
			most = n
		}
	}
	return most
}

// fakeCloser records the closing update.
type fakeCloser struct {
	mu     sync.Mutex
	ended  bool
	walkID string
}

func (f *fakeCloser) End(id string, patch storage.EndPatch) (*models.Walk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = true
	f.walkID = id
	now := time.Now().UTC()
	return &models.Walk{ID: id, EndedAt: &now, SuccessRating: patch.SuccessRating}, nil
}

func (f *fakeCloser) wasEnded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ended
}

// testSession builds a started session with long timer intervals so tests
// drive flushing explicitly.
func testSession(t *testing.T, writer PointWriter, closer WalkCloser) (*Session, *SimulatedSource) {
	t.Helper()
	walk := &models.Walk{ID: models.NewID(models.PrefixWalk), DistanceThresholdMeters: 10}
	source := NewSimulatedSource()
	opts := Options{
		MinDistanceMeters:    10,
		FlushInterval:        time.Hour,
		MaxLivePoints:        500,
		RecoveryPollInterval: time.Hour,
	}
	s := NewSession(walk, writer, closer, source, opts, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	return s, source
}

// sampleAt returns a sample i steps of ~22 meters north of the origin.
func sampleAt(i int, at time.Time) Sample {
	return Sample{Latitude: 41.8781 + float64(i)*0.0002, Longitude: -87.6298, Timestamp: at}
}

func TestSession_DownsamplesByDistance(t *testing.T) {
	writer := newFakeWriter()
	s, _ := testSession(t, writer, &fakeCloser{})

	base := time.Now().UTC()
	// Five samples ~22 m apart: all pass the 10 m gate.
	for i := 0; i < 5; i++ {
		s.Observe(sampleAt(i, base.Add(time.Duration(i)*10*time.Second)))
	}
	// Three samples ~3 m from the last recorded point: all dropped.
	last := sampleAt(4, base)
	for i := 1; i <= 3; i++ {
		s.Observe(Sample{
			Latitude:  last.Latitude + float64(i)*0.00001,
			Longitude: last.Longitude,
			Timestamp: base.Add(time.Duration(50+i) * time.Second),
		})
	}

	stats := s.Stats()
	if stats.Accepted != 5 {
		t.Errorf("got %d accepted, want 5", stats.Accepted)
	}
	if stats.Dropped != 3 {
		t.Errorf("got %d dropped, want 3", stats.Dropped)
	}
}

func TestSession_FirstSampleAlwaysAccepted(t *testing.T) {
	writer := newFakeWriter()
	s, _ := testSession(t, writer, &fakeCloser{})

	s.Observe(sampleAt(0, time.Now().UTC()))
	if stats := s.Stats(); stats.Accepted != 1 {
		t.Errorf("got %d accepted, want 1", stats.Accepted)
	}
}

func TestSession_DropsInvalidCoordinates(t *testing.T) {
	writer := newFakeWriter()
	s, _ := testSession(t, writer, &fakeCloser{})

	s.Observe(Sample{Latitude: 91, Longitude: 0, Timestamp: time.Now().UTC()})
	s.Observe(Sample{Latitude: 0, Longitude: -181, Timestamp: time.Now().UTC()})

	if stats := s.Stats(); stats.Accepted != 0 {
		t.Errorf("invalid samples accepted: %d", stats.Accepted)
	}
}

func TestSession_FlushWritesPending(t *testing.T) {
	writer := newFakeWriter()
	s, _ := testSession(t, writer, &fakeCloser{})

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		s.Observe(sampleAt(i, base.Add(time.Duration(i)*10*time.Second)))
	}

	if err := s.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if writer.count() != 3 {
		t.Errorf("got %d points written, want 3", writer.count())
	}
	stats := s.Stats()
	if stats.Pending != 0 || stats.Flushed != 3 {
		t.Errorf("got pending %d flushed %d, want 0 and 3", stats.Pending, stats.Flushed)
	}
}

func TestSession_FlushRetryLosesNothing(t *testing.T) {
	writer := newFakeWriter()
	writer.failures = 2
	s, _ := testSession(t, writer, &fakeCloser{})

	base := time.Now().UTC()
	for i := 0; i < 4; i++ {
		s.Observe(sampleAt(i, base.Add(time.Duration(i)*10*time.Second)))
	}

	// Two failing flushes requeue the batch.
	if err := s.Flush(); err == nil {
		t.Fatal("expected first flush to fail")
	}
	if err := s.Flush(); err == nil {
		t.Fatal("expected second flush to fail")
	}
	if stats := s.Stats(); stats.Pending != 4 || stats.FlushFailures != 2 {
		t.Errorf("got pending %d failures %d, want 4 and 2", stats.Pending, stats.FlushFailures)
	}

	// Third attempt succeeds with every point, exactly once.
	if err := s.Flush(); err != nil {
		t.Fatalf("third flush failed: %v", err)
	}
	if writer.count() != 4 {
		t.Errorf("got %d points written, want 4", writer.count())
	}
	if writer.maxInserts() != 1 {
		t.Errorf("a point was written %d times, want 1", writer.maxInserts())
	}
}

func TestSession_RetryKeepsNewPointsOrdered(t *testing.T) {
	writer := newFakeWriter()
	writer.failures = 1
	s, _ := testSession(t, writer, &fakeCloser{})

	base := time.Now().UTC()
	s.Observe(sampleAt(0, base))
	s.Observe(sampleAt(1, base.Add(10*time.Second)))
	if err := s.Flush(); err == nil {
		t.Fatal("expected flush to fail")
	}

	// Points accepted after the failure queue behind the requeued batch.
	s.Observe(sampleAt(2, base.Add(20*time.Second)))

	if err := s.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if writer.count() != 3 {
		t.Errorf("got %d points written, want 3", writer.count())
	}
}

func TestSession_StateTransitions(t *testing.T) {
	writer := newFakeWriter()
	s, _ := testSession(t, writer, &fakeCloser{})

	if got := s.State(); got != StateRecording {
		t.Fatalf("got state %s, want recording", got)
	}
	if err := s.Resume(); err == nil {
		t.Error("resume while recording should fail")
	}
	if err := s.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if err := s.Pause(); err == nil {
		t.Error("double pause should fail")
	}
	if err := s.Resume(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if _, err := s.End(storage.EndPatch{}); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if got := s.State(); got != StateEnded {
		t.Errorf("got state %s, want ended", got)
	}
	if _, err := s.End(storage.EndPatch{}); err == nil {
		t.Error("double end should fail")
	}
}

func TestSession_StartTwice(t *testing.T) {
	writer := newFakeWriter()
	s, _ := testSession(t, writer, &fakeCloser{})

	if err := s.Start(context.Background()); err == nil {
		t.Error("second start should fail")
	}
}

func TestSession_PausedObservesButDoesNotPersist(t *testing.T) {
	writer := newFakeWriter()
	s, _ := testSession(t, writer, &fakeCloser{})

	base := time.Now().UTC()
	s.Observe(sampleAt(0, base))
	if err := s.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}

	s.Observe(sampleAt(1, base.Add(10*time.Second)))
	s.Observe(sampleAt(2, base.Add(20*time.Second)))

	stats := s.Stats()
	if stats.Accepted != 1 {
		t.Errorf("paused samples were persisted: accepted %d, want 1", stats.Accepted)
	}
	// But the live route still sees them.
	if got := len(s.LiveRoute()); got != 3 {
		t.Errorf("got %d live points, want 3", got)
	}
}

func TestSession_EndFlushesBeforeClosingWalk(t *testing.T) {
	writer := newFakeWriter()
	closer := &fakeCloser{}
	s, _ := testSession(t, writer, closer)

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		s.Observe(sampleAt(i, base.Add(time.Duration(i)*10*time.Second)))
	}

	w, err := s.End(storage.EndPatch{})
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if w.EndedAt == nil {
		t.Fatal("ended_at was not set")
	}
	if writer.count() != 3 {
		t.Errorf("got %d points written before close, want 3", writer.count())
	}
	if !closer.wasEnded() {
		t.Error("walk was not closed")
	}
}

func TestSession_EndFailsOpenWhenFlushFails(t *testing.T) {
	writer := newFakeWriter()
	writer.failures = 1
	closer := &fakeCloser{}
	s, _ := testSession(t, writer, closer)

	s.Observe(sampleAt(0, time.Now().UTC()))

	if _, err := s.End(storage.EndPatch{}); err == nil {
		t.Fatal("expected end to fail when the final flush fails")
	}
	if closer.wasEnded() {
		t.Fatal("walk was closed despite a failed final flush")
	}

	// Once the store recovers, End succeeds and nothing is lost.
	if _, err := s.End(storage.EndPatch{}); err != nil {
		t.Fatalf("retried end failed: %v", err)
	}
	if writer.count() != 1 {
		t.Errorf("got %d points written, want 1", writer.count())
	}
	if !closer.wasEnded() {
		t.Error("walk was not closed after retry")
	}
}

func TestSession_LiveRouteCapped(t *testing.T) {
	writer := newFakeWriter()
	walk := &models.Walk{ID: models.NewID(models.PrefixWalk)}
	opts := Options{
		MinDistanceMeters:    1,
		FlushInterval:        time.Hour,
		MaxLivePoints:        5,
		RecoveryPollInterval: time.Hour,
	}
	s := NewSession(walk, writer, &fakeCloser{}, NewSimulatedSource(), opts, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("failed to start session: %v", err)
	}

	base := time.Now().UTC()
	for i := 0; i < 12; i++ {
		s.Observe(sampleAt(i, base.Add(time.Duration(i)*10*time.Second)))
	}

	live := s.LiveRoute()
	if len(live) != 5 {
		t.Fatalf("got %d live points, want cap of 5", len(live))
	}
	// The newest points survive, the oldest are evicted.
	wantLat := 41.8781 + float64(11)*0.0002
	if live[len(live)-1].Latitude != wantLat {
		t.Errorf("got newest latitude %v, want %v", live[len(live)-1].Latitude, wantLat)
	}
}

func TestSession_LiveFeedReachesPipeline(t *testing.T) {
	writer := newFakeWriter()
	s, source := testSession(t, writer, &fakeCloser{})

	source.Feed(sampleAt(0, time.Now().UTC()))

	// The consume loop runs on its own goroutine; wait for it to observe.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Stats().Accepted == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("fed sample never observed: %+v", s.Stats())
}

func TestSession_RecoveryUsesLastKnownFix(t *testing.T) {
	writer := newFakeWriter()
	walk := &models.Walk{ID: models.NewID(models.PrefixWalk)}
	source := NewSimulatedSource()
	source.SetLastKnown(sampleAt(0, time.Now().UTC()))

	opts := Options{
		MinDistanceMeters:    10,
		FlushInterval:        time.Hour,
		MaxLivePoints:        500,
		RecoveryPollInterval: 10 * time.Millisecond,
	}
	s := NewSession(walk, writer, &fakeCloser{}, source, opts, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("failed to start session: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Stats().Accepted >= 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("cached fix never recovered: %+v", s.Stats())
}
