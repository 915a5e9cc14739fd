package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"attendance-engine/internal/model"
)

// ActivitySignalSource abstracts "the user did something" events so the idle
// machinery is testable without a browser. Subscribe returns an unsubscribe
// handle; sources must stop delivering after it is called.
type ActivitySignalSource interface {
	Subscribe(fn func(at time.Time)) (unsubscribe func())
}

// UpdateSink receives the fully-updated record after every mutation the
// session applies. The record is passed by reference; the sink must not
// mutate it. Persistence adapters hang off this.
type UpdateSink func(record *model.AttendanceRecord)

// SessionConfig wires a tracking session's collaborators. All three may be
// nil; a session without a source is driven through Activity directly.
type SessionConfig struct {
	Source      ActivitySignalSource
	Sink        UpdateSink
	OnIdleStart func(record *model.AttendanceRecord, start time.Time)
}

// TrackingSession owns one employee's open attendance record for the day and
// is its single writer: it appends and closes idle periods in the order the
// triggering events occurred and records the latest position sample. One
// session per employee at a time; the service layer enforces that.
type TrackingSession struct {
	id       string
	mu       sync.Mutex
	record   *model.AttendanceRecord
	settings model.AttendanceSettings
	timer    *IdleTimer
	unsub    func()
	sink     UpdateSink
	onIdle   func(record *model.AttendanceRecord, start time.Time)
	lastLoc  *model.GeoPoint
	stopped  bool
}

// StartTracking validates the settings snapshot, arms the idle watchdog and
// subscribes to the activity source. The returned session is the stop handle.
func StartTracking(record *model.AttendanceRecord, settings model.AttendanceSettings, cfg SessionConfig) (*TrackingSession, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	s := &TrackingSession{
		id:       uuid.NewString(),
		record:   record,
		settings: settings,
		sink:     cfg.Sink,
		onIdle:   cfg.OnIdleStart,
	}

	timer, err := StartIdleTimer(settings.IdleThreshold(), s.idleStarted, s.idleEnded)
	if err != nil {
		return nil, err
	}
	s.timer = timer

	if cfg.Source != nil {
		s.unsub = cfg.Source.Subscribe(s.Activity)
	}
	return s, nil
}

// ID returns the session handle identifier.
func (s *TrackingSession) ID() string { return s.id }

// Record returns the record the session owns.
func (s *TrackingSession) Record() *model.AttendanceRecord { return s.record }

// Activity feeds one activity signal into the watchdog.
func (s *TrackingSession) Activity(at time.Time) {
	s.timer.Activity(at)
}

// Position records a geolocation sample. Samples are kept as the "last
// known" position consulted at check-out when the check-out request itself
// carries none. They are not activity signals.
func (s *TrackingSession) Position(p model.GeoPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLoc = &p
}

// LastPosition returns the most recent geolocation sample, or nil.
func (s *TrackingSession) LastPosition() *model.GeoPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLoc
}

// Stop tears the session down: unsubscribes from the activity source,
// cancels the pending idle deadline and closes any open idle period at now.
// Safe to call more than once.
func (s *TrackingSession) Stop(now time.Time) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	unsub := s.unsub
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.timer.Stop(now)
}

// idleStarted appends a new open idle period. Runs from the timer, which
// serializes idle transitions, so periods stay ordered and disjoint.
func (s *TrackingSession) idleStarted(start time.Time) {
	s.mu.Lock()
	s.record.IdlePeriods = append(s.record.IdlePeriods, model.IdlePeriod{Start: start})
	s.mu.Unlock()

	s.flush()
	if s.onIdle != nil {
		s.onIdle(s.record, start)
	}
}

// idleEnded closes the open idle period and fixes its duration.
func (s *TrackingSession) idleEnded(start, end time.Time) {
	s.mu.Lock()
	i := s.record.OpenIdlePeriod()
	if i < 0 {
		s.mu.Unlock()
		return
	}
	p := &s.record.IdlePeriods[i]
	e := end
	p.End = &e
	p.DurationMinutes = end.Sub(p.Start).Minutes()
	s.mu.Unlock()

	s.flush()
}

func (s *TrackingSession) flush() {
	if s.sink != nil {
		s.sink(s.record)
	}
}

// SyntheticSource is an in-process activity source for tests and non-browser
// callers. Emit fans one signal out to all subscribers.
type SyntheticSource struct {
	mu   sync.Mutex
	subs map[int]func(at time.Time)
	next int
}

func NewSyntheticSource() *SyntheticSource {
	return &SyntheticSource{subs: make(map[int]func(at time.Time))}
}

func (s *SyntheticSource) Subscribe(fn func(at time.Time)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Emit delivers one activity signal to every subscriber.
func (s *SyntheticSource) Emit(at time.Time) {
	s.mu.Lock()
	fns := make([]func(at time.Time), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(at)
	}
}
