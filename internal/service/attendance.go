package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"attendance-engine/internal/engine"
	"attendance-engine/internal/model"
	"attendance-engine/internal/notifier"
)

// State errors, surfaced to callers as human-readable failures at the point
// of the offending operation.
var (
	ErrAlreadyCheckedIn  = errors.New("already checked in today")
	ErrAlreadyCheckedOut = errors.New("already checked out today")
	ErrNotCheckedIn      = errors.New("check-out requires an open check-in")
	ErrNoActiveSession   = errors.New("no active tracking session")
	ErrSessionActive     = errors.New("a tracking session is already active for this employee")
	ErrRecordNotFound    = errors.New("attendance record not found")
	ErrNotPending        = errors.New("approval already decided")
)

// RecordStore is the persistence collaborator for attendance records.
type RecordStore interface {
	GetDayRecord(ctx context.Context, employeeID, date string) (*model.AttendanceRecord, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*model.AttendanceRecord, error)
	Create(ctx context.Context, record *model.AttendanceRecord) error
	Update(ctx context.Context, record *model.AttendanceRecord) error
	GetByDateRange(ctx context.Context, from, to, employeeID string) ([]*model.AttendanceRecord, error)
	GetPending(ctx context.Context, managerID string) ([]*model.AttendanceRecord, error)
}

// ConfigStore supplies the settings and geofence snapshots read at the start
// of each operation.
type ConfigStore interface {
	GetSettings(ctx context.Context) (model.AttendanceSettings, error)
	GetOfficeLocations(ctx context.Context) ([]model.OfficeLocation, error)
}

// AttendanceService orchestrates the engine: it owns the per-employee
// tracking sessions, runs classification and flag evaluation at the right
// points, persists explicit full-record updates and forwards notification
// decisions to the delivery collaborator.
type AttendanceService struct {
	records RecordStore
	config  ConfigStore
	sender  notifier.Sender

	mu       sync.Mutex
	sessions map[string]*engine.TrackingSession
}

func NewAttendanceService(records RecordStore, config ConfigStore, sender notifier.Sender) *AttendanceService {
	return &AttendanceService{
		records:  records,
		config:   config,
		sender:   sender,
		sessions: make(map[string]*engine.TrackingSession),
	}
}

// CheckInput carries the check-in/check-out boundary data.
type CheckInput struct {
	EmployeeID   string
	EmployeeName string
	Department   string
	ManagerID    string
	At           time.Time
	Location     *model.GeoPoint
	Device       *model.DeviceInfo
}

// CheckIn creates the day's record for an employee and starts its tracking
// session. Exactly one record per employee per day: a duplicate check-in is
// rejected, never a second record. Geofence failures are advisory; they
// raise a flag but never block the check-in.
func (s *AttendanceService) CheckIn(ctx context.Context, in CheckInput) (*model.AttendanceRecord, error) {
	settings, geo, err := s.snapshot(ctx, in.Location != nil)
	if err != nil {
		return nil, err
	}

	at := in.At
	if at.IsZero() {
		at = time.Now()
	}
	date := at.Format(time.DateOnly)

	existing, err := s.records.GetDayRecord(ctx, in.EmployeeID, date)
	if err != nil {
		return nil, fmt.Errorf("get day record: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyCheckedIn
	}
	if s.session(in.EmployeeID) != nil {
		return nil, ErrSessionActive
	}

	record := &model.AttendanceRecord{
		EmployeeID:   in.EmployeeID,
		EmployeeName: in.EmployeeName,
		Department:   in.Department,
		ManagerID:    in.ManagerID,
		Date:         date,
		CheckIn:      &model.CheckEvent{Time: at, Location: in.Location, Device: in.Device},
		Approval:     model.Approval{Status: model.ApprovalPending},
		IdlePeriods:  []model.IdlePeriod{},
		Flags:        []model.Flag{},
	}
	record.Status = engine.Classify(record, settings)
	record.MergeFlags(engine.EvaluateFlags(record, settings, geo))

	if err := s.records.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	if err := s.startSession(record, settings); err != nil {
		return nil, err
	}

	policy := engine.NewNotificationPolicy(settings)
	for _, f := range record.Flags {
		s.send(ctx, policy.OnFlag(ctx, record, f))
	}

	return record, nil
}

// Activity routes one activity signal (and optional position sample) into
// the employee's tracking session.
func (s *AttendanceService) Activity(ctx context.Context, employeeID string, at time.Time, loc *model.GeoPoint) error {
	session := s.session(employeeID)
	if session == nil {
		return ErrNoActiveSession
	}
	if at.IsZero() {
		at = time.Now()
	}
	if loc != nil {
		session.Position(*loc)
	}
	session.Activity(at)
	return nil
}

// CheckOut closes the day: stops the tracking session (which closes any open
// idle period at the check-out time), finalizes the status and flags against
// the fully-updated record, decides approval and persists.
func (s *AttendanceService) CheckOut(ctx context.Context, in CheckInput) (*model.AttendanceRecord, error) {
	at := in.At
	if at.IsZero() {
		at = time.Now()
	}
	date := at.Format(time.DateOnly)

	record, err := s.records.GetDayRecord(ctx, in.EmployeeID, date)
	if err != nil {
		return nil, fmt.Errorf("get day record: %w", err)
	}
	if record == nil || record.CheckIn == nil {
		return nil, ErrNotCheckedIn
	}
	if record.CheckOut != nil {
		return nil, ErrAlreadyCheckedOut
	}

	loc := in.Location

	// The session record is the single-writer copy; prefer it over the
	// stored one so no idle mutation is lost.
	if session := s.takeSession(in.EmployeeID); session != nil {
		if loc == nil {
			loc = session.LastPosition()
		}
		session.Stop(at)
		record = session.Record()
	}

	settings, geo, err := s.snapshot(ctx, loc != nil)
	if err != nil {
		return nil, err
	}

	record.CheckOut = &model.CheckEvent{Time: at, Location: loc, Device: in.Device}
	closeOpenIdle(record, at)

	// flags raised at check-in were already notified; only flags merged in
	// here fan out again
	notified := make(map[model.FlagType]bool, len(record.Flags))
	for _, f := range record.Flags {
		notified[f.Type] = true
	}
	record.MergeFlags(engine.EvaluateFlags(record, settings, geo))
	record.Status = engine.Classify(record, settings)
	decideApproval(record, settings)

	if err := s.records.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}

	policy := engine.NewNotificationPolicy(settings)
	for _, f := range record.Flags {
		if notified[f.Type] {
			continue
		}
		s.send(ctx, policy.OnFlag(ctx, record, f))
	}
	s.send(ctx, policy.OnApprovalRequired(ctx, record))

	return record, nil
}

// StopTracking tears down an employee's session without a check-out, e.g.
// when the client went away. Any open idle period closes at now.
func (s *AttendanceService) StopTracking(employeeID string, now time.Time) error {
	session := s.takeSession(employeeID)
	if session == nil {
		return ErrNoActiveSession
	}
	if now.IsZero() {
		now = time.Now()
	}
	session.Stop(now)
	return nil
}

// Records lists records in [from, to], optionally for one employee.
func (s *AttendanceService) Records(ctx context.Context, from, to, employeeID string) ([]*model.AttendanceRecord, error) {
	if _, err := time.Parse(time.DateOnly, from); err != nil {
		return nil, fmt.Errorf("invalid from date %q: %w", from, err)
	}
	if _, err := time.Parse(time.DateOnly, to); err != nil {
		return nil, fmt.Errorf("invalid to date %q: %w", to, err)
	}
	records, err := s.records.GetByDateRange(ctx, from, to, employeeID)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	return records, nil
}

// Pending lists records awaiting review, optionally for one manager's team.
func (s *AttendanceService) Pending(ctx context.Context, managerID string) ([]*model.AttendanceRecord, error) {
	records, err := s.records.GetPending(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("fetch pending records: %w", err)
	}
	return records, nil
}

// Approve moves a pending record to approved. Terminal transitions happen
// only from pending.
func (s *AttendanceService) Approve(ctx context.Context, recordID, approverID, notes string) (*model.AttendanceRecord, error) {
	return s.decide(ctx, recordID, approverID, notes, model.ApprovalApproved)
}

// Reject moves a pending record to rejected.
func (s *AttendanceService) Reject(ctx context.Context, recordID, approverID, notes string) (*model.AttendanceRecord, error) {
	return s.decide(ctx, recordID, approverID, notes, model.ApprovalRejected)
}

func (s *AttendanceService) decide(ctx context.Context, recordID, approverID, notes string, outcome model.ApprovalStatus) (*model.AttendanceRecord, error) {
	id, err := bson.ObjectIDFromHex(recordID)
	if err != nil {
		return nil, fmt.Errorf("invalid record ID: %w", err)
	}

	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if record == nil {
		return nil, ErrRecordNotFound
	}
	if record.Approval.Status != model.ApprovalPending {
		return nil, fmt.Errorf("%w: record is already %s", ErrNotPending, record.Approval.Status)
	}

	now := time.Now()
	record.Approval = model.Approval{
		Status:     outcome,
		ApproverID: approverID,
		DecidedAt:  &now,
		Notes:      notes,
	}
	if err := s.records.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}

	settings, err := s.config.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	s.send(ctx, engine.NewNotificationPolicy(settings).OnApprovalDecided(ctx, record))

	return record, nil
}

// snapshot reads the settings and, when a position sample is in play, the
// geofence table. An empty office table with geofencing in play is a
// configuration error, not a silent pass.
func (s *AttendanceService) snapshot(ctx context.Context, needGeo bool) (model.AttendanceSettings, *engine.GeofenceValidator, error) {
	settings, err := s.config.GetSettings(ctx)
	if err != nil {
		return model.AttendanceSettings{}, nil, err
	}

	locations, err := s.config.GetOfficeLocations(ctx)
	if err != nil {
		return model.AttendanceSettings{}, nil, err
	}
	if len(locations) == 0 {
		if needGeo {
			return model.AttendanceSettings{}, nil, fmt.Errorf("geofence validation requires at least one office location")
		}
		return settings, nil, nil
	}

	geo, err := engine.NewGeofenceValidator(locations)
	if err != nil {
		return model.AttendanceSettings{}, nil, err
	}
	return settings, geo, nil
}

// startSession registers the single-writer tracking session for an employee.
// A second concurrent session for the same employee is rejected rather than
// left to produce conflicting idle periods.
func (s *AttendanceService) startSession(record *model.AttendanceRecord, settings model.AttendanceSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[record.EmployeeID]; ok {
		return ErrSessionActive
	}

	policy := engine.NewNotificationPolicy(settings)
	session, err := engine.StartTracking(record, settings, engine.SessionConfig{
		Sink: s.persistUpdate,
		OnIdleStart: func(r *model.AttendanceRecord, start time.Time) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.send(ctx, policy.OnIdleStart(ctx, r, start))
		},
	})
	if err != nil {
		return err
	}
	s.sessions[record.EmployeeID] = session
	return nil
}

// persistUpdate pushes the session's record mutations through the store.
// Runs on timer events, detached from any request context.
func (s *AttendanceService) persistUpdate(record *model.AttendanceRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.records.Update(ctx, record); err != nil {
		log.Printf("persist idle update for %s: %v", record.EmployeeID, err)
	}
}

func (s *AttendanceService) session(employeeID string) *engine.TrackingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[employeeID]
}

func (s *AttendanceService) takeSession(employeeID string) *engine.TrackingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessions[employeeID]
	delete(s.sessions, employeeID)
	return session
}

// send delivers a notification decision, tolerating both "do not notify"
// and delivery failures. Retries belong to the delivery collaborator.
func (s *AttendanceService) send(ctx context.Context, n *model.Notification) {
	if n == nil || s.sender == nil {
		return
	}
	if err := s.sender.Send(ctx, *n); err != nil {
		log.Printf("send notification [%s] for %s: %v", n.Type, n.EmployeeID, err)
	}
}

// closeOpenIdle closes an idle period still open at check-out using the
// check-out time as its end.
func closeOpenIdle(record *model.AttendanceRecord, at time.Time) {
	if i := record.OpenIdlePeriod(); i >= 0 {
		p := &record.IdlePeriods[i]
		end := at
		p.End = &end
		p.DurationMinutes = end.Sub(p.Start).Minutes()
	}
}

// decideApproval applies the workflow rule at check-out: approvals may be
// skipped entirely, auto-granted for quiet days, or left for the manager.
func decideApproval(record *model.AttendanceRecord, settings model.AttendanceSettings) {
	if !settings.RequireManagerApproval {
		now := time.Now()
		record.Approval = model.Approval{Status: model.ApprovalApproved, DecidedAt: &now, Notes: "auto-approved"}
		return
	}
	if record.TotalIdleMinutes() <= float64(settings.AutoApproveThresholdMinutes) && !hasHighFlag(record) {
		now := time.Now()
		record.Approval = model.Approval{Status: model.ApprovalApproved, DecidedAt: &now, Notes: "auto-approved"}
		return
	}
	record.Approval.Status = model.ApprovalPending
}

func hasHighFlag(record *model.AttendanceRecord) bool {
	for _, f := range record.Flags {
		if f.Severity == model.SeverityHigh {
			return true
		}
	}
	return false
}
