package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"attendance-engine/internal/model"
)

type fakeRecordStore struct {
	mu    sync.Mutex
	byKey map[string]*model.AttendanceRecord
	byID  map[bson.ObjectID]*model.AttendanceRecord
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{
		byKey: make(map[string]*model.AttendanceRecord),
		byID:  make(map[bson.ObjectID]*model.AttendanceRecord),
	}
}

func (f *fakeRecordStore) GetDayRecord(_ context.Context, employeeID, date string) (*model.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byKey[employeeID+"|"+date], nil
}

func (f *fakeRecordStore) GetByID(_ context.Context, id bson.ObjectID) (*model.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id], nil
}

func (f *fakeRecordStore) Create(_ context.Context, record *model.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record.ID = bson.NewObjectID()
	f.byKey[record.EmployeeID+"|"+record.Date] = record
	f.byID[record.ID] = record
	return nil
}

func (f *fakeRecordStore) Update(_ context.Context, record *model.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byKey[record.EmployeeID+"|"+record.Date] = record
	f.byID[record.ID] = record
	return nil
}

func (f *fakeRecordStore) GetByDateRange(_ context.Context, from, to, employeeID string) ([]*model.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.AttendanceRecord
	for _, r := range f.byID {
		if r.Date < from || r.Date > to {
			continue
		}
		if employeeID != "" && r.EmployeeID != employeeID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRecordStore) GetPending(_ context.Context, managerID string) ([]*model.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.AttendanceRecord
	for _, r := range f.byID {
		if r.Approval.Status != model.ApprovalPending {
			continue
		}
		if managerID != "" && r.ManagerID != managerID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type fakeConfigStore struct {
	settings model.AttendanceSettings
	offices  []model.OfficeLocation
}

func (f *fakeConfigStore) GetSettings(context.Context) (model.AttendanceSettings, error) {
	return f.settings, nil
}

func (f *fakeConfigStore) GetOfficeLocations(context.Context) ([]model.OfficeLocation, error) {
	return f.offices, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (f *fakeSender) Send(_ context.Context, n model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeSender) byType(t model.NotificationType) []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for _, n := range f.sent {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

func newTestService() (*AttendanceService, *fakeRecordStore, *fakeSender) {
	records := newFakeRecordStore()
	sender := &fakeSender{}
	config := &fakeConfigStore{
		settings: model.DefaultSettings(),
		offices:  []model.OfficeLocation{{Name: "HQ", Latitude: 0, Longitude: 0, RadiusMeters: 100}},
	}
	return NewAttendanceService(records, config, sender), records, sender
}

func atClock(clock string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2026-03-02 "+clock)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCheckInCreatesRecord(t *testing.T) {
	svc, records, _ := newTestService()
	defer svc.StopTracking("emp-1", time.Now())

	record, err := svc.CheckIn(context.Background(), CheckInput{
		EmployeeID:   "emp-1",
		EmployeeName: "Ana",
		Department:   "Engineering",
		ManagerID:    "mgr-1",
		At:           atClock("09:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", record.Date)
	assert.Equal(t, model.StatusPresent, record.Status)
	assert.Equal(t, model.ApprovalPending, record.Approval.Status)
	assert.Empty(t, record.Flags)

	stored, err := records.GetDayRecord(context.Background(), "emp-1", "2026-03-02")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.ID.IsZero())
}

func TestCheckInDuplicateRejected(t *testing.T) {
	svc, _, _ := newTestService()
	defer svc.StopTracking("emp-1", time.Now())

	_, err := svc.CheckIn(context.Background(), CheckInput{EmployeeID: "emp-1", At: atClock("09:00")})
	require.NoError(t, err)

	_, err = svc.CheckIn(context.Background(), CheckInput{EmployeeID: "emp-1", At: atClock("09:30")})
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
}

func TestCheckInOutsideGeofenceFlagsButNeverBlocks(t *testing.T) {
	svc, _, sender := newTestService()
	defer svc.StopTracking("emp-1", time.Now())

	record, err := svc.CheckIn(context.Background(), CheckInput{
		EmployeeID: "emp-1",
		At:         atClock("09:00"),
		Location:   &model.GeoPoint{Latitude: 0, Longitude: 0.01, Timestamp: atClock("09:00")},
	})
	require.NoError(t, err)
	assert.True(t, record.HasFlag(model.FlagLocationMismatch))
	assert.Len(t, sender.byType(model.NotificationFlagRaised), 1)
}

func TestCheckInWithLocationRequiresOffices(t *testing.T) {
	records := newFakeRecordStore()
	svc := NewAttendanceService(records, &fakeConfigStore{settings: model.DefaultSettings()}, &fakeSender{})

	_, err := svc.CheckIn(context.Background(), CheckInput{
		EmployeeID: "emp-1",
		At:         atClock("09:00"),
		Location:   &model.GeoPoint{Latitude: 0, Longitude: 0},
	})
	assert.Error(t, err)
}

func TestCheckOutFinalizesRecord(t *testing.T) {
	svc, _, sender := newTestService()

	_, err := svc.CheckIn(context.Background(), CheckInput{EmployeeID: "emp-1", At: atClock("09:00")})
	require.NoError(t, err)

	record, err := svc.CheckOut(context.Background(), CheckInput{EmployeeID: "emp-1", At: atClock("18:00")})
	require.NoError(t, err)
	require.NotNil(t, record.CheckOut)
	assert.Equal(t, model.StatusPresent, record.Status)

	// quiet day: no high flags, no idle -> auto-approved, no review ping
	assert.Equal(t, model.ApprovalApproved, record.Approval.Status)
	assert.Empty(t, sender.byType(model.NotificationApprovalRequired))
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CheckOut(context.Background(), CheckInput{EmployeeID: "emp-1", At: atClock("18:00")})
	assert.ErrorIs(t, err, ErrNotCheckedIn)
}

func TestCheckOutTwiceRejected(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CheckIn(context.Background(), CheckInput{EmployeeID: "emp-1", At: atClock("09:00")})
	require.NoError(t, err)
	_, err = svc.CheckOut(context.Background(), CheckInput{EmployeeID: "emp-1", At: atClock("18:00")})
	require.NoError(t, err)

	_, err = svc.CheckOut(context.Background(), CheckInput{EmployeeID: "emp-1", At: atClock("18:30")})
	assert.ErrorIs(t, err, ErrAlreadyCheckedOut)
}

func TestCheckOutHighFlagGoesToReview(t *testing.T) {
	svc, _, sender := newTestService()

	_, err := svc.CheckIn(context.Background(), CheckInput{EmployeeID: "emp-1", ManagerID: "mgr-1", At: atClock("09:00")})
	require.NoError(t, err)

	record, err := svc.CheckOut(context.Background(), CheckInput{
		EmployeeID: "emp-1",
		At:         atClock("18:00"),
		Location:   &model.GeoPoint{Latitude: 0, Longitude: 0.01, Timestamp: atClock("18:00")},
	})
	require.NoError(t, err)
	assert.True(t, record.HasFlag(model.FlagLocationMismatch))
	assert.Equal(t, model.ApprovalPending, record.Approval.Status)
	assert.NotEmpty(t, sender.byType(model.NotificationApprovalRequired))
}

func TestCheckOutDoesNotRenotifyCheckInFlags(t *testing.T) {
	svc, _, sender := newTestService()

	offsite := &model.GeoPoint{Latitude: 0, Longitude: 0.01, Timestamp: atClock("09:00")}
	_, err := svc.CheckIn(context.Background(), CheckInput{
		EmployeeID: "emp-1",
		ManagerID:  "mgr-1",
		At:         atClock("09:00"),
		Location:   offsite,
	})
	require.NoError(t, err)
	require.Len(t, sender.byType(model.NotificationFlagRaised), 1)

	record, err := svc.CheckOut(context.Background(), CheckInput{
		EmployeeID: "emp-1",
		At:         atClock("18:00"),
		Location:   offsite,
	})
	require.NoError(t, err)
	assert.True(t, record.HasFlag(model.FlagLocationMismatch))

	// still offsite at check-out, but the flag was already raised and
	// notified in the morning
	assert.Len(t, sender.byType(model.NotificationFlagRaised), 1)
}

func TestActivityRequiresSession(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.Activity(context.Background(), "emp-1", atClock("10:00"), nil)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestActivityFeedsSession(t *testing.T) {
	svc, _, _ := newTestService()
	defer svc.StopTracking("emp-1", time.Now())

	_, err := svc.CheckIn(context.Background(), CheckInput{EmployeeID: "emp-1", At: atClock("09:00")})
	require.NoError(t, err)

	err = svc.Activity(context.Background(), "emp-1", atClock("10:00"), &model.GeoPoint{Latitude: 0, Longitude: 0})
	assert.NoError(t, err)
}

func TestApprovalFlow(t *testing.T) {
	svc, records, sender := newTestService()

	pending := &model.AttendanceRecord{
		EmployeeID: "emp-1",
		Date:       "2026-03-02",
		Approval:   model.Approval{Status: model.ApprovalPending},
	}
	require.NoError(t, records.Create(context.Background(), pending))

	record, err := svc.Approve(context.Background(), pending.ID.Hex(), "mgr-1", "looks fine")
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, record.Approval.Status)
	assert.Equal(t, "mgr-1", record.Approval.ApproverID)
	assert.NotNil(t, record.Approval.DecidedAt)
	assert.Len(t, sender.byType(model.NotificationApprovalDecided), 1)

	// terminal transition only from pending
	_, err = svc.Approve(context.Background(), pending.ID.Hex(), "mgr-2", "")
	assert.ErrorIs(t, err, ErrNotPending)
	_, err = svc.Reject(context.Background(), pending.ID.Hex(), "mgr-2", "")
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestRejectFlow(t *testing.T) {
	svc, records, _ := newTestService()

	pending := &model.AttendanceRecord{
		EmployeeID: "emp-2",
		Date:       "2026-03-02",
		Approval:   model.Approval{Status: model.ApprovalPending},
	}
	require.NoError(t, records.Create(context.Background(), pending))

	record, err := svc.Reject(context.Background(), pending.ID.Hex(), "mgr-1", "no geofence match")
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalRejected, record.Approval.Status)
	assert.Equal(t, "no geofence match", record.Approval.Notes)
}

func TestApproveUnknownRecord(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Approve(context.Background(), bson.NewObjectID().Hex(), "mgr-1", "")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = svc.Approve(context.Background(), "not-a-hex-id", "mgr-1", "")
	assert.Error(t, err)
}

func TestPendingListsOnlyUndecided(t *testing.T) {
	svc, records, _ := newTestService()

	pending := &model.AttendanceRecord{
		EmployeeID: "emp-1",
		ManagerID:  "mgr-1",
		Date:       "2026-03-02",
		Approval:   model.Approval{Status: model.ApprovalPending},
	}
	decided := &model.AttendanceRecord{
		EmployeeID: "emp-2",
		ManagerID:  "mgr-1",
		Date:       "2026-03-02",
		Approval:   model.Approval{Status: model.ApprovalApproved},
	}
	require.NoError(t, records.Create(context.Background(), pending))
	require.NoError(t, records.Create(context.Background(), decided))

	got, err := svc.Pending(context.Background(), "mgr-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "emp-1", got[0].EmployeeID)

	got, err = svc.Pending(context.Background(), "mgr-2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecordsValidatesDates(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Records(context.Background(), "2026-99-99", "2026-03-02", "")
	assert.Error(t, err)
	_, err = svc.Records(context.Background(), "2026-03-01", "bad", "")
	assert.Error(t, err)
}
