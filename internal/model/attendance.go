package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type AttendanceStatus string

const (
	StatusPresent    AttendanceStatus = "present"
	StatusAbsent     AttendanceStatus = "absent"
	StatusLate       AttendanceStatus = "late"
	StatusEarlyLeave AttendanceStatus = "early_leave"
	StatusHalfDay    AttendanceStatus = "half_day"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// GeoPoint is a raw position sample as reported by the geolocation provider.
type GeoPoint struct {
	Latitude       float64   `bson:"latitude" json:"latitude"`
	Longitude      float64   `bson:"longitude" json:"longitude"`
	AccuracyMeters float64   `bson:"accuracy_meters,omitempty" json:"accuracy_meters,omitempty"`
	Timestamp      time.Time `bson:"timestamp" json:"timestamp"`
}

// DeviceInfo is the device fingerprint captured on check-in/check-out.
type DeviceInfo struct {
	UserAgent string `bson:"user_agent" json:"user_agent"`
	Platform  string `bson:"platform" json:"platform"`
}

// CheckEvent is one check-in or check-out with its optional evidence.
type CheckEvent struct {
	Time     time.Time   `bson:"time" json:"time"`
	Location *GeoPoint   `bson:"location,omitempty" json:"location,omitempty"`
	Device   *DeviceInfo `bson:"device,omitempty" json:"device,omitempty"`
}

// IdlePeriod is a contiguous interval with no activity signal. End is nil
// while the period is still open.
type IdlePeriod struct {
	Start           time.Time  `bson:"start" json:"start"`
	End             *time.Time `bson:"end,omitempty" json:"end,omitempty"`
	DurationMinutes float64    `bson:"duration_minutes" json:"duration_minutes"`
}

type FlagType string

const (
	FlagMultipleIdlePeriods FlagType = "multiple_idle_periods"
	FlagLocationMismatch    FlagType = "location_mismatch"
	FlagDeviceChange        FlagType = "device_change"
	FlagIrregularHours      FlagType = "irregular_hours"
)

type FlagSeverity string

const (
	SeverityLow    FlagSeverity = "low"
	SeverityMedium FlagSeverity = "medium"
	SeverityHigh   FlagSeverity = "high"
)

// Flag is an advisory annotation raised by the flag rules. Flags never block
// check-in/out; they feed notifications and manager review.
type Flag struct {
	Type        FlagType     `bson:"type" json:"type"`
	Description string       `bson:"description" json:"description"`
	Severity    FlagSeverity `bson:"severity" json:"severity"`
	Timestamp   time.Time    `bson:"timestamp" json:"timestamp"`
}

// Approval is the manager-review workflow state, independent of the computed
// attendance status.
type Approval struct {
	Status     ApprovalStatus `bson:"status" json:"status"`
	ApproverID string         `bson:"approver_id,omitempty" json:"approver_id,omitempty"`
	DecidedAt  *time.Time     `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
	Notes      string         `bson:"notes,omitempty" json:"notes,omitempty"`
}

type AttendanceRecord struct {
	ID           bson.ObjectID    `bson:"_id,omitempty" json:"id"`
	EmployeeID   string           `bson:"employee_id" json:"employee_id"`
	EmployeeName string           `bson:"employee_name" json:"employee_name"`
	Department   string           `bson:"department,omitempty" json:"department,omitempty"`
	ManagerID    string           `bson:"manager_id,omitempty" json:"manager_id,omitempty"`
	Date         string           `bson:"date" json:"date"` // YYYY-MM-DD
	CheckIn      *CheckEvent      `bson:"check_in,omitempty" json:"check_in,omitempty"`
	CheckOut     *CheckEvent      `bson:"check_out,omitempty" json:"check_out,omitempty"`
	Status       AttendanceStatus `bson:"status" json:"status"`
	IdlePeriods  []IdlePeriod     `bson:"idle_periods" json:"idle_periods"`
	Flags        []Flag           `bson:"flags" json:"flags"`
	Approval     Approval         `bson:"approval" json:"approval"`
	CreatedAt    time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `bson:"updated_at" json:"updated_at"`
}

// Day parses the record date. Zero time on malformed dates.
func (r *AttendanceRecord) Day() time.Time {
	d, err := time.Parse(time.DateOnly, r.Date)
	if err != nil {
		return time.Time{}
	}
	return d
}

// WorkedHours returns the check-in to check-out span in hours. ok is false
// when either side is missing, so callers can exclude open records from
// hours averages instead of counting them as zero.
func (r *AttendanceRecord) WorkedHours() (hours float64, ok bool) {
	if r.CheckIn == nil || r.CheckOut == nil {
		return 0, false
	}
	return r.CheckOut.Time.Sub(r.CheckIn.Time).Hours(), true
}

// TotalIdleMinutes sums the durations of all idle periods, open ones counted
// with their recorded duration so far.
func (r *AttendanceRecord) TotalIdleMinutes() float64 {
	var total float64
	for _, p := range r.IdlePeriods {
		total += p.DurationMinutes
	}
	return total
}

// OpenIdlePeriod returns the index of the idle period with no end time, or -1.
// At most one period is ever open.
func (r *AttendanceRecord) OpenIdlePeriod() int {
	for i := len(r.IdlePeriods) - 1; i >= 0; i-- {
		if r.IdlePeriods[i].End == nil {
			return i
		}
	}
	return -1
}

// LatestLocation returns the most recent position evidence on the record:
// check-out location if present, else check-in location, else nil.
func (r *AttendanceRecord) LatestLocation() *GeoPoint {
	if r.CheckOut != nil && r.CheckOut.Location != nil {
		return r.CheckOut.Location
	}
	if r.CheckIn != nil && r.CheckIn.Location != nil {
		return r.CheckIn.Location
	}
	return nil
}

// HasFlag reports whether a flag of the given type is already on the record.
func (r *AttendanceRecord) HasFlag(t FlagType) bool {
	for _, f := range r.Flags {
		if f.Type == t {
			return true
		}
	}
	return false
}

// MergeFlags appends only flags whose type is not already present. Flag
// evaluation is additive; previously raised flags are never removed.
func (r *AttendanceRecord) MergeFlags(flags []Flag) {
	for _, f := range flags {
		if !r.HasFlag(f.Type) {
			r.Flags = append(r.Flags, f)
		}
	}
}
