package model

import "time"

// AttendanceStats is a projection over a record set, recomputed on demand.
// It is never persisted as a source of truth.
type AttendanceStats struct {
	TotalDays      int `json:"total_days"`
	PresentDays    int `json:"present_days"`
	AbsentDays     int `json:"absent_days"`
	LateDays       int `json:"late_days"`
	EarlyLeaveDays int `json:"early_leave_days"`
	HalfDays       int `json:"half_days"`

	AttendanceRate     float64 `json:"attendance_rate"`
	AverageIdleMinutes float64 `json:"average_idle_minutes"`
	AverageWorkedHours float64 `json:"average_worked_hours"`
	OvertimeHours      float64 `json:"overtime_hours"`

	FlagCounts     map[FlagType]int       `json:"flag_counts"`
	ApprovalCounts map[ApprovalStatus]int `json:"approval_counts"`
}

// TrendBucket selects the time-bucketing granularity for trend series.
type TrendBucket string

const (
	BucketDay   TrendBucket = "day"
	BucketWeek  TrendBucket = "week"
	BucketMonth TrendBucket = "month"
)

// TrendPoint is one bucket of a trend series. Stats are computed from only
// the records falling in the bucket.
type TrendPoint struct {
	PeriodStart time.Time       `json:"period_start"`
	Stats       AttendanceStats `json:"stats"`
}
