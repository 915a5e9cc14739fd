package engine

import (
	"sort"
	"time"

	"attendance-engine/internal/model"
)

// Fallback grouping key for records with no department.
const unassignedKey = "Unassigned"

// Aggregate reduces a record set into per-period statistics. All rates are
// zero-safe: an empty set yields zeroes, never a division error. Worked-hours
// and overtime averages only count records that have both check-in and
// check-out; open records are excluded from the denominator rather than
// treated as zero-hour days.
func Aggregate(records []*model.AttendanceRecord) model.AttendanceStats {
	stats := model.AttendanceStats{
		TotalDays:      len(records),
		FlagCounts:     make(map[model.FlagType]int),
		ApprovalCounts: make(map[model.ApprovalStatus]int),
	}

	var totalIdle float64
	var totalWorked float64
	var workedCount int

	for _, r := range records {
		switch r.Status {
		case model.StatusPresent:
			stats.PresentDays++
		case model.StatusAbsent:
			stats.AbsentDays++
		case model.StatusLate:
			stats.LateDays++
		case model.StatusEarlyLeave:
			stats.EarlyLeaveDays++
		case model.StatusHalfDay:
			stats.HalfDays++
		}

		totalIdle += r.TotalIdleMinutes()

		if hours, ok := r.WorkedHours(); ok {
			totalWorked += hours
			workedCount++
			if hours > fullDayHours {
				stats.OvertimeHours += hours - fullDayHours
			}
		}

		for _, f := range r.Flags {
			stats.FlagCounts[f.Type]++
		}
		if r.Approval.Status != "" {
			stats.ApprovalCounts[r.Approval.Status]++
		}
	}

	if stats.TotalDays > 0 {
		stats.AttendanceRate = float64(stats.PresentDays) / float64(stats.TotalDays) * 100
		stats.AverageIdleMinutes = totalIdle / float64(stats.TotalDays)
	}
	if workedCount > 0 {
		stats.AverageWorkedHours = totalWorked / float64(workedCount)
	}
	return stats
}

// Trends buckets records by calendar day, ISO week (keyed on Monday) or
// first-of-month and aggregates each bucket independently, so no bucket sees
// another bucket's records. Points come back sorted by period start.
func Trends(records []*model.AttendanceRecord, bucket model.TrendBucket) []model.TrendPoint {
	groups := make(map[time.Time][]*model.AttendanceRecord)
	for _, r := range records {
		day := r.Day()
		if day.IsZero() {
			continue
		}
		key := bucketStart(day, bucket)
		groups[key] = append(groups[key], r)
	}

	points := make([]model.TrendPoint, 0, len(groups))
	for start, rs := range groups {
		points = append(points, model.TrendPoint{PeriodStart: start, Stats: Aggregate(rs)})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].PeriodStart.Before(points[j].PeriodStart)
	})
	return points
}

// bucketStart truncates a day to its bucket key.
func bucketStart(day time.Time, bucket model.TrendBucket) time.Time {
	switch bucket {
	case model.BucketWeek:
		// back up to Monday
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case model.BucketMonth:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	default:
		return day
	}
}

// GroupByDepartment aggregates per department, with records lacking a
// department grouped under "Unassigned".
func GroupByDepartment(records []*model.AttendanceRecord) map[string]model.AttendanceStats {
	groups := make(map[string][]*model.AttendanceRecord)
	for _, r := range records {
		key := r.Department
		if key == "" {
			key = unassignedKey
		}
		groups[key] = append(groups[key], r)
	}
	return aggregateGroups(groups)
}

// GroupByEmployee aggregates per employee id.
func GroupByEmployee(records []*model.AttendanceRecord) map[string]model.AttendanceStats {
	groups := make(map[string][]*model.AttendanceRecord)
	for _, r := range records {
		groups[r.EmployeeID] = append(groups[r.EmployeeID], r)
	}
	return aggregateGroups(groups)
}

func aggregateGroups(groups map[string][]*model.AttendanceRecord) map[string]model.AttendanceStats {
	out := make(map[string]model.AttendanceStats, len(groups))
	for key, rs := range groups {
		out[key] = Aggregate(rs)
	}
	return out
}
