package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"attendance-engine/internal/engine"
	"attendance-engine/internal/model"
)

// ReportService produces the derived reporting surfaces: aggregate stats,
// trend series, breakdowns and the CSV export. Everything here is a
// projection over the record set, recomputed on demand.
type ReportService struct {
	records RecordStore
}

func NewReportService(records RecordStore) *ReportService {
	return &ReportService{records: records}
}

// Stats aggregates all records in [from, to], optionally for one employee.
func (s *ReportService) Stats(ctx context.Context, from, to, employeeID string) (model.AttendanceStats, error) {
	records, err := s.fetch(ctx, from, to, employeeID)
	if err != nil {
		return model.AttendanceStats{}, err
	}
	return engine.Aggregate(records), nil
}

// Trends returns the time-bucketed series for the range.
func (s *ReportService) Trends(ctx context.Context, from, to string, bucket model.TrendBucket) ([]model.TrendPoint, error) {
	switch bucket {
	case model.BucketDay, model.BucketWeek, model.BucketMonth:
	default:
		return nil, fmt.Errorf("unknown trend bucket %q", bucket)
	}
	records, err := s.fetch(ctx, from, to, "")
	if err != nil {
		return nil, err
	}
	return engine.Trends(records, bucket), nil
}

// ByDepartment aggregates per department over the range.
func (s *ReportService) ByDepartment(ctx context.Context, from, to string) (map[string]model.AttendanceStats, error) {
	records, err := s.fetch(ctx, from, to, "")
	if err != nil {
		return nil, err
	}
	return engine.GroupByDepartment(records), nil
}

// ByEmployee aggregates per employee over the range.
func (s *ReportService) ByEmployee(ctx context.Context, from, to string) (map[string]model.AttendanceStats, error) {
	records, err := s.fetch(ctx, from, to, "")
	if err != nil {
		return nil, err
	}
	return engine.GroupByEmployee(records), nil
}

// ExportCSV writes one row per record with flags concatenated into a single
// descriptive column. Column layout is a formatting concern of the export
// consumer; this is the flattened shape they asked for.
func (s *ReportService) ExportCSV(ctx context.Context, w io.Writer, from, to, employeeID string) error {
	records, err := s.fetch(ctx, from, to, employeeID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{
		"date", "employee_id", "employee_name", "department", "status",
		"check_in", "check_out", "worked_hours", "idle_minutes",
		"approval_status", "flags",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range records {
		if err := cw.Write(exportRow(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *ReportService) fetch(ctx context.Context, from, to, employeeID string) ([]*model.AttendanceRecord, error) {
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

func exportRow(r *model.AttendanceRecord) []string {
	checkIn, checkOut := "", ""
	if r.CheckIn != nil {
		checkIn = r.CheckIn.Time.Format(time.RFC3339)
	}
	if r.CheckOut != nil {
		checkOut = r.CheckOut.Time.Format(time.RFC3339)
	}
	worked := ""
	if hours, ok := r.WorkedHours(); ok {
		worked = fmt.Sprintf("%.2f", hours)
	}

	flags := make([]string, 0, len(r.Flags))
	for _, f := range r.Flags {
		flags = append(flags, fmt.Sprintf("%s(%s): %s", f.Type, f.Severity, f.Description))
	}

	return []string{
		r.Date,
		r.EmployeeID,
		r.EmployeeName,
		r.Department,
		string(r.Status),
		checkIn,
		checkOut,
		worked,
		fmt.Sprintf("%.1f", r.TotalIdleMinutes()),
		string(r.Approval.Status),
		strings.Join(flags, "; "),
	}
}
