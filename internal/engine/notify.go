package engine

import (
	"context"
	"time"

	"attendance-engine/internal/i18n"
	"attendance-engine/internal/model"
)

// NotificationPolicy decides when an event warrants a notification and
// builds the value for the delivery collaborator. It never delivers
// anything itself. A nil return means "do not notify".
type NotificationPolicy struct {
	settings model.AttendanceSettings
}

func NewNotificationPolicy(settings model.AttendanceSettings) *NotificationPolicy {
	return &NotificationPolicy{settings: settings}
}

// OnIdleStart maps an idle-start event to a low-severity notification for
// the employee's manager. No manager on record means nobody to notify.
func (p *NotificationPolicy) OnIdleStart(ctx context.Context, record *model.AttendanceRecord, start time.Time) *model.Notification {
	if record.ManagerID == "" {
		return nil
	}
	return &model.Notification{
		Type:       model.NotificationIdleStart,
		EmployeeID: record.EmployeeID,
		ManagerID:  record.ManagerID,
		Severity:   model.SeverityLow,
		Message: i18n.T(ctx, "notify.idle_start", map[string]any{
			"Employee": record.EmployeeName,
			"Time":     start.Format("15:04"),
		}),
		AttendanceID: record.ID.Hex(),
	}
}

// OnFlag notifies only for high-severity flags; low and medium stay on the
// record for review without interrupting anyone.
func (p *NotificationPolicy) OnFlag(ctx context.Context, record *model.AttendanceRecord, flag model.Flag) *model.Notification {
	if flag.Severity != model.SeverityHigh {
		return nil
	}
	return &model.Notification{
		Type:       model.NotificationFlagRaised,
		EmployeeID: record.EmployeeID,
		ManagerID:  record.ManagerID,
		Severity:   flag.Severity,
		Message: i18n.T(ctx, "notify.flag_raised", map[string]any{
			"Employee": record.EmployeeName,
			"Flag":     string(flag.Type),
			"Detail":   flag.Description,
		}),
		AttendanceID: record.ID.Hex(),
	}
}

// OnApprovalRequired fires when a record lands in pending review. Disabled
// entirely when manager approval is not required.
func (p *NotificationPolicy) OnApprovalRequired(ctx context.Context, record *model.AttendanceRecord) *model.Notification {
	if !p.settings.RequireManagerApproval {
		return nil
	}
	if record.Approval.Status != model.ApprovalPending {
		return nil
	}
	return &model.Notification{
		Type:       model.NotificationApprovalRequired,
		EmployeeID: record.EmployeeID,
		ManagerID:  record.ManagerID,
		Severity:   model.SeverityMedium,
		Message: i18n.T(ctx, "notify.approval_required", map[string]any{
			"Employee": record.EmployeeName,
			"Date":     record.Date,
		}),
		AttendanceID: record.ID.Hex(),
	}
}

// OnApprovalDecided notifies the employee of the outcome of a review.
func (p *NotificationPolicy) OnApprovalDecided(ctx context.Context, record *model.AttendanceRecord) *model.Notification {
	if record.Approval.Status != model.ApprovalApproved && record.Approval.Status != model.ApprovalRejected {
		return nil
	}
	return &model.Notification{
		Type:       model.NotificationApprovalDecided,
		EmployeeID: record.EmployeeID,
		ManagerID:  record.ManagerID,
		Severity:   model.SeverityLow,
		Message: i18n.T(ctx, "notify.approval_decided", map[string]any{
			"Employee": record.EmployeeName,
			"Date":     record.Date,
			"Outcome":  string(record.Approval.Status),
		}),
		AttendanceID: record.ID.Hex(),
	}
}
