package model

type NotificationType string

const (
	NotificationIdleStart        NotificationType = "idle_start"
	NotificationFlagRaised       NotificationType = "flag_raised"
	NotificationApprovalRequired NotificationType = "approval_required"
	NotificationApprovalDecided  NotificationType = "approval_decided"
)

// Notification is the value handed to the delivery collaborator. The engine
// only decides when to raise one; transport is external.
type Notification struct {
	Type         NotificationType `json:"type"`
	EmployeeID   string           `json:"employee_id"`
	ManagerID    string           `json:"manager_id,omitempty"`
	Message      string           `json:"message"`
	Severity     FlagSeverity     `json:"severity"`
	AttendanceID string           `json:"attendance_id"`
}
