package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargolink/backend/internal/models"
	"github.com/cargolink/backend/internal/queue"
	"github.com/cargolink/backend/internal/services/approval"
	"github.com/cargolink/backend/internal/services/email"
)

// StatusNotificationJobType is the job type for account status emails
const StatusNotificationJobType queue.JobType = "send_status_notification"

// StatusNotificationPayload carries everything the handler needs so a
// delayed retry still sends the right email even if the user row changes
type StatusNotificationPayload struct {
	UserID       uuid.UUID       `json:"user_id"`
	Action       approval.Action `json:"action"`
	ReferralCode string          `json:"referral_code,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

// NotificationJob processes status notification emails off the queue
type NotificationJob struct {
	db     *gorm.DB
	emails *email.EmailService
}

// NewNotificationJob creates a new notification job handler
func NewNotificationJob(db *gorm.DB, emails *email.EmailService) *NotificationJob {
	return &NotificationJob{db: db, emails: emails}
}

// RegisterNotificationJobHandlers registers the notification job handlers
func RegisterNotificationJobHandlers(w *queue.Worker, db *gorm.DB, emails *email.EmailService) {
	handler := NewNotificationJob(db, emails)
	w.RegisterHandler(StatusNotificationJobType, handler.ProcessStatusNotification)
}

// ProcessStatusNotification sends the email for one status change
func (j *NotificationJob) ProcessStatusNotification(ctx context.Context, job queue.Job) error {
	var payload StatusNotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal notification payload: %w", err)
	}

	var user models.User
	if err := j.db.WithContext(ctx).First(&user, "id = ?", payload.UserID).Error; err != nil {
		return fmt.Errorf("failed to load user for notification: %w", err)
	}

	if payload.Action == approval.ActionApprove && user.Role == models.RoleAgent && payload.ReferralCode != "" {
		return j.emails.SendAgentApprovalEmail(user.Email, user.FirstName, payload.ReferralCode)
	}

	status := string(user.Status)
	reason := ""
	if payload.Action != approval.ActionApprove {
		reason = payload.Reason
	}
	return j.emails.SendStatusEmail(user.Email, user.FirstName, status, reason)
}

// QueueNotifier implements approval.Notifier by enqueueing a job, keeping
// email delivery off the approval transaction's critical path
type QueueNotifier struct {
	queue *queue.Queue
}

// NewQueueNotifier creates a notifier backed by the job queue
func NewQueueNotifier(q *queue.Queue) *QueueNotifier {
	return &QueueNotifier{queue: q}
}

// NotifyStatusChange enqueues the status notification
func (n *QueueNotifier) NotifyStatusChange(user *models.User, action approval.Action, referralCode, reason string) error {
	_, err := n.queue.Enqueue(StatusNotificationJobType, StatusNotificationPayload{
		UserID:       user.ID,
		Action:       action,
		ReferralCode: referralCode,
		Reason:       reason,
	})
	return err
}
