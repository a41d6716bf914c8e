// Package queue carries registration notices over RabbitMQ: the approval
// workflow publishes them and a background consumer renders and mails them.
package queue

const (
    // NotificationQueue is the durable queue holding pending notices.
    NotificationQueue = "registration.notifications"
    // RetryQueue holds notices waiting out a per-message TTL before they
    // are dead-lettered back onto NotificationQueue.
    RetryQueue = "registration.notifications.retry"
    // DeadQueue parks notices that failed every delivery attempt.
    DeadQueue = "registration.notifications.dead"
)

// attemptHeader counts delivery attempts of a notice.
const attemptHeader = "x-notice-attempt"

// MaxDeliveryAttempts bounds how often a notice is tried before it is parked.
const MaxDeliveryAttempts = 5

// RegistrationNotification is published after a group has been reviewed.
// It contains everything the consumer needs to render the email without
// querying the primary database.
type RegistrationNotification struct {
    Email       string            `json:"email"`
    Template    string            `json:"template"`
    Vars        map[string]string `json:"vars"`
    PublishedAt string            `json:"published_at"`
}
